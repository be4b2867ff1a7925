package wire

import (
	"fmt"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/legacy-p2p/errors"
)

// RejectCode is the reason code of a reject message.
type RejectCode uint8

const (
	RejectMalformed       RejectCode = 0x01
	RejectInvalid         RejectCode = 0x10
	RejectObsolete        RejectCode = 0x11
	RejectDuplicate       RejectCode = 0x12
	RejectNonstandard     RejectCode = 0x40
	RejectDust            RejectCode = 0x41
	RejectInsufficientFee RejectCode = 0x42
	RejectCheckpoint      RejectCode = 0x43
)

var rejectCodeStrings = map[RejectCode]string{
	RejectMalformed:       "REJECT_MALFORMED",
	RejectInvalid:         "REJECT_INVALID",
	RejectObsolete:        "REJECT_OBSOLETE",
	RejectDuplicate:       "REJECT_DUPLICATE",
	RejectNonstandard:     "REJECT_NONSTANDARD",
	RejectDust:            "REJECT_DUST",
	RejectInsufficientFee: "REJECT_INSUFFICIENTFEE",
	RejectCheckpoint:      "REJECT_CHECKPOINT",
}

func (code RejectCode) String() string {
	if s, ok := rejectCodeStrings[code]; ok {
		return s
	}

	return fmt.Sprintf("Unknown RejectCode (%d)", uint8(code))
}

// maxRejectReasonLen matches what reference nodes send.
const maxRejectReasonLen = 111

// MsgReject tells the remote a message was rejected. Hash is only set when the
// rejected message was a block or tx.
type MsgReject struct {
	Cmd    string
	Code   RejectCode
	Reason string
	Hash   *chainhash.Hash
}

func NewMsgReject(cmd string, code RejectCode, reason string, hash *chainhash.Hash) MsgReject {
	return MsgReject{Cmd: cmd, Code: code, Reason: reason, Hash: hash}
}

func (msg MsgReject) Command() Command { return CmdReject }

func (msg MsgReject) validate() error {
	if len(msg.Cmd) > CommandSize {
		return errors.NewMessageInvalidError("[reject] command %q longer than %d", msg.Cmd, CommandSize)
	}

	if len(msg.Reason) > maxRejectReasonLen {
		return errors.NewMessageInvalidError("[reject] reason is %d bytes, max %d", len(msg.Reason), maxRejectReasonLen)
	}

	return nil
}

func (msg MsgReject) Payload() []byte {
	b := appendVarBytes(nil, []byte(msg.Cmd))
	b = append(b, byte(msg.Code))
	b = appendVarBytes(b, []byte(msg.Reason))

	if msg.Hash != nil {
		b = append(b, msg.Hash[:]...)
	}

	return b
}

func (msg MsgReject) String() string {
	s := fmt.Sprintf("cmd %s, code %s, reason %q", msg.Cmd, msg.Code, msg.Reason)
	if msg.Hash != nil {
		s += ", hash " + msg.Hash.String()
	}

	return s
}

func parseMsgReject(payload []byte) (MsgReject, error) {
	var (
		msg MsgReject
		err error
	)

	r := newPayloadReader(CmdReject, payload)

	if msg.Cmd, err = r.readVarString("rejected command", CommandSize); err != nil {
		return msg, err
	}

	code, err := r.readUint8("code")
	if err != nil {
		return msg, err
	}

	msg.Code = RejectCode(code)

	if msg.Reason, err = r.readVarString("reason", maxRejectReasonLen); err != nil {
		return msg, err
	}

	if r.remaining() == HashSize {
		hash, _ := r.readHash("hash")
		msg.Hash = &hash
	}

	return msg, r.done()
}
