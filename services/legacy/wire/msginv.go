package wire

import (
	"github.com/bsv-blockchain/legacy-p2p/errors"
)

// MsgInv advertises objects the sender has.
type MsgInv struct {
	InvList []InvVect
}

// MsgGetData requests the objects named by its inventory.
type MsgGetData struct {
	InvList []InvVect
}

// MsgNotFound answers a getdata for objects the sender does not have.
type MsgNotFound struct {
	InvList []InvVect
}

func NewMsgInv(invs ...InvVect) MsgInv           { return MsgInv{InvList: invs} }
func NewMsgGetData(invs ...InvVect) MsgGetData   { return MsgGetData{InvList: invs} }
func NewMsgNotFound(invs ...InvVect) MsgNotFound { return MsgNotFound{InvList: invs} }

func (msg MsgInv) Command() Command      { return CmdInv }
func (msg MsgGetData) Command() Command  { return CmdGetData }
func (msg MsgNotFound) Command() Command { return CmdNotFound }

func (msg MsgInv) Payload() []byte      { return invListPayload(msg.InvList) }
func (msg MsgGetData) Payload() []byte  { return invListPayload(msg.InvList) }
func (msg MsgNotFound) Payload() []byte { return invListPayload(msg.InvList) }

func (msg MsgInv) validate() error      { return validateInvList(CmdInv, msg.InvList) }
func (msg MsgGetData) validate() error  { return validateInvList(CmdGetData, msg.InvList) }
func (msg MsgNotFound) validate() error { return validateInvList(CmdNotFound, msg.InvList) }

func validateInvList(cmd Command, invs []InvVect) error {
	if len(invs) > MaxInvPerMsg {
		return errors.NewMessageInvalidError("[%s] %d inventory vectors, max %d", cmd, len(invs), MaxInvPerMsg)
	}

	for _, iv := range invs {
		if _, ok := iv.Type.Code(); !ok {
			return errors.NewMessageInvalidError("[%s] unknown inventory type %d", cmd, iv.Type)
		}
	}

	return nil
}

func invListPayload(invs []InvVect) []byte {
	b := make([]byte, 0, CompactSizeLen(uint64(len(invs)))+len(invs)*InvVectSize)
	b = AppendCompactSize(b, uint64(len(invs)))

	for _, iv := range invs {
		enc := iv.Encode()
		b = append(b, enc[:]...)
	}

	return b
}

func parseInvList(cmd Command, payload []byte) ([]InvVect, error) {
	r := newPayloadReader(cmd, payload)

	count, err := r.readCount("inventory count", MaxInvPerMsg, InvVectSize)
	if err != nil {
		return nil, err
	}

	var invs []InvVect
	if count > 0 {
		invs = make([]InvVect, count)
	}

	for i := range invs {
		b, _ := r.next(InvVectSize, "inventory vector")

		if invs[i], err = DecodeInvVect(b); err != nil {
			return nil, errors.NewMessageInvalidError("[%s] inventory vector %d", cmd, i, err)
		}
	}

	return invs, r.done()
}

func parseMsgInv(payload []byte) (MsgInv, error) {
	invs, err := parseInvList(CmdInv, payload)
	return MsgInv{InvList: invs}, err
}

func parseMsgGetData(payload []byte) (MsgGetData, error) {
	invs, err := parseInvList(CmdGetData, payload)
	return MsgGetData{InvList: invs}, err
}

func parseMsgNotFound(payload []byte) (MsgNotFound, error) {
	invs, err := parseInvList(CmdNotFound, payload)
	return MsgNotFound{InvList: invs}, err
}
