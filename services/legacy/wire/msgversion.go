package wire

import (
	"fmt"

	"github.com/bsv-blockchain/legacy-p2p/errors"
)

// MaxUserAgentLen is the maximum length of the user agent string.
const MaxUserAgentLen = 256

// minVersionPayload is every fixed field up to and including start height.
const minVersionPayload = 4 + 8 + 8 + netAddressSize + netAddressSize + 8 + 1 + 4

// MsgVersion opens the handshake. Relay is true when the optional trailing relay
// byte is absent.
type MsgVersion struct {
	ProtocolVersion int32
	Services        ServiceFlag
	Timestamp       int64
	AddrRecv        NetAddress
	AddrFrom        NetAddress
	Nonce           uint64
	UserAgent       string
	StartHeight     int32
	Relay           bool
}

func NewMsgVersion(me, you NetAddress, nonce uint64, startHeight int32, timestamp int64) MsgVersion {
	return MsgVersion{
		ProtocolVersion: int32(ProtocolVersion),
		Services:        me.Services,
		Timestamp:       timestamp,
		AddrRecv:        you,
		AddrFrom:        me,
		Nonce:           nonce,
		StartHeight:     startHeight,
		Relay:           true,
	}
}

// UserAgentString formats name/version the way BIP14 shows it.
func UserAgentString(name, version string, comments ...string) string {
	ua := fmt.Sprintf("/%s:%s", name, version)
	if len(comments) > 0 {
		ua += "(" + comments[0]
		for _, c := range comments[1:] {
			ua += "; " + c
		}

		ua += ")"
	}

	return ua + "/"
}

func (msg MsgVersion) Command() Command { return CmdVersion }

func (msg MsgVersion) validate() error {
	if len(msg.UserAgent) > MaxUserAgentLen {
		return errors.NewMessageInvalidError("[version] user agent is %d bytes, max %d", len(msg.UserAgent), MaxUserAgentLen)
	}

	return nil
}

func (msg MsgVersion) Payload() []byte {
	b := make([]byte, 0, minVersionPayload+len(msg.UserAgent)+CompactSizeLen(uint64(len(msg.UserAgent))))
	b = appendUint32(b, uint32(msg.ProtocolVersion))
	b = appendUint64(b, uint64(msg.Services))
	b = appendUint64(b, uint64(msg.Timestamp))
	b = msg.AddrRecv.appendTo(b, false)
	b = msg.AddrFrom.appendTo(b, false)
	b = appendUint64(b, msg.Nonce)
	b = appendVarBytes(b, []byte(msg.UserAgent))
	b = appendUint32(b, uint32(msg.StartHeight))

	if msg.Relay {
		return append(b, 1)
	}

	return append(b, 0)
}

func parseMsgVersion(payload []byte) (MsgVersion, error) {
	var (
		msg MsgVersion
		err error
	)

	r := newPayloadReader(CmdVersion, payload)
	if err = r.need(minVersionPayload, "version"); err != nil {
		return msg, err
	}

	msg.ProtocolVersion, _ = r.readInt32("protocol version")
	services, _ := r.readUint64("services")
	msg.Services = ServiceFlag(services)
	msg.Timestamp, _ = r.readInt64("timestamp")
	msg.AddrRecv, _ = r.readNetAddress("addr_recv", false)
	msg.AddrFrom, _ = r.readNetAddress("addr_from", false)
	msg.Nonce, _ = r.readUint64("nonce")

	if msg.UserAgent, err = r.readVarString("user agent", MaxUserAgentLen); err != nil {
		return msg, err
	}

	if msg.StartHeight, err = r.readInt32("start height"); err != nil {
		return msg, err
	}

	msg.Relay = true

	if r.remaining() > 0 {
		relay, _ := r.readUint8("relay")
		msg.Relay = relay != 0
	}

	return msg, r.done()
}
