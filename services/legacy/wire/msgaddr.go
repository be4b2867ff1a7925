package wire

import (
	"github.com/bsv-blockchain/legacy-p2p/errors"
)

// MsgAddr relays known peer addresses.
type MsgAddr struct {
	AddrList []NetAddress
}

func NewMsgAddr(addrs ...NetAddress) MsgAddr { return MsgAddr{AddrList: addrs} }

func (msg MsgAddr) Command() Command { return CmdAddr }

func (msg MsgAddr) validate() error {
	if len(msg.AddrList) > MaxAddrPerMsg {
		return errors.NewMessageInvalidError("[addr] %d addresses, max %d", len(msg.AddrList), MaxAddrPerMsg)
	}

	return nil
}

func (msg MsgAddr) Payload() []byte {
	b := make([]byte, 0, CompactSizeLen(uint64(len(msg.AddrList)))+len(msg.AddrList)*(netAddressSize+4))
	b = AppendCompactSize(b, uint64(len(msg.AddrList)))

	for _, na := range msg.AddrList {
		b = na.appendTo(b, true)
	}

	return b
}

func parseMsgAddr(payload []byte) (MsgAddr, error) {
	var msg MsgAddr

	r := newPayloadReader(CmdAddr, payload)

	count, err := r.readCount("address count", MaxAddrPerMsg, netAddressSize+4)
	if err != nil {
		return msg, err
	}

	if count > 0 {
		msg.AddrList = make([]NetAddress, count)
	}

	for i := range msg.AddrList {
		if msg.AddrList[i], err = r.readNetAddress("address", true); err != nil {
			return msg, err
		}
	}

	return msg, r.done()
}
