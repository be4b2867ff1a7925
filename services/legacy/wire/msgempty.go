package wire

import (
	"github.com/bsv-blockchain/legacy-p2p/errors"
)

// MsgVerAck acknowledges a version message.
type MsgVerAck struct{}

// MsgGetAddr asks for known peer addresses.
type MsgGetAddr struct{}

// MsgMemPool asks for the remote mempool as inv.
type MsgMemPool struct{}

// MsgSendHeaders asks for new blocks to be announced with headers instead of inv.
type MsgSendHeaders struct{}

// MsgFilterClear removes a loaded bloom filter.
type MsgFilterClear struct{}

func (MsgVerAck) Command() Command      { return CmdVerAck }
func (MsgGetAddr) Command() Command     { return CmdGetAddr }
func (MsgMemPool) Command() Command     { return CmdMemPool }
func (MsgSendHeaders) Command() Command { return CmdSendHeaders }
func (MsgFilterClear) Command() Command { return CmdFilterClear }

func (MsgVerAck) Payload() []byte      { return nil }
func (MsgGetAddr) Payload() []byte     { return nil }
func (MsgMemPool) Payload() []byte     { return nil }
func (MsgSendHeaders) Payload() []byte { return nil }
func (MsgFilterClear) Payload() []byte { return nil }

func checkEmpty(cmd Command, payload []byte) error {
	if len(payload) != 0 {
		return errors.NewMessageInvalidError("[%s] expected empty payload, got %d bytes", cmd, len(payload))
	}

	return nil
}

func parseMsgVerAck(payload []byte) (MsgVerAck, error) {
	return MsgVerAck{}, checkEmpty(CmdVerAck, payload)
}

func parseMsgGetAddr(payload []byte) (MsgGetAddr, error) {
	return MsgGetAddr{}, checkEmpty(CmdGetAddr, payload)
}

func parseMsgMemPool(payload []byte) (MsgMemPool, error) {
	return MsgMemPool{}, checkEmpty(CmdMemPool, payload)
}

func parseMsgSendHeaders(payload []byte) (MsgSendHeaders, error) {
	return MsgSendHeaders{}, checkEmpty(CmdSendHeaders, payload)
}

func parseMsgFilterClear(payload []byte) (MsgFilterClear, error) {
	return MsgFilterClear{}, checkEmpty(CmdFilterClear, payload)
}
