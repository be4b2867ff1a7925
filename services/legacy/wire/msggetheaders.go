package wire

import (
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/legacy-p2p/errors"
)

// MaxBlockLocatorsPerMsg is the maximum number of locator hashes in a
// getheaders or getblocks message.
const MaxBlockLocatorsPerMsg = 500

// MsgGetHeaders asks for headers following the first locator hash the remote
// knows, up to HashStop. A zero HashStop asks for as many as the remote has.
type MsgGetHeaders struct {
	ProtocolVersion    uint32
	BlockLocatorHashes []chainhash.Hash
	HashStop           chainhash.Hash
}

// MsgGetBlocks has the same layout as MsgGetHeaders and is answered with inv.
type MsgGetBlocks struct {
	ProtocolVersion    uint32
	BlockLocatorHashes []chainhash.Hash
	HashStop           chainhash.Hash
}

func NewMsgGetHeaders(locator []chainhash.Hash, hashStop *chainhash.Hash) MsgGetHeaders {
	msg := MsgGetHeaders{ProtocolVersion: ProtocolVersion, BlockLocatorHashes: locator}
	if hashStop != nil {
		msg.HashStop = *hashStop
	}

	return msg
}

func NewMsgGetBlocks(locator []chainhash.Hash, hashStop *chainhash.Hash) MsgGetBlocks {
	msg := MsgGetBlocks{ProtocolVersion: ProtocolVersion, BlockLocatorHashes: locator}
	if hashStop != nil {
		msg.HashStop = *hashStop
	}

	return msg
}

func (msg MsgGetHeaders) Command() Command { return CmdGetHeaders }
func (msg MsgGetBlocks) Command() Command  { return CmdGetBlocks }

func (msg MsgGetHeaders) validate() error {
	return validateLocator(CmdGetHeaders, msg.BlockLocatorHashes)
}

func (msg MsgGetBlocks) validate() error {
	return validateLocator(CmdGetBlocks, msg.BlockLocatorHashes)
}

func (msg MsgGetHeaders) Payload() []byte {
	return locatorPayload(msg.ProtocolVersion, msg.BlockLocatorHashes, msg.HashStop)
}

func (msg MsgGetBlocks) Payload() []byte {
	return locatorPayload(msg.ProtocolVersion, msg.BlockLocatorHashes, msg.HashStop)
}

func validateLocator(cmd Command, locator []chainhash.Hash) error {
	if len(locator) > MaxBlockLocatorsPerMsg {
		return errors.NewMessageInvalidError("[%s] %d locator hashes, max %d", cmd, len(locator), MaxBlockLocatorsPerMsg)
	}

	return nil
}

func locatorPayload(pver uint32, locator []chainhash.Hash, stop chainhash.Hash) []byte {
	b := make([]byte, 0, 4+CompactSizeLen(uint64(len(locator)))+(len(locator)+1)*HashSize)
	b = appendUint32(b, pver)
	b = appendHashes(b, locator)

	return append(b, stop[:]...)
}

func parseLocator(cmd Command, payload []byte) (pver uint32, locator []chainhash.Hash, stop chainhash.Hash, err error) {
	r := newPayloadReader(cmd, payload)

	if pver, err = r.readUint32("protocol version"); err != nil {
		return
	}

	if locator, err = r.readHashes("locator count", MaxBlockLocatorsPerMsg); err != nil {
		return
	}

	if stop, err = r.readHash("stop hash"); err != nil {
		return
	}

	err = r.done()

	return
}

func parseMsgGetHeaders(payload []byte) (MsgGetHeaders, error) {
	pver, locator, stop, err := parseLocator(CmdGetHeaders, payload)
	return MsgGetHeaders{ProtocolVersion: pver, BlockLocatorHashes: locator, HashStop: stop}, err
}

func parseMsgGetBlocks(payload []byte) (MsgGetBlocks, error) {
	pver, locator, stop, err := parseLocator(CmdGetBlocks, payload)
	return MsgGetBlocks{ProtocolVersion: pver, BlockLocatorHashes: locator, HashStop: stop}, err
}
