package wire

// MsgPing carries a nonce the remote echoes back in a pong.
type MsgPing struct {
	Nonce uint64
}

// MsgPong answers a ping with the same nonce.
type MsgPong struct {
	Nonce uint64
}

func NewMsgPing(nonce uint64) MsgPing { return MsgPing{Nonce: nonce} }
func NewMsgPong(nonce uint64) MsgPong { return MsgPong{Nonce: nonce} }

func (msg MsgPing) Command() Command { return CmdPing }
func (msg MsgPong) Command() Command { return CmdPong }

func (msg MsgPing) Payload() []byte { return appendUint64(nil, msg.Nonce) }
func (msg MsgPong) Payload() []byte { return appendUint64(nil, msg.Nonce) }

func parseNonce(cmd Command, payload []byte) (uint64, error) {
	r := newPayloadReader(cmd, payload)

	nonce, err := r.readUint64("nonce")
	if err != nil {
		return 0, err
	}

	return nonce, r.done()
}

func parseMsgPing(payload []byte) (MsgPing, error) {
	nonce, err := parseNonce(CmdPing, payload)
	return MsgPing{Nonce: nonce}, err
}

func parseMsgPong(payload []byte) (MsgPong, error) {
	nonce, err := parseNonce(CmdPong, payload)
	return MsgPong{Nonce: nonce}, err
}
