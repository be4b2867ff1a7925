package peer

import (
	"github.com/looplab/fsm"
)

// State is the connection state of a peer.
type State string

const (
	StateConnecting   State = "connecting"
	StateHandshaking  State = "handshaking"
	StateVerifying    State = "verifying"
	StateSteady       State = "steady"
	StateDisconnected State = "disconnected"
)

func (s State) String() string {
	return string(s)
}

const (
	eventHandshake  = "handshake"
	eventVerify     = "verify"
	eventSteady     = "steady"
	eventDisconnect = "disconnect"
)

// newPeerFSM creates the state machine of one connection:
// - connecting -> handshaking once the socket is associated and version is queued
// - handshaking -> verifying when both veracks are done and verification is on
// - handshaking or verifying -> steady
// - any live state -> disconnected
func newPeerFSM() *fsm.FSM {
	return fsm.NewFSM(
		StateConnecting.String(),
		fsm.Events{
			{
				Name: eventHandshake,
				Src:  []string{StateConnecting.String()},
				Dst:  StateHandshaking.String(),
			},
			{
				Name: eventVerify,
				Src:  []string{StateHandshaking.String()},
				Dst:  StateVerifying.String(),
			},
			{
				Name: eventSteady,
				Src: []string{
					StateHandshaking.String(),
					StateVerifying.String(),
				},
				Dst: StateSteady.String(),
			},
			{
				Name: eventDisconnect,
				Src: []string{
					StateConnecting.String(),
					StateHandshaking.String(),
					StateVerifying.String(),
					StateSteady.String(),
				},
				Dst: StateDisconnected.String(),
			},
		},
		fsm.Callbacks{},
	)
}
