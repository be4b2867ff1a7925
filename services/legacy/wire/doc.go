// Package wire implements the Bitcoin P2P wire protocol: the message frame,
// CompactSize integers, inventory vectors and one typed value per command.
//
// Codecs are pure functions over byte slices. ParseMessage verifies the frame
// checksum and dispatches on the command, Encode builds a frame from scratch.
package wire
