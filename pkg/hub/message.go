// Package hub is a channel-based websocket broadcast hub used by the live
// monitor to fan out status, events and gaze snapshots.
package hub

import "github.com/teslashibe/go-fixate/pkg/protocol"

// Message is one encoded JSON document. Clients receive it as a text frame.
type Message []byte

// NewMessage encodes a protocol envelope for broadcast.
func NewMessage(msg *protocol.Message) (Message, error) {
	b, err := msg.Bytes()
	if err != nil {
		return nil, err
	}
	return Message(b), nil
}
