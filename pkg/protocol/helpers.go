package protocol

import "time"

// NewSampleMessage creates a gaze sample message
func NewSampleMessage(x, y float64, valid bool, seq uint64) (*Message, error) {
	return NewMessage(TypeSample, SampleData{X: x, Y: y, Valid: valid, Seq: seq})
}

// NewEventMessage creates a state transition message
func NewEventMessage(e EventData) (*Message, error) {
	return NewMessage(TypeEvent, e)
}

// NewGazeMessage creates a gaze snapshot message
func NewGazeMessage(g GazeData) (*Message, error) {
	return NewMessage(TypeGaze, g)
}

// NewPingMessage creates a ping message stamped with the current time
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{ID: id, Timestamp: time.Now().UnixMilli()})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// Pong builds the response to a ping message.
func (m *Message) Pong() (*Message, error) {
	ping, err := m.GetPingData()
	if err != nil {
		return nil, err
	}
	return NewPongMessage(ping.ID, ping.Timestamp, time.Now().UnixMilli())
}

// GetSampleData extracts sample data from a message
func (m *Message) GetSampleData() (*SampleData, error) {
	var data SampleData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetEventData extracts event data from a message
func (m *Message) GetEventData() (*EventData, error) {
	var data EventData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetGazeData extracts gaze data from a message
func (m *Message) GetGazeData() (*GazeData, error) {
	var data GazeData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data from a message
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
