package relay

import (
	"fmt"

	"github.com/teslashibe/go-fixate/pkg/xy"
)

// Device polls one tracker's latest sample. A sample is new when the
// tracker's sequence number advanced since the previous ReadSample.
type Device struct {
	hub     *Hub
	id      string
	lastSeq uint64
}

var _ xy.Device = (*Device)(nil)

// Device returns a pollable device for the tracker id. The tracker does not
// have to be connected yet.
func (h *Hub) Device(id string) *Device {
	return &Device{hub: h, id: id}
}

// ID returns the tracker id.
func (d *Device) ID() string { return d.id }

// NewSampleAvailable reports whether an unread sample is waiting. Before the
// tracker first connects it reports false; once it has connected and gone
// away it returns ErrTrackerOffline.
func (d *Device) NewSampleAvailable() (bool, error) {
	d.hub.mu.RLock()
	defer d.hub.mu.RUnlock()
	tr, ok := d.hub.trackers[d.id]
	if !ok {
		return false, nil
	}
	if !tr.online {
		return false, fmt.Errorf("%w: %s", ErrTrackerOffline, d.id)
	}
	return tr.seq > d.lastSeq, nil
}

// ReadSample returns the latest sample and marks it read.
func (d *Device) ReadSample() (x, y float64, valid bool, err error) {
	d.hub.mu.RLock()
	defer d.hub.mu.RUnlock()
	tr, ok := d.hub.trackers[d.id]
	if !ok {
		return 0, 0, false, fmt.Errorf("%w: %s", ErrUnknownTracker, d.id)
	}
	d.lastSeq = tr.seq
	s := tr.sample
	return s.X, s.Y, s.Valid, nil
}
