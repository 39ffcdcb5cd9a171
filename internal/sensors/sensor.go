package sensors

import (
	"fmt"
	"log"

	"github.com/maxstorage/maxstorage-bridge/internal/maxstorage"
)

// UpdateSource is the slice of the coordinator a sensor needs: the latest
// snapshot, an update subscription and the device identity token.
type UpdateSource interface {
	LatestSnapshot() (maxstorage.Snapshot, bool)
	Subscribe(listener func()) func()
	DeviceIdent() string
}

// Unknown is what CurrentValue returns before the update source has
// completed a single successful poll. It is a value, not an error, so hosts
// can publish it like any other state.
var Unknown = unknownValue{}

type unknownValue struct{}

func (unknownValue) String() string { return "unknown" }

// Sensor binds one descriptor to one device's update stream. It holds no
// derived state of its own; every read recomputes from the latest snapshot.
type Sensor struct {
	descriptor  Descriptor
	source      UpdateSource
	unsubscribe func()
}

func New(descriptor Descriptor, source UpdateSource) *Sensor {
	return &Sensor{
		descriptor: descriptor,
		source:     source,
	}
}

func (s *Sensor) Descriptor() Descriptor {
	return s.descriptor
}

func (s *Sensor) UniqueID() string {
	return fmt.Sprintf("%s_%s", s.source.DeviceIdent(), s.descriptor.Key)
}

// CurrentValue projects the latest snapshot through the descriptor. A
// MissingFieldError from the projection propagates so the host can mark this
// one sensor unavailable without touching its siblings.
func (s *Sensor) CurrentValue() (interface{}, error) {
	snapshot, ok := s.source.LatestSnapshot()
	if !ok {
		return Unknown, nil
	}
	return s.descriptor.ValueFn(snapshot)
}

func (s *Sensor) CurrentAttributes() map[string]interface{} {
	snapshot, ok := s.source.LatestSnapshot()
	if !ok || s.descriptor.AttrFn == nil {
		return map[string]interface{}{}
	}
	attributes, err := s.descriptor.AttrFn(snapshot)
	if err != nil || attributes == nil {
		return map[string]interface{}{}
	}
	return attributes
}

// Bind subscribes the sensor to its update source and invokes publish
// synchronously on every notification, with no coalescing. Binding a sensor
// twice is a programming error.
func (s *Sensor) Bind(publish func(*Sensor)) {
	if s.unsubscribe != nil {
		log.Panicf("sensor %s bound twice", s.UniqueID())
	}
	s.unsubscribe = s.source.Subscribe(func() {
		publish(s)
	})
}

// Close releases the subscription. Safe to call on an unbound sensor.
func (s *Sensor) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}
