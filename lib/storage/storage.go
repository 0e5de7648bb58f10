package storage

import (
	"github.com/ftchann/clmm-simulator/lib/events"
)

// Storage is a sink for engine events that can also keep replay results.
type Storage interface {
	events.Sink
	PutResult(v any) error
}
