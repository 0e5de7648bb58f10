package events

import (
	"errors"
	"sync"

	"go.uber.org/zap"
)

// Sink receives the records an engine commits.
type Sink interface {
	PutEvents(records []Record) error
}

// Nop drops everything.
type Nop struct{}

func (Nop) PutEvents([]Record) error { return nil }

// ZapSink logs every record at debug level.
type ZapSink struct {
	logger *zap.Logger
}

func NewZapSink(logger *zap.Logger) *ZapSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapSink{logger: logger}
}

func (s *ZapSink) PutEvents(records []Record) error {
	for _, r := range records {
		s.logger.Debug("event",
			zap.Uint64("seq", r.Seq),
			zap.String("pool", r.Pool.String()),
			zap.Uint64("timestamp", r.Timestamp),
			zap.String("name", r.EventName),
			zap.Any("data", r.Data),
		)
	}
	return nil
}

// Recorder keeps records in memory.
type Recorder struct {
	mu      sync.Mutex
	records []Record
}

func (r *Recorder) PutEvents(records []Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, records...)
	return nil
}

func (r *Recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Record(nil), r.records...)
}

// Names lists the event names in emission order.
func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.records))
	for _, rec := range r.records {
		names = append(names, rec.EventName)
	}
	return names
}

// Last returns the most recent event called name.
func (r *Recorder) Last(name string) (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.records) - 1; i >= 0; i-- {
		if r.records[i].EventName == name {
			return r.records[i].Data, true
		}
	}
	return nil, false
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = nil
}

type multi []Sink

// Multi fans records out to every sink and joins their errors.
func Multi(sinks ...Sink) Sink {
	return multi(sinks)
}

func (m multi) PutEvents(records []Record) error {
	var errs []error
	for _, s := range m {
		if err := s.PutEvents(records); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
