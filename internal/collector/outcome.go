package collector

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/solarflux/solarflux/internal/reading"
)

// State is the collector's position inside a cycle.
type State int

const (
	StateWaiting State = iota
	StateFetching
	StateParsing
	StateNormalizing
	StateWriting
	StateReporting
)

func (s State) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StateFetching:
		return "fetching"
	case StateParsing:
		return "parsing"
	case StateNormalizing:
		return "normalizing"
	case StateWriting:
		return "writing"
	case StateReporting:
		return "reporting"
	}
	return "unknown"
}

// Outcome summarizes one finished cycle.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeFetchFailed
	OutcomeParseFailed
	OutcomeWriteFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFetchFailed:
		return "fetch_failed"
	case OutcomeParseFailed:
		return "parse_failed"
	case OutcomeWriteFailed:
		return "write_failed"
	}
	return "unknown"
}

// CycleRecord is what one cycle leaves behind for reporting.
type CycleRecord struct {
	ID       uuid.UUID
	Start    time.Time
	Duration time.Duration
	Outcome  Outcome
	Stage    State // stage the cycle failed in; StateReporting on success
	Err      error // nil on success
}

// Fetcher retrieves the raw status payload from the device.
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// Writer persists one normalized reading.
type Writer interface {
	Write(ctx context.Context, r *reading.Reading) error
}

// Reporter receives finished cycle records.
type Reporter interface {
	Record(rec CycleRecord)
}
