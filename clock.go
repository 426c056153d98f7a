package ledger

import "time"

// Clock supplies ledger time. Every timestamp the engine writes comes from
// here, and audit validation measures entries against it. Height is a
// monotonic position in the ledger's history; the system clock derives it
// from wall time at second granularity.
type Clock interface {
	Now() time.Time
	Height() uint64
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Height() uint64 { return uint64(time.Now().Unix()) }
