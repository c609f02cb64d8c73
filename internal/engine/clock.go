package engine

import "time"

// Clock abstracts time for the availability cache so TTL expiry is
// deterministic in tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func NewRealClock() Clock { return realClock{} }
