package designer

// FallbackState is the phase of a Fallback.
type FallbackState int

const (
	FallbackTrying FallbackState = iota
	FallbackSucceeded
	FallbackExhausted
)

func (s FallbackState) String() string {
	switch s {
	case FallbackTrying:
		return "trying"
	case FallbackSucceeded:
		return "succeeded"
	case FallbackExhausted:
		return "exhausted"
	}
	return "unknown"
}

// Fallback walks an ordered region set after load failures. It never revisits a
// region recorded in its attempt log, and it halts on the first success.
// Not safe for concurrent use; the controller guards it.
type Fallback struct {
	regions  RegionSet
	current  Region
	state    FallbackState
	attempts []Region
}

func NewFallback(regions RegionSet, start Region) *Fallback {
	return &Fallback{regions: regions, current: start}
}

// Current is the region being tried, or the sticky region after success.
func (f *Fallback) Current() Region { return f.current }

func (f *Fallback) State() FallbackState { return f.state }

// Attempts returns the regions that failed, in order.
func (f *Fallback) Attempts() []Region {
	out := make([]Region, len(f.attempts))
	copy(out, f.attempts)
	return out
}

// Succeed halts the machine; Current stays fixed from here on.
func (f *Fallback) Succeed() {
	if f.state == FallbackTrying {
		f.state = FallbackSucceeded
	}
}

// Fail records the current region as failed and advances to its successor when
// one exists and has not been tried. ok is false once the machine is exhausted
// (or was not trying to begin with).
func (f *Fallback) Fail() (next Region, ok bool) {
	if f.state != FallbackTrying {
		return "", false
	}
	failed := f.current
	f.attempts = append(f.attempts, failed)
	succ, has := f.regions.Successor(failed)
	if !has || f.tried(succ) {
		f.state = FallbackExhausted
		return "", false
	}
	f.current = succ
	return succ, true
}

func (f *Fallback) tried(r Region) bool {
	for _, a := range f.attempts {
		if a == r {
			return true
		}
	}
	return false
}
