package pass

import "fmt"

// OnCreate bumps the counters for a freshly created token. Creation is the only
// event that moves the counters upward; transfers never touch them.
func (s *Supply) OnCreate(level uint8) error {
	if s == nil {
		return fmt.Errorf("pass: supply counters not initialised")
	}
	if level < MinLevel || level > MaxLevel {
		return fmt.Errorf("%w: level %d out of range", ErrInvalidParameters, level)
	}
	s.PerLevel[level-1]++
	s.Total++
	return nil
}

// OnDestroy decrements the counters for a destroyed token. An underflow means
// the counters diverged from the set of live tokens, which is an internal
// invariant breach and never caller-correctable.
func (s *Supply) OnDestroy(level uint8) error {
	if s == nil {
		return fmt.Errorf("pass: supply counters not initialised")
	}
	if level < MinLevel || level > MaxLevel {
		return fmt.Errorf("%w: level %d out of range", ErrInvalidParameters, level)
	}
	if s.PerLevel[level-1] == 0 || s.Total == 0 {
		return fmt.Errorf("%w: level %d underflow", ErrInsufficientSupply, level)
	}
	s.PerLevel[level-1]--
	s.Total--
	return nil
}

// CanReachLevel reports whether an upgrade producing a token at toLevel is
// admissible under the proportional caps at this instant. Levels 2-4 are never
// capped. Levels 5 and 6 require the live count to sit strictly below
// total*capPct/100 with floor division, so a tie rejects. Any other target is
// inadmissible.
func (s *Supply) CanReachLevel(toLevel uint8, level5CapPct, level6CapPct uint64) bool {
	if s == nil {
		return false
	}
	switch {
	case toLevel >= 2 && toLevel <= 4:
		return true
	case toLevel == 5:
		return s.PerLevel[4] < s.Total*level5CapPct/100
	case toLevel == 6:
		return s.PerLevel[5] < s.Total*level6CapPct/100
	default:
		return false
	}
}

// CheckInvariant verifies total == sum(perLevel). It backs tests and the
// startup sanity pass; a failure carries the same severity as OnDestroy
// underflow.
func (s *Supply) CheckInvariant() error {
	if s == nil {
		return fmt.Errorf("pass: supply counters not initialised")
	}
	var sum uint64
	for _, count := range s.PerLevel {
		sum += count
	}
	if sum != s.Total {
		return fmt.Errorf("%w: total %d != per-level sum %d", ErrInsufficientSupply, s.Total, sum)
	}
	return nil
}
