package logging

// ProgressSampler thins per-chunk upload progress down to one record per
// step-sized band. The first report and completion are always kept.
type ProgressSampler struct {
	step     float64
	lastBand int
	done     bool
}

// NewProgressSampler returns a sampler with bands of step percent (default 10).
func NewProgressSampler(step float64) *ProgressSampler {
	if step <= 0 || step > 100 {
		step = 10
	}
	return &ProgressSampler{step: step, lastBand: -1}
}

// Allow reports whether progress at percent should be logged. A nil sampler
// allows everything.
func (s *ProgressSampler) Allow(percent float64) bool {
	if s == nil {
		return true
	}
	if percent < 0 || s.done {
		return false
	}
	if percent >= 100 {
		s.done = true
		return true
	}
	band := int(percent / s.step)
	if band <= s.lastBand {
		return false
	}
	s.lastBand = band
	return true
}
