package signal

// Pattern periodically replaces the number of P waves or QRS complexes in a
// beat. Every Interval-th beat uses Count instead of the default.
type Pattern struct {
	Enabled  bool `json:"enabled"`
	Count    int  `json:"count"`
	Interval int  `json:"interval"`
}

// active reports whether the pattern can fire. A non-positive interval or a
// negative count turns the pattern off. A count of zero is valid and drops
// the wave for that beat.
func (p Pattern) active() bool {
	return p.Enabled && p.Interval > 0 && p.Count >= 0
}

// BeatConfig is everything the resolver needs to pick the next beat.
type BeatConfig struct {
	Base ParameterSet `json:"params"`

	// Custom beats are played in order, then RepeatInterval normal beats,
	// then the queue starts over.
	CustomEnabled  bool         `json:"custom_enabled"`
	CustomBeats    []CustomBeat `json:"custom_beats"`
	RepeatInterval int          `json:"repeat_interval"`

	PPattern Pattern `json:"p_pattern"`
	RPattern Pattern `json:"r_pattern"`
}

// DefaultBeatConfig returns the default parameters with every pattern
// disabled. The pattern defaults match the editor's initial values.
func DefaultBeatConfig() BeatConfig {
	return BeatConfig{
		Base:           DefaultParams(),
		RepeatInterval: 10,
		PPattern:       Pattern{Count: 0, Interval: 3},
		RPattern:       Pattern{Count: 2, Interval: 5},
	}
}

// CyclingState carries the beat counters from one cycle to the next.
type CyclingState struct {
	RCycle        int `json:"r_cycle"`
	PCycle        int `json:"p_cycle"`
	Beats         int `json:"beats"`
	CustomIdx     int `json:"custom_idx"`
	WaitingNormal int `json:"waiting_normal"`
}

// Beat is the resolved description of the next cycle.
type Beat struct {
	Params ParameterSet
	PCount int
	RCount int
	Custom bool
}

// ResolveNextBeat picks the effective parameters and wave counts for the
// next cycle. The custom beat queue, the P pattern and the R pattern are
// applied independently: a custom beat decides the parameter set, the
// patterns decide the wave counts.
func ResolveNextBeat(cfg BeatConfig, state CyclingState) (Beat, CyclingState) {
	beat := Beat{Params: cfg.Base}

	if cfg.CustomEnabled {
		if state.CustomIdx >= len(cfg.CustomBeats) {
			state.CustomIdx = 0
		}
		switch {
		case len(cfg.CustomBeats) > 0 && state.WaitingNormal <= 0:
			beat.Params = cfg.CustomBeats[state.CustomIdx].Merge(cfg.Base)
			beat.Custom = true
			state.CustomIdx++
			if state.CustomIdx >= len(cfg.CustomBeats) {
				state.CustomIdx = 0
				state.WaitingNormal = max(cfg.RepeatInterval, 0)
			}
		case state.WaitingNormal > 0:
			state.WaitingNormal--
		}
	}
	beat.Params = beat.Params.Sanitize()

	beat.PCount = beat.Params.PWaves
	if cfg.PPattern.active() {
		state.PCycle++
		if state.PCycle >= cfg.PPattern.Interval {
			beat.PCount = cfg.PPattern.Count
			state.PCycle = 0
		}
	}

	beat.RCount = 1
	if cfg.RPattern.active() {
		state.RCycle++
		if state.RCycle >= cfg.RPattern.Interval {
			beat.RCount = cfg.RPattern.Count
			state.RCycle = 0
		}
	}

	state.Beats++
	return beat, state
}
