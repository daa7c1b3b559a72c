package signal

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNonAdvancingCycle is returned when a beat's breadths, segments and
	// wave counts add up to zero, so sampling would never move forward.
	ErrNonAdvancingCycle = errors.New("non-advancing cycle")

	// ErrInvalidStep is returned for a sampling step that is not positive.
	ErrInvalidStep = errors.New("invalid sample step")

	// ErrHeartRate is returned by Validate for a heart rate above
	// MaxHeartRate.
	ErrHeartRate = errors.New("heart rate out of range")
)

// Sample is one amplitude value at time T (seconds from the start of a run).
type Sample struct {
	T         float64 `json:"t"`
	Amplitude float64 `json:"v"`
}

// Wave identifies a wave type. The order of the constants is the precedence
// used when pulses overlap.
type Wave int

const (
	WaveP Wave = iota
	WaveQ
	WaveR
	WaveS
	WaveT
)

func (w Wave) String() string {
	switch w {
	case WaveP:
		return "P"
	case WaveQ:
		return "Q"
	case WaveR:
		return "R"
	case WaveS:
		return "S"
	case WaveT:
		return "T"
	}
	return "unknown"
}

type window struct {
	wave    Wave
	onset   float64
	breadth float64
	height  float64
}

// Synthesize samples one cardiac cycle starting at start, every step
// seconds. Durations are scaled so the cycle lasts exactly one heart period
// whatever the P and QRS counts are. It returns the samples and the cycle
// duration.
func Synthesize(p ParameterSet, pCount, rCount int, start, step float64) ([]Sample, float64, error) {
	if !(step > 0) || math.IsInf(step, 0) {
		return nil, 0, ErrInvalidStep
	}
	p = p.Sanitize()
	pCount = max(pCount, 0)
	rCount = max(rCount, 0)

	unscaled := unscaledLength(p, pCount, rCount)
	if !(unscaled > 0) {
		return nil, 0, ErrNonAdvancingCycle
	}

	sf := p.HeartPeriod() / unscaled
	bp, lpq := p.BP*sf, p.LPQ*sf
	bq, br, bs := p.BQ*sf, p.BR*sf, p.BS*sf
	lst, bt, ltp := p.LST*sf, p.BT*sf, p.LTP*sf

	duration := float64(pCount)*(bp+lpq) + lst + bt + ltp
	if rCount > 0 {
		duration += bq + br + bs
	}

	windows := layout(p, pCount, rCount, start, [8]float64{bp, lpq, bq, br, bs, lst, bt, ltp})

	end := start + duration
	n := int(math.Ceil(duration/step)) + 1
	out := make([]Sample, 0, n)
	for i := 0; ; i++ {
		t := start + float64(i)*step
		if t >= end {
			break
		}
		out = append(out, Sample{T: t, Amplitude: amplitudeAt(windows, t)})
	}
	return out, duration, nil
}

// unscaledLength is the cycle length before it is fitted to the heart
// period. Only the first QRS complex counts towards it.
func unscaledLength(p ParameterSet, pCount, rCount int) float64 {
	qrs := 0.0
	if rCount > 0 {
		qrs = p.BQ + p.BR + p.BS
	}
	return float64(pCount)*(p.BP+p.LPQ) + qrs + p.LST + p.BT + p.LTP
}

// Validate reports the first beat of cfg that could never advance or that
// beats faster than MaxHeartRate. The base set and every custom beat are
// checked with each P and QRS count the patterns can produce.
func Validate(cfg BeatConfig) error {
	type candidate struct {
		name string
		p    ParameterSet
	}
	sets := []candidate{{"base beat", cfg.Base}}
	if cfg.CustomEnabled {
		for i, b := range cfg.CustomBeats {
			sets = append(sets, candidate{fmt.Sprintf("custom beat %d", i+1), b.Merge(cfg.Base)})
		}
	}
	for _, c := range sets {
		p := c.p.Sanitize()
		if p.HeartRate > MaxHeartRate {
			return fmt.Errorf("%s at %g bpm: %w", c.name, p.HeartRate, ErrHeartRate)
		}
		pCounts, rCounts := []int{p.PWaves}, []int{1}
		if cfg.PPattern.active() {
			pCounts = append(pCounts, cfg.PPattern.Count)
		}
		if cfg.RPattern.active() {
			rCounts = append(rCounts, cfg.RPattern.Count)
		}
		for _, pc := range pCounts {
			for _, rc := range rCounts {
				if !(unscaledLength(p, pc, rc) > 0) {
					return fmt.Errorf("%s with %d P and %d QRS: %w", c.name, pc, rc, ErrNonAdvancingCycle)
				}
			}
		}
	}
	return nil
}

// layout places every pulse of the cycle left to right. The scaled
// durations are passed in the order bp, lpq, bq, br, bs, lst, bt, ltp.
func layout(p ParameterSet, pCount, rCount int, start float64, d [8]float64) []window {
	bp, lpq, bq, br, bs, lst, bt := d[0], d[1], d[2], d[3], d[4], d[5], d[6]

	ws := make([]window, 0, pCount+3*rCount+1)
	off := start
	for i := 0; i < pCount; i++ {
		ws = append(ws, window{WaveP, off + float64(i)*(bp+lpq), bp, p.HP})
	}
	off += float64(pCount) * (bp + lpq)

	for i := 0; i < rCount; i++ {
		ws = append(ws, window{WaveQ, off, bq, p.HQ})
		off += bq
		ws = append(ws, window{WaveR, off, br, p.HR})
		off += br
		ws = append(ws, window{WaveS, off, bs, p.HS})
		off += bs
		if i < rCount-1 {
			off += lpq / 2
		}
	}
	off += lst
	ws = append(ws, window{WaveT, off, bt, p.HT})

	return ws
}

// amplitudeAt evaluates the wave types in precedence order P, Q, R, S, T.
// Within a type the first window that contains t is used. The first type
// that yields a non-zero amplitude wins; a type whose pulse is exactly zero
// at t lets the next type through.
func amplitudeAt(ws []window, t float64) float64 {
	for wave := WaveP; wave <= WaveT; wave++ {
		for _, w := range ws {
			if w.wave != wave || t < w.onset || t >= w.onset+w.breadth {
				continue
			}
			if v := Pulse(t, w.height, w.breadth, w.onset); v != 0 {
				return v
			}
			break
		}
	}
	return 0
}

// Synthesizer produces runs of consecutive cycles and keeps the cycling
// counters between runs.
type Synthesizer struct {
	cfg   BeatConfig
	step  float64
	state CyclingState
}

// NewSynthesizer returns a synthesizer that samples every step seconds,
// starting from zeroed counters.
func NewSynthesizer(cfg BeatConfig, step float64) *Synthesizer {
	return &Synthesizer{cfg: cfg, step: step}
}

// With returns a copy using cfg that continues from the current counters.
func (s *Synthesizer) With(cfg BeatConfig) *Synthesizer {
	c := *s
	c.cfg = cfg
	return &c
}

func (s *Synthesizer) Config() BeatConfig  { return s.cfg }
func (s *Synthesizer) State() CyclingState { return s.state }
func (s *Synthesizer) Step() float64       { return s.step }

// Run appends whole cycles until their accumulated duration exceeds total.
// Sample times start at zero. The counters advance only if every cycle
// could be synthesized.
func (s *Synthesizer) Run(total float64) ([]Sample, error) {
	state := s.state
	var (
		out     []Sample
		elapsed float64
	)
	if s.step > 0 {
		out = make([]Sample, 0, max(int(total/s.step)+1, 0))
	}
	for elapsed <= total {
		beat, next := ResolveNextBeat(s.cfg, state)
		samples, d, err := Synthesize(beat.Params, beat.PCount, beat.RCount, elapsed, s.step)
		if err != nil {
			return nil, fmt.Errorf("beat %d: %w", next.Beats, err)
		}
		out = append(out, samples...)
		elapsed += d
		state = next
	}
	s.state = state
	return out, nil
}
