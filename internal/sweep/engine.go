package sweep

import (
	"fmt"
	"math"
	"sort"

	"github.com/Barospooky/ecg-simulator/internal/signal"
)

// Engine sweeps a pointer across the display and keeps the display buffer
// in step with it. It is not safe for concurrent use: the host calls
// Advance once per tick and ApplyParameters between ticks.
type Engine struct {
	display Display
	synth   *signal.Synthesizer

	samples  []Point
	slots    []Slot
	revealed int

	pointer float64
	phase   Phase
	sweeps  int
	err     error
}

// New returns an engine with an empty sample buffer. Call ApplyParameters
// before the first Advance to get a trace.
func New(d Display) *Engine {
	return &Engine{display: d.normalized()}
}

func (e *Engine) Display() Display { return e.display }
func (e *Engine) Phase() Phase     { return e.phase }

// Err returns the error of the last failed refill, if any.
func (e *Engine) Err() error { return e.err }

// State returns the beat counters after the last synthesized run.
func (e *Engine) State() signal.CyclingState {
	if e.synth == nil {
		return signal.CyclingState{}
	}
	return e.synth.State()
}

// Config returns the beat configuration currently being swept.
func (e *Engine) Config() signal.BeatConfig {
	if e.synth == nil {
		return signal.BeatConfig{}
	}
	return e.synth.Config()
}

// Samples returns a copy of the sample buffer in display coordinates.
func (e *Engine) Samples() []Point {
	out := make([]Point, len(e.samples))
	copy(out, e.samples)
	return out
}

// ApplyParameters regenerates the sample buffer from cfg and restarts the
// sweep from the left edge with an empty display. The beat counters carry
// over. A configuration with any beat that cannot advance is rejected; on
// error the engine is left exactly as it was.
func (e *Engine) ApplyParameters(cfg signal.BeatConfig) error {
	if err := signal.Validate(cfg); err != nil {
		return fmt.Errorf("apply parameters: %w", err)
	}
	var trial *signal.Synthesizer
	if e.synth == nil {
		trial = signal.NewSynthesizer(cfg, 1/e.display.SweepSpeed)
	} else {
		trial = e.synth.With(cfg)
	}
	samples, err := trial.Run(e.runDuration())
	if err != nil {
		return fmt.Errorf("apply parameters: %w", err)
	}
	e.synth = trial
	e.samples = e.toPoints(samples)
	e.slots = make([]Slot, len(e.samples))
	e.revealed = 0
	e.pointer = 0
	e.phase = FirstSweep
	e.sweeps = 0
	e.err = nil
	return nil
}

// Advance moves the pointer by elapsed seconds, updates the display buffer
// and returns the frame to draw.
func (e *Engine) Advance(elapsed float64) Frame {
	if !(elapsed > 0) || math.IsInf(elapsed, 0) {
		elapsed = 0
	}
	e.pointer += e.display.SweepSpeed * elapsed

	f := Frame{PointerX: e.pointer, Phase: e.phase, Sweep: e.sweeps}
	if len(e.samples) == 0 {
		f.Display = e.snapshot()
		return f
	}

	f.Marker = e.samples[e.markerIndex(e.pointer)]
	f.HasMarker = true

	switch e.phase {
	case FirstSweep:
		e.reveal(e.pointer)
	case SteadySweep:
		e.refresh(e.pointer)
	}

	if e.pointer >= e.display.Width {
		f.Wrapped = true
		e.wrap()
	}
	f.Display = e.snapshot()
	return f
}

// markerIndex is the first sample at or right of x, or the last sample.
func (e *Engine) markerIndex(x float64) int {
	i := sort.Search(len(e.samples), func(i int) bool { return e.samples[i].X >= x })
	if i == len(e.samples) {
		i--
	}
	return i
}

// reveal makes every sample left of or at x visible. Nothing is erased.
func (e *Engine) reveal(x float64) {
	end := sort.Search(len(e.samples), func(i int) bool { return e.samples[i].X > x })
	for i := e.revealed; i < end; i++ {
		e.slots[i] = Slot{Point: e.samples[i], Live: true}
	}
	if end > e.revealed {
		e.revealed = end
	}
}

// refresh redraws the slots inside the erase window around x with the
// current samples.
func (e *Engine) refresh(x float64) {
	lo, hi := x-e.display.EraseWidth/2, x+e.display.EraseWidth/2
	start := sort.Search(len(e.samples), func(i int) bool { return e.samples[i].X >= lo })
	end := sort.Search(len(e.samples), func(i int) bool { return e.samples[i].X > hi })
	for i := start; i < end && i < len(e.slots); i++ {
		e.slots[i] = Slot{Point: e.samples[i], Live: true}
	}
}

// wrap returns the pointer to the left edge and refills the sample buffer.
// A failed refill keeps sweeping the previous samples.
func (e *Engine) wrap() {
	e.pointer = 0
	e.phase = SteadySweep
	e.sweeps++

	samples, err := e.synth.Run(e.runDuration())
	if err != nil {
		e.err = fmt.Errorf("refill sweep %d: %w", e.sweeps, err)
		return
	}
	e.err = nil
	e.samples = e.toPoints(samples)
	e.resizeSlots(len(e.samples))
}

// resizeSlots keeps the display buffer parallel to the sample buffer.
// Slots that survive keep their drawn trace.
func (e *Engine) resizeSlots(n int) {
	if n <= len(e.slots) {
		e.slots = e.slots[:n]
		return
	}
	e.slots = append(e.slots, make([]Slot, n-len(e.slots))...)
}

func (e *Engine) snapshot() []Slot {
	out := make([]Slot, len(e.slots))
	copy(out, e.slots)
	return out
}

func (e *Engine) runDuration() float64 {
	return e.display.Width / e.display.SweepSpeed
}

func (e *Engine) toPoints(samples []signal.Sample) []Point {
	pts := make([]Point, len(samples))
	base := e.display.Baseline()
	for i, s := range samples {
		pts[i] = Point{
			X: s.T * e.display.SweepSpeed,
			Y: base - s.Amplitude*e.display.VerticalScale,
		}
	}
	return pts
}
