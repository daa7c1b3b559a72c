package signal

import "math"

// ECGSim streams the synthesized waveform one sample at a time at fs Hz.
// It walks the same beat sequence as Synthesizer.Run, cycle by cycle, and
// can add a small deterministic noise on top.
type ECGSim struct {
	fs    float64
	cfg   BeatConfig
	noise float64

	state CyclingState
	cycle []Sample
	pos   int
	t     float64
	err   error
}

// NewECGSim fs=250 is a typical rate; noise ~0.0-0.05.
func NewECGSim(fs float64, cfg BeatConfig, noise float64) (*ECGSim, error) {
	if !(fs > 0) {
		return nil, ErrInvalidStep
	}
	s := &ECGSim{fs: fs, cfg: cfg, noise: noise}
	if err := s.fill(); err != nil {
		return nil, err
	}
	return s, nil
}

// Next returns the next sample and advances time by 1/fs.
func (s *ECGSim) Next() float32 {
	if s.pos >= len(s.cycle) {
		if err := s.fill(); err != nil {
			// baseline por un paso, se reintenta con el próximo latido
			s.err = err
			s.t += 1 / s.fs
			return float32(s.noiseAt(s.t))
		}
	}
	smp := s.cycle[s.pos]
	s.pos++
	return float32(smp.Amplitude + s.noiseAt(smp.T))
}

// Elapsed is the stream time of the next sample, in seconds.
func (s *ECGSim) Elapsed() float64 {
	if s.pos < len(s.cycle) {
		return s.cycle[s.pos].T
	}
	return s.t
}

func (s *ECGSim) State() CyclingState { return s.state }

// Apply switches to cfg from the next beat on. The counters carry over.
func (s *ECGSim) Apply(cfg BeatConfig) error {
	if err := Validate(cfg); err != nil {
		return err
	}
	s.cfg = cfg
	s.err = nil
	return nil
}

// Err returns the last synthesis error hit while streaming.
func (s *ECGSim) Err() error { return s.err }

func (s *ECGSim) fill() error {
	beat, next := ResolveNextBeat(s.cfg, s.state)
	samples, d, err := Synthesize(beat.Params, beat.PCount, beat.RCount, s.t, 1/s.fs)
	s.state = next
	if err != nil {
		return err
	}
	s.cycle = samples
	s.pos = 0
	s.t += d
	return nil
}

// ruido determinista simple (barato)
func (s *ECGSim) noiseAt(t float64) float64 {
	if s.noise == 0 {
		return 0
	}
	return s.noise * (2*fract(math.Sin(12345.678*t)*9876.543) - 1)
}

func fract(x float64) float64 { return x - math.Floor(x) }
