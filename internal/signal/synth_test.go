package signal

import (
	"errors"
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

const testStep = 1.0 / 150

// decreasing counts samples whose time does not move forward.
func decreasing(samples []Sample) int {
	n := 0
	for i := 1; i < len(samples); i++ {
		if samples[i].T <= samples[i-1].T {
			n++
		}
	}
	return n
}

func rOnly() ParameterSet {
	p := DefaultParams()
	p.HeartRate = 60
	p.HP, p.HQ, p.HS, p.HT = 0, 0, 0, 0
	p.HR, p.BR = 1.2, 0.05
	p.PWaves = 1
	return p
}

func TestSynthesizeDuration(t *testing.T) {
	Convey("Given several valid parameter sets", t, func() {
		sets := []struct {
			p      ParameterSet
			pCount int
			rCount int
		}{
			{DefaultParams(), 1, 1},
			{DefaultParams(), 3, 1},
			{DefaultParams(), 0, 2},
			{rOnly(), 1, 0},
			{ParameterSet{HeartRate: 150, BR: 0.1, LTP: 0.2}, 0, 1},
		}

		Convey("Each cycle lasts one heart period", func() {
			for _, s := range sets {
				samples, d, err := Synthesize(s.p, s.pCount, s.rCount, 0, testStep)
				So(err, ShouldBeNil)
				So(d, ShouldAlmostEqual, 60/s.p.HeartRate, 1e-9)
				last := samples[len(samples)-1].T
				So(last, ShouldBeLessThan, d)
				So(d-last, ShouldBeLessThanOrEqualTo, testStep+1e-9)
			}
		})

		Convey("Sample times strictly increase within a cycle", func() {
			for _, s := range sets {
				samples, _, err := Synthesize(s.p, s.pCount, s.rCount, 0.5, testStep)
				So(err, ShouldBeNil)
				So(samples[0].T, ShouldEqual, 0.5)
				So(decreasing(samples), ShouldEqual, 0)
			}
		})
	})

	Convey("A zero heart rate falls back to 60 bpm", t, func() {
		p := DefaultParams()
		p.HeartRate = 0
		_, d, err := Synthesize(p, 1, 1, 0, testStep)
		So(err, ShouldBeNil)
		So(d, ShouldAlmostEqual, 1.0, 1e-9)
	})
}

func TestSynthesizeSingleRWave(t *testing.T) {
	Convey("Given a 60 bpm cycle where only the R wave has height", t, func() {
		p := rOnly()
		step := 1e-4
		samples, d, err := Synthesize(p, 1, 1, 0, step)
		So(err, ShouldBeNil)
		So(d, ShouldAlmostEqual, 1.0, 1e-9)

		unscaled := (p.BP + p.LPQ) + (p.BQ + p.BR + p.BS) + p.LST + p.BT + p.LTP
		sf := 1.0 / unscaled
		onset := (p.BP + p.LPQ + p.BQ) * sf
		breadth := p.BR * sf

		Convey("There is a single bump peaking at 1.2 in the middle of the R window", func() {
			bumps, inBump := 0, false
			peak, peakT := 0.0, 0.0
			for _, s := range samples {
				if math.Abs(s.Amplitude) > 1e-12 {
					if !inBump {
						bumps++
						inBump = true
					}
					So(s.T, ShouldBeGreaterThanOrEqualTo, onset-1e-9)
					So(s.T, ShouldBeLessThan, onset+breadth+1e-9)
				} else {
					inBump = false
				}
				if s.Amplitude > peak {
					peak, peakT = s.Amplitude, s.T
				}
			}
			So(bumps, ShouldEqual, 1)
			So(peak, ShouldAlmostEqual, 1.2, 1e-3)
			So(peakT, ShouldAlmostEqual, onset+breadth/2, step)
		})
	})
}

func TestSynthesizeErrors(t *testing.T) {
	Convey("A cycle with no duration is rejected", t, func() {
		_, _, err := Synthesize(ParameterSet{HeartRate: 60, HR: 1}, 0, 1, 0, testStep)
		So(errors.Is(err, ErrNonAdvancingCycle), ShouldBeTrue)
	})

	Convey("Negative durations are clamped rather than propagated", t, func() {
		_, _, err := Synthesize(ParameterSet{HeartRate: 60, BR: -1, LTP: -2}, 1, 1, 0, testStep)
		So(errors.Is(err, ErrNonAdvancingCycle), ShouldBeTrue)
	})

	Convey("A non-positive step is rejected", t, func() {
		_, _, err := Synthesize(DefaultParams(), 1, 1, 0, 0)
		So(errors.Is(err, ErrInvalidStep), ShouldBeTrue)
	})
}

func TestLayout(t *testing.T) {
	Convey("Given three QRS complexes", t, func() {
		p := DefaultParams()
		d := [8]float64{p.BP, p.LPQ, p.BQ, p.BR, p.BS, p.LST, p.BT, p.LTP}
		ws := layout(p, 1, 3, 0, d)

		counts := map[Wave]int{}
		for _, w := range ws {
			counts[w.wave]++
		}
		So(counts[WaveP], ShouldEqual, 1)
		So(counts[WaveQ], ShouldEqual, 3)
		So(counts[WaveR], ShouldEqual, 3)
		So(counts[WaveS], ShouldEqual, 3)
		So(counts[WaveT], ShouldEqual, 1)

		Convey("Complexes are separated by half a PQ segment, the last by none", func() {
			firstS, secondQ := ws[3], ws[4]
			So(secondQ.onset-(firstS.onset+firstS.breadth), ShouldAlmostEqual, p.LPQ/2, 1e-12)

			lastS, tw := ws[9], ws[10]
			So(tw.onset-(lastS.onset+lastS.breadth), ShouldAlmostEqual, p.LST, 1e-12)
		})
	})
}

func TestAmplitudePrecedence(t *testing.T) {
	Convey("Given overlapping P and R windows", t, func() {
		ws := []window{
			{WaveR, 0, 1, 2},
			{WaveP, 0, 1, 0.5},
		}

		Convey("The P wave wins", func() {
			So(amplitudeAt(ws, 0.5), ShouldAlmostEqual, 0.5, 1e-12)
		})

		Convey("A zero P pulse falls through to the R wave", func() {
			ws[1].height = 0
			So(amplitudeAt(ws, 0.5), ShouldAlmostEqual, 2, 1e-12)
		})
	})
}

func TestSynthesizerRun(t *testing.T) {
	Convey("Given a 60 bpm synthesizer", t, func() {
		cfg := DefaultBeatConfig()
		cfg.Base.HeartRate = 60
		s := NewSynthesizer(cfg, testStep)

		Convey("A run covers the requested duration with whole cycles", func() {
			total := 1000.0 / 150
			samples, err := s.Run(total)
			So(err, ShouldBeNil)
			So(s.State().Beats, ShouldEqual, 7)
			So(samples[0].T, ShouldEqual, 0.0)
			So(samples[len(samples)-1].T, ShouldBeGreaterThan, total)
			So(decreasing(samples), ShouldEqual, 0)

			Convey("The counters carry over into the next run", func() {
				_, err := s.Run(total)
				So(err, ShouldBeNil)
				So(s.State().Beats, ShouldEqual, 14)
			})
		})

		Convey("A failed run leaves the counters untouched", func() {
			bad := s.With(BeatConfig{Base: ParameterSet{HeartRate: 60}})
			_, err := bad.Run(1)
			So(errors.Is(err, ErrNonAdvancingCycle), ShouldBeTrue)
			So(bad.State().Beats, ShouldEqual, 0)
		})
	})
}

func TestValidate(t *testing.T) {
	Convey("The default configuration is valid", t, func() {
		So(Validate(DefaultBeatConfig()), ShouldBeNil)
	})

	Convey("A custom beat that collapses is named", t, func() {
		cfg := DefaultBeatConfig()
		cfg.CustomEnabled = true
		zero := 0.0
		cfg.CustomBeats = []CustomBeat{{}, {BP: &zero, LPQ: &zero, BQ: &zero, BR: &zero, BS: &zero, LST: &zero, BT: &zero, LTP: &zero}}
		err := Validate(cfg)
		So(errors.Is(err, ErrNonAdvancingCycle), ShouldBeTrue)
		So(err.Error(), ShouldContainSubstring, "custom beat 2")

		Convey("Unless custom beats are disabled", func() {
			cfg.CustomEnabled = false
			So(Validate(cfg), ShouldBeNil)
		})
	})

	Convey("A pattern that drops every wave of a flat beat is caught", t, func() {
		cfg := BeatConfig{Base: ParameterSet{HeartRate: 60, BP: 0.1, PWaves: 1}}
		So(Validate(cfg), ShouldBeNil)
		cfg.PPattern = Pattern{Enabled: true, Count: 0, Interval: 4}
		So(errors.Is(Validate(cfg), ErrNonAdvancingCycle), ShouldBeTrue)
	})

	Convey("Heart rates above the maximum are refused", t, func() {
		cfg := DefaultBeatConfig()
		cfg.Base.HeartRate = MaxHeartRate
		So(Validate(cfg), ShouldBeNil)

		cfg.Base.HeartRate = 1e9
		err := Validate(cfg)
		So(errors.Is(err, ErrHeartRate), ShouldBeTrue)
		So(err.Error(), ShouldContainSubstring, "base beat")

		Convey("Also when only a custom beat is too fast", func() {
			cfg.Base.HeartRate = 70
			fast := 1e5
			cfg.CustomEnabled = true
			cfg.CustomBeats = []CustomBeat{{}, {HeartRate: &fast}}
			err := Validate(cfg)
			So(errors.Is(err, ErrHeartRate), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "custom beat 2")
		})
	})
}

func TestWaveString(t *testing.T) {
	Convey("Wave names", t, func() {
		So(WaveP.String(), ShouldEqual, "P")
		So(WaveT.String(), ShouldEqual, "T")
		So(Wave(-1).String(), ShouldEqual, "unknown")
		So(Wave(42).String(), ShouldEqual, "unknown")
	})
}
