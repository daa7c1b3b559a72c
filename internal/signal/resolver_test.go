package signal

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func resolveN(cfg BeatConfig, n int) ([]Beat, CyclingState) {
	var state CyclingState
	beats := make([]Beat, 0, n)
	for i := 0; i < n; i++ {
		var b Beat
		b, state = ResolveNextBeat(cfg, state)
		beats = append(beats, b)
	}
	return beats, state
}

func ptr[T any](v T) *T { return &v }

func TestResolveCustomBeats(t *testing.T) {
	Convey("Given a queue of 2 custom beats and a repeat interval of 3", t, func() {
		cfg := DefaultBeatConfig()
		cfg.CustomEnabled = true
		cfg.RepeatInterval = 3
		cfg.CustomBeats = []CustomBeat{
			{HR: ptr(2.0)},
			{HR: ptr(0.5), HeartRate: ptr(90.0)},
		}

		Convey("When 2N+2R beats are resolved", func() {
			beats, state := resolveN(cfg, 10)

			Convey("The custom/normal pattern repeats exactly", func() {
				want := []float64{2.0, 0.5, 1.2, 1.2, 1.2, 2.0, 0.5, 1.2, 1.2, 1.2}
				for i, b := range beats {
					So(b.Params.HR, ShouldEqual, want[i])
					So(b.Custom, ShouldEqual, want[i] != 1.2)
				}
				So(state.Beats, ShouldEqual, 10)
				So(state.CustomIdx, ShouldEqual, 0)
				So(state.WaitingNormal, ShouldEqual, 0)
			})

			Convey("Fields the custom beat leaves unset come from the base", func() {
				So(beats[0].Params.HeartRate, ShouldEqual, 70.0)
				So(beats[1].Params.HeartRate, ShouldEqual, 90.0)
				So(beats[1].Params.BT, ShouldEqual, cfg.Base.BT)
			})
		})
	})

	Convey("Given custom beats disabled", t, func() {
		cfg := DefaultBeatConfig()
		cfg.CustomBeats = []CustomBeat{{HR: ptr(2.0)}}
		beats, state := resolveN(cfg, 4)

		Convey("Only base beats are produced and the queue is untouched", func() {
			for _, b := range beats {
				So(b.Params, ShouldResemble, cfg.Base)
			}
			So(state.CustomIdx, ShouldEqual, 0)
		})
	})

	Convey("Given a queue that shrank below the saved index", t, func() {
		cfg := DefaultBeatConfig()
		cfg.CustomEnabled = true
		cfg.CustomBeats = []CustomBeat{{HR: ptr(3.0)}}
		b, state := ResolveNextBeat(cfg, CyclingState{CustomIdx: 5})

		Convey("The queue restarts from the first beat", func() {
			So(b.Params.HR, ShouldEqual, 3.0)
			So(state.CustomIdx, ShouldEqual, 0)
		})
	})
}

func TestResolvePatterns(t *testing.T) {
	Convey("Given a P pattern with interval 3 and count 2", t, func() {
		cfg := DefaultBeatConfig()
		cfg.PPattern = Pattern{Enabled: true, Count: 2, Interval: 3}
		beats, _ := resolveN(cfg, 9)

		Convey("Every third beat carries 2 P waves, the rest the default", func() {
			for i, b := range beats {
				if (i+1)%3 == 0 {
					So(b.PCount, ShouldEqual, 2)
				} else {
					So(b.PCount, ShouldEqual, cfg.Base.PWaves)
				}
				So(b.RCount, ShouldEqual, 1)
			}
		})
	})

	Convey("Given an R pattern with interval 2 and count 3", t, func() {
		cfg := DefaultBeatConfig()
		cfg.RPattern = Pattern{Enabled: true, Count: 3, Interval: 2}
		beats, state := resolveN(cfg, 6)

		Convey("Beats 2, 4 and 6 contain 3 QRS complexes, the others 1", func() {
			for i, b := range beats {
				if (i+1)%2 == 0 {
					So(b.RCount, ShouldEqual, 3)
				} else {
					So(b.RCount, ShouldEqual, 1)
				}
			}
			So(state.RCycle, ShouldEqual, 0)
		})
	})

	Convey("Given patterns with invalid settings", t, func() {
		cfg := DefaultBeatConfig()
		cfg.PPattern = Pattern{Enabled: true, Count: 4, Interval: 0}
		cfg.RPattern = Pattern{Enabled: true, Count: -1, Interval: 1}
		beats, state := resolveN(cfg, 5)

		Convey("The patterns are disabled and the counters stay at zero", func() {
			for _, b := range beats {
				So(b.PCount, ShouldEqual, 1)
				So(b.RCount, ShouldEqual, 1)
			}
			So(state.PCycle, ShouldEqual, 0)
			So(state.RCycle, ShouldEqual, 0)
		})
	})

	Convey("Patterns and custom beats compose", t, func() {
		cfg := DefaultBeatConfig()
		cfg.CustomEnabled = true
		cfg.RepeatInterval = 1
		cfg.CustomBeats = []CustomBeat{{PWaves: ptr(3)}}
		cfg.RPattern = Pattern{Enabled: true, Count: 0, Interval: 2}
		beats, _ := resolveN(cfg, 4)

		So(beats[0].PCount, ShouldEqual, 3)
		So(beats[0].RCount, ShouldEqual, 1)
		So(beats[1].PCount, ShouldEqual, 1)
		So(beats[1].RCount, ShouldEqual, 0)
		So(beats[2].PCount, ShouldEqual, 3)
		So(beats[3].RCount, ShouldEqual, 0)
	})
}

func TestSanitize(t *testing.T) {
	Convey("Given out of range parameters", t, func() {
		p := ParameterSet{HeartRate: 0, BP: -0.1, LTP: -1, PWaves: -2, HR: 1}
		s := p.Sanitize()

		So(s.HeartRate, ShouldEqual, DefaultHeartRate)
		So(s.BP, ShouldEqual, 0.0)
		So(s.LTP, ShouldEqual, 0.0)
		So(s.PWaves, ShouldEqual, 0)
		So(s.HR, ShouldEqual, 1.0)
	})
}
