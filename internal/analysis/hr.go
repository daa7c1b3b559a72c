package analysis

import "time"

// HRDetector estimates heart rate from upward threshold crossings of the
// R wave. Timestamps are stream offsets, so a batch of samples can be fed
// at once without wall clock skew.
type HRDetector struct {
	threshold  float32
	refractory time.Duration

	lastPeak    time.Duration
	havePeak    bool
	lastValue   float32
	initialized bool
}

func NewHRDetector() *HRDetector {
	return NewHRDetectorWith(0.6, 200*time.Millisecond)
}

// NewHRDetectorWith threshold is in millivolts; crossings closer than
// refractory to the previous peak are ignored.
func NewHRDetectorWith(threshold float32, refractory time.Duration) *HRDetector {
	return &HRDetector{
		threshold:  threshold,
		refractory: refractory,
	}
}

// Process returns the BPM when value completes a new beat.
func (h *HRDetector) Process(value float32, ts time.Duration) (int, bool) {
	if !h.initialized {
		h.initialized = true
		h.lastValue = value
		return 0, false
	}

	// detectar cruce ascendente por threshold
	rising := h.lastValue < h.threshold && value >= h.threshold
	h.lastValue = value
	if !rising {
		return 0, false
	}

	if !h.havePeak {
		h.havePeak = true
		h.lastPeak = ts
		return 0, false
	}

	rr := ts - h.lastPeak
	if rr <= h.refractory {
		return 0, false
	}
	h.lastPeak = ts
	return int(60 / rr.Seconds()), true
}

func (h *HRDetector) Reset() {
	*h = HRDetector{threshold: h.threshold, refractory: h.refractory}
}
