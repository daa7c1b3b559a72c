package signal

import "math"

// Pulse evaluates a raised-cosine bump of the given height that starts at
// onset and lasts breadth seconds. It is zero outside [onset, onset+breadth)
// and has zero slope at both edges, so adjacent pulses join smoothly.
func Pulse(t, height, breadth, onset float64) float64 {
	if breadth <= 0 || t < onset || t >= onset+breadth {
		return 0
	}
	return (height / 2) * (1 - math.Cos(2*math.Pi*(t-onset)/breadth))
}
