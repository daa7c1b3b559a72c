package sweep

import (
	"strconv"
	"strings"
)

// Fixed display constants, in display units.
const (
	SweepSpeed           = 150.0 // units per second
	MarkerRadius         = 6.0
	EraseWidth           = 12.0
	DefaultWidth         = 1000.0
	DefaultHeight        = 400.0
	DefaultVerticalScale = 100.0 // units per millivolt

	gridSmall = 8.0
	gridLarge = gridSmall * 5
)

// Display describes the surface the trace is swept across.
type Display struct {
	Width         float64 `json:"width"`
	Height        float64 `json:"height"`
	VerticalScale float64 `json:"vertical_scale"`
	SweepSpeed    float64 `json:"sweep_speed"`
	EraseWidth    float64 `json:"erase_width"`
	MarkerRadius  float64 `json:"marker_radius"`
}

func DefaultDisplay() Display {
	return Display{
		Width:         DefaultWidth,
		Height:        DefaultHeight,
		VerticalScale: DefaultVerticalScale,
		SweepSpeed:    SweepSpeed,
		EraseWidth:    EraseWidth,
		MarkerRadius:  MarkerRadius,
	}
}

// normalized fills unset fields with the defaults.
func (d Display) normalized() Display {
	def := DefaultDisplay()
	if !(d.Width > 0) {
		d.Width = def.Width
	}
	if !(d.Height > 0) {
		d.Height = def.Height
	}
	if !(d.VerticalScale > 0) {
		d.VerticalScale = def.VerticalScale
	}
	if !(d.SweepSpeed > 0) {
		d.SweepSpeed = def.SweepSpeed
	}
	if !(d.EraseWidth > 0) {
		d.EraseWidth = def.EraseWidth
	}
	if !(d.MarkerRadius > 0) {
		d.MarkerRadius = def.MarkerRadius
	}
	return d
}

// Baseline is the y coordinate of zero amplitude.
func (d Display) Baseline() float64 { return d.Height / 2 }

// Point is a position in display coordinates; y grows downwards.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Slot is one entry of the display buffer. An empty slot has Live unset.
type Slot struct {
	Point
	Live bool
}

// Phase of the sweep.
type Phase int

const (
	FirstSweep Phase = iota
	SteadySweep
)

func (p Phase) String() string {
	switch p {
	case FirstSweep:
		return "first"
	case SteadySweep:
		return "steady"
	}
	return "unknown"
}

// Frame is what a renderer needs to draw one tick.
type Frame struct {
	Display   []Slot
	Marker    Point
	HasMarker bool
	PointerX  float64
	Phase     Phase
	Sweep     int
	Wrapped   bool
}

// Renderer draws frames produced by the engine. The engine never calls it;
// the host loop hands each frame over.
type Renderer interface {
	Render(Frame) error
}

// PathData turns the display buffer into SVG path commands. A new subpath
// starts after every empty slot.
func PathData(slots []Slot) string {
	var b strings.Builder
	pen := false
	for _, s := range slots {
		if !s.Live {
			pen = false
			continue
		}
		if pen {
			b.WriteString(" L ")
		} else {
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString("M ")
			pen = true
		}
		b.WriteString(strconv.FormatFloat(s.X, 'f', -1, 64))
		b.WriteByte(' ')
		b.WriteString(strconv.FormatFloat(s.Y, 'f', -1, 64))
	}
	return b.String()
}

// GridLine is one line of the background grid.
type GridLine struct {
	X1, Y1, X2, Y2 float64
	Major          bool
}

// Grid returns the background grid: a line every 8 units, every fifth
// one major.
func Grid(d Display) []GridLine {
	d = d.normalized()
	var lines []GridLine
	for x := 0.0; x <= d.Width; x += gridSmall {
		lines = append(lines, GridLine{X1: x, Y1: 0, X2: x, Y2: d.Height, Major: isMajor(x)})
	}
	for y := 0.0; y <= d.Height; y += gridSmall {
		lines = append(lines, GridLine{X1: 0, Y1: y, X2: d.Width, Y2: y, Major: isMajor(y)})
	}
	return lines
}

func isMajor(v float64) bool {
	n := v / gridLarge
	return n == float64(int(n))
}
