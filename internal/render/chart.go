package render

import (
	"io"
	"sync"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Barospooky/ecg-simulator/internal/sweep"
)

// gap is the ECharts placeholder for a missing data point.
const gap = "-"

// Snapshot keeps the latest frame and renders it on demand. It implements
// sweep.Renderer and is safe for concurrent use.
type Snapshot struct {
	display sweep.Display
	title   string

	mu    sync.RWMutex
	frame sweep.Frame
	count int
}

func NewSnapshot(d sweep.Display, title string) *Snapshot {
	return &Snapshot{display: d, title: title}
}

func (s *Snapshot) Render(f sweep.Frame) error {
	s.mu.Lock()
	s.frame = f
	s.count++
	s.mu.Unlock()
	return nil
}

// Latest returns the last frame and how many frames were rendered so far.
func (s *Snapshot) Latest() (sweep.Frame, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frame, s.count
}

func (s *Snapshot) WriteHTML(w io.Writer) error {
	f, _ := s.Latest()
	return Chart(f, s.display, s.title).Render(w)
}

// Chart draws the display buffer as a line with gaps for empty slots and
// the marker as a single scatter point. Y is flipped so positive amplitude
// points up.
func Chart(f sweep.Frame, d sweep.Display, title string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: title,
			Width:     "1000px",
			Height:    "400px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: "sweep " + f.Phase.String(),
		}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Min: 0, Max: d.Width}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Min: 0, Max: d.Height}),
	)

	line.AddSeries("trace", traceItems(f, d))
	line.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))

	if f.HasMarker {
		marker := charts.NewScatter()
		marker.AddSeries("pointer", []opts.ScatterData{{
			Value:      []interface{}{f.Marker.X, d.Height - f.Marker.Y},
			SymbolSize: int(2 * d.MarkerRadius),
		}})
		line.Overlap(marker)
	}
	return line
}

// traceItems converts the display buffer into [x, y] pairs.
func traceItems(f sweep.Frame, d sweep.Display) []opts.LineData {
	items := make([]opts.LineData, 0, len(f.Display))
	for _, s := range f.Display {
		if !s.Live {
			items = append(items, opts.LineData{Value: gap})
			continue
		}
		items = append(items, opts.LineData{Value: []interface{}{s.X, d.Height - s.Y}})
	}
	return items
}
