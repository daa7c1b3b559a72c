package stream

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Barospooky/ecg-simulator/internal/sweep"
)

const waveHeaderLen = 12

var ErrShortPacket = errors.New("short wave packet")

// WavePacket is a batch of consecutive samples of the raw stream. First is
// the index of Samples[0] since the stream started.
type WavePacket struct {
	Rate    uint32
	First   uint64
	Samples []float32
}

// Offset is the stream time of the i-th sample of the packet.
func (p WavePacket) Offset(i int) time.Duration {
	if p.Rate == 0 {
		return 0
	}
	n := time.Duration(p.First + uint64(i))
	return n * time.Second / time.Duration(p.Rate)
}

// EncodeWave lays out rate (uint32), first index (uint64) and the samples
// as little endian float32.
func EncodeWave(p WavePacket) []byte {
	out := make([]byte, waveHeaderLen+4*len(p.Samples))
	binary.LittleEndian.PutUint32(out[0:], p.Rate)
	binary.LittleEndian.PutUint64(out[4:], p.First)
	for i, v := range p.Samples {
		binary.LittleEndian.PutUint32(out[waveHeaderLen+i*4:], math.Float32bits(v))
	}
	return out
}

func DecodeWave(b []byte) (WavePacket, error) {
	if len(b) < waveHeaderLen || (len(b)-waveHeaderLen)%4 != 0 {
		return WavePacket{}, fmt.Errorf("%w: %d bytes", ErrShortPacket, len(b))
	}
	p := WavePacket{
		Rate:    binary.LittleEndian.Uint32(b[0:]),
		First:   binary.LittleEndian.Uint64(b[4:]),
		Samples: make([]float32, (len(b)-waveHeaderLen)/4),
	}
	for i := range p.Samples {
		bits := binary.LittleEndian.Uint32(b[waveHeaderLen+i*4:])
		p.Samples[i] = math.Float32frombits(bits)
	}
	return p, nil
}

// FrameMsg is the wire form of a sweep frame. Empty display slots are null.
type FrameMsg struct {
	Ts      int64          `json:"ts"`
	Sweep   int            `json:"sweep"`
	Phase   string         `json:"phase"`
	Pointer float64        `json:"pointer"`
	Marker  *sweep.Point   `json:"marker,omitempty"`
	Points  []*sweep.Point `json:"points"`
}

func NewFrameMsg(f sweep.Frame, ts time.Time) FrameMsg {
	m := FrameMsg{
		Ts:      ts.UnixMilli(),
		Sweep:   f.Sweep,
		Phase:   f.Phase.String(),
		Pointer: f.PointerX,
		Points:  make([]*sweep.Point, len(f.Display)),
	}
	if f.HasMarker {
		mk := f.Marker
		m.Marker = &mk
	}
	for i := range f.Display {
		if f.Display[i].Live {
			p := f.Display[i].Point
			m.Points[i] = &p
		}
	}
	return m
}

// Frame converts the message back into a frame for renderers.
func (m FrameMsg) Frame() sweep.Frame {
	f := sweep.Frame{
		Display:  make([]sweep.Slot, len(m.Points)),
		PointerX: m.Pointer,
		Sweep:    m.Sweep,
	}
	if m.Phase == sweep.SteadySweep.String() {
		f.Phase = sweep.SteadySweep
	}
	if m.Marker != nil {
		f.Marker = *m.Marker
		f.HasMarker = true
	}
	for i, p := range m.Points {
		if p != nil {
			f.Display[i] = sweep.Slot{Point: *p, Live: true}
		}
	}
	return f
}

func EncodeFrame(f sweep.Frame, ts time.Time) ([]byte, error) {
	return json.Marshal(NewFrameMsg(f, ts))
}

func DecodeFrame(b []byte) (FrameMsg, error) {
	var m FrameMsg
	if err := json.Unmarshal(b, &m); err != nil {
		return FrameMsg{}, fmt.Errorf("decode frame: %w", err)
	}
	return m, nil
}

// ParamMsg carries a measured heart rate.
type ParamMsg struct {
	Subject string `json:"subject"`
	Ts      int64  `json:"ts"`
	HR      int    `json:"hr"`
}
