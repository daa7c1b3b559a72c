package signal

import "math"

const (
	// DefaultHeartRate is used whenever a parameter set carries no usable rate.
	DefaultHeartRate = 60.0

	// MaxHeartRate is the fastest rate Validate accepts.
	MaxHeartRate = 250.0
)

// ParameterSet describes one cardiac cycle. Heights are in millivolts,
// breadths and segment lengths in seconds.
type ParameterSet struct {
	HeartRate float64 `json:"heart_rate"`

	HP float64 `json:"h_p"`
	BP float64 `json:"b_p"`
	HQ float64 `json:"h_q"`
	BQ float64 `json:"b_q"`
	HR float64 `json:"h_r"`
	BR float64 `json:"b_r"`
	HS float64 `json:"h_s"`
	BS float64 `json:"b_s"`
	HT float64 `json:"h_t"`
	BT float64 `json:"b_t"`

	LPQ float64 `json:"l_pq"`
	LST float64 `json:"l_st"`
	LTP float64 `json:"l_tp"`

	// PWaves is the default number of P waves per QRS complex.
	PWaves int `json:"n_p"`
}

// DefaultParams returns a normal sinus rhythm at 70 bpm.
func DefaultParams() ParameterSet {
	return ParameterSet{
		HeartRate: 70,
		HP:        0.15,
		BP:        0.08,
		HQ:        -0.1,
		BQ:        0.025,
		HR:        1.2,
		BR:        0.05,
		HS:        -0.25,
		BS:        0.025,
		HT:        0.2,
		BT:        0.16,
		LPQ:       0.08,
		LST:       0.12,
		LTP:       0.3,
		PWaves:    1,
	}
}

// Sanitize clamps the set into its valid domain: durations are never
// negative or NaN, heights are finite and the heart rate falls back to
// DefaultHeartRate.
func (p ParameterSet) Sanitize() ParameterSet {
	if !(p.HeartRate > 0) || math.IsInf(p.HeartRate, 0) {
		p.HeartRate = DefaultHeartRate
	}
	for _, d := range []*float64{&p.BP, &p.BQ, &p.BR, &p.BS, &p.BT, &p.LPQ, &p.LST, &p.LTP} {
		*d = nonNegative(*d)
	}
	for _, h := range []*float64{&p.HP, &p.HQ, &p.HR, &p.HS, &p.HT} {
		if math.IsNaN(*h) || math.IsInf(*h, 0) {
			*h = 0
		}
	}
	if p.PWaves < 0 {
		p.PWaves = 0
	}
	return p
}

// HeartPeriod is the duration of one cycle in seconds.
func (p ParameterSet) HeartPeriod() float64 {
	hr := p.HeartRate
	if !(hr > 0) {
		hr = DefaultHeartRate
	}
	return 60 / hr
}

func nonNegative(v float64) float64 {
	if !(v > 0) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// CustomBeat overrides any subset of a ParameterSet for a single beat.
type CustomBeat struct {
	HeartRate *float64 `json:"heart_rate,omitempty"`

	HP *float64 `json:"h_p,omitempty"`
	BP *float64 `json:"b_p,omitempty"`
	HQ *float64 `json:"h_q,omitempty"`
	BQ *float64 `json:"b_q,omitempty"`
	HR *float64 `json:"h_r,omitempty"`
	BR *float64 `json:"b_r,omitempty"`
	HS *float64 `json:"h_s,omitempty"`
	BS *float64 `json:"b_s,omitempty"`
	HT *float64 `json:"h_t,omitempty"`
	BT *float64 `json:"b_t,omitempty"`

	LPQ *float64 `json:"l_pq,omitempty"`
	LST *float64 `json:"l_st,omitempty"`
	LTP *float64 `json:"l_tp,omitempty"`

	PWaves *int `json:"n_p,omitempty"`
}

// Merge returns base with every field set on b applied over it.
func (b CustomBeat) Merge(base ParameterSet) ParameterSet {
	out := base
	pairs := []struct {
		src *float64
		dst *float64
	}{
		{b.HeartRate, &out.HeartRate},
		{b.HP, &out.HP}, {b.BP, &out.BP},
		{b.HQ, &out.HQ}, {b.BQ, &out.BQ},
		{b.HR, &out.HR}, {b.BR, &out.BR},
		{b.HS, &out.HS}, {b.BS, &out.BS},
		{b.HT, &out.HT}, {b.BT, &out.BT},
		{b.LPQ, &out.LPQ}, {b.LST, &out.LST}, {b.LTP, &out.LTP},
	}
	for _, f := range pairs {
		if f.src != nil {
			*f.dst = *f.src
		}
	}
	if b.PWaves != nil {
		out.PWaves = *b.PWaves
	}
	return out
}

// BeatFrom returns a CustomBeat that overrides every field with the values
// of p. It mirrors the "add beat" action of the editor, which seeds a new
// beat from the defaults.
func BeatFrom(p ParameterSet) CustomBeat {
	f := func(v float64) *float64 { return &v }
	return CustomBeat{
		HP: f(p.HP), BP: f(p.BP),
		HQ: f(p.HQ), BQ: f(p.BQ),
		HR: f(p.HR), BR: f(p.BR),
		HS: f(p.HS), BS: f(p.BS),
		HT: f(p.HT), BT: f(p.BT),
		LPQ: f(p.LPQ), LST: f(p.LST), LTP: f(p.LTP),
	}
}
