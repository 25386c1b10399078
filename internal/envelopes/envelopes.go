package envelopes

// Envelope shapes a voice's amplitude over time. Time is seconds since the
// voice's trigger frame; envelopes never see absolute time. Weight returns a
// non-negative multiplier; the caller applies it.
type Envelope interface {
	PushDown()
	LiftUp()
	SetPedal(pedal bool)
	Sounding() bool
	Weight(t float64) float64
}

// envelope carries the state shared by every subtype. upTime and upWeight
// track the (time, weight) at which the envelope was last on its held
// trajectory, so release interpolates from wherever the envelope actually
// was when the key (or pedal) let go.
type envelope struct {
	down     bool
	pedal    bool
	sounding bool
	upTime   float64
	upWeight float64
}

func (e *envelope) LiftUp()             { e.down = false }
func (e *envelope) SetPedal(pedal bool) { e.pedal = pedal }
func (e *envelope) Sounding() bool      { return e.sounding }

func (e *envelope) hold(t, w float64) {
	e.upTime = t
	e.upWeight = w
}

// LAD is a linear attack-decay envelope: silence for delay seconds, a linear
// rise to 1 over attack, then a linear fall to 0 over decay. The decay runs
// whether or not the key is still held.
type LAD struct {
	envelope
	attack float64
	decay  float64
	delay  float64
}

func NewLAD(attack, decay, delay float64) *LAD {
	return &LAD{attack: attack, decay: decay, delay: delay}
}

func (e *LAD) PushDown() {
	e.down = true
	e.sounding = true
}

func (e *LAD) Weight(t float64) float64 {
	if !e.sounding {
		return 0
	}
	var w float64
	switch {
	case e.down && t < e.delay:
		w = 0
		e.hold(t, w)
	case e.down && t < e.delay+e.attack:
		w = (t - e.delay) / e.attack
		e.hold(t, w)
	default:
		w = e.upWeight - e.upWeight*(t-e.upTime)/e.decay
		if w <= 0 {
			w = 0
			e.sounding = false
		}
	}
	return w
}

// LADSR is a linear ADSR with a pre-delay. After release begins it stays in
// release; re-pressing the sustain pedal does not re-sustain mid-release.
type LADSR struct {
	envelope
	attack    float64
	decay     float64
	sustain   float64
	release   float64
	delay     float64
	inRelease bool
}

func NewLADSR(attack, decay, sustain, release, delay float64) *LADSR {
	return &LADSR{attack: attack, decay: decay, sustain: sustain, release: release, delay: delay}
}

func (e *LADSR) PushDown() {
	e.down = true
	e.sounding = true
	e.inRelease = false
}

func (e *LADSR) Weight(t float64) float64 {
	if !e.sounding {
		return 0
	}
	var w float64
	switch {
	case e.down && t < e.delay:
		w = 0
		e.hold(t, w)
	case e.down && t < e.delay+e.attack:
		w = (t - e.delay) / e.attack
		e.hold(t, w)
	case e.down && t < e.delay+e.attack+e.decay:
		w = 1 - (1-e.sustain)*(t-(e.delay+e.attack))/e.decay
		e.hold(t, w)
	case (e.down || e.pedal) && !e.inRelease:
		w = e.sustain
		e.hold(t, w)
	default:
		e.inRelease = true
		w = e.upWeight - e.upWeight*(t-e.upTime)/e.release
		if w <= 0 {
			w = 0
			e.sounding = false
		}
	}
	return w
}

// DL4R4 is a pre-delay followed by four linear segments: three keyed rises
// and falls between the levels, a sustain at the third level, and a release
// toward the fourth. The fourth level doubles as the pre-delay floor.
type DL4R4 struct {
	envelope
	level     [4]float64
	rate      [4]float64
	delay     float64
	inRelease bool
}

func NewDL4R4(level, rate [4]float64, delay float64) *DL4R4 {
	return &DL4R4{level: level, rate: rate, delay: delay}
}

func (e *DL4R4) PushDown() {
	e.down = true
	e.sounding = true
	e.inRelease = false
}

func (e *DL4R4) Weight(t float64) float64 {
	if !e.sounding {
		return 0
	}
	var w float64
	seg0 := e.delay + e.rate[0]
	seg1 := seg0 + e.rate[1]
	seg2 := seg1 + e.rate[2]
	switch {
	case e.down && t < e.delay:
		w = e.level[3]
		e.hold(t, w)
	case e.down && t < seg0:
		w = lerp(e.level[3], e.level[0], (t-e.delay)/e.rate[0])
		e.hold(t, w)
	case e.down && t < seg1:
		w = lerp(e.level[0], e.level[1], (t-seg0)/e.rate[1])
		e.hold(t, w)
	case e.down && t < seg2:
		w = lerp(e.level[1], e.level[2], (t-seg1)/e.rate[2])
		e.hold(t, w)
	case (e.down || e.pedal) && !e.inRelease:
		w = e.level[2]
		e.hold(t, w)
	default:
		e.inRelease = true
		if t-e.upTime >= e.rate[3] {
			e.sounding = false
			return 0
		}
		w = lerp(e.upWeight, e.level[3], (t-e.upTime)/e.rate[3])
		if w <= 0 {
			w = 0
			e.sounding = false
		}
	}
	if w < 0 {
		w = 0
	}
	return w
}

func lerp(from, to, frac float64) float64 {
	return from + (to-from)*frac
}
