package machine

// Kind identifies one of the three interactive stations in the desert scene.
type Kind string

const (
	KindDispenser Kind = "dispenser"
	KindOracle    Kind = "oracle"
	KindTemple    Kind = "temple"
)

// Kinds lists every station in a fixed order.
func Kinds() []Kind {
	return []Kind{KindDispenser, KindOracle, KindTemple}
}

// Valid reports whether k names a known station.
func (k Kind) Valid() bool {
	switch k {
	case KindDispenser, KindOracle, KindTemple:
		return true
	}
	return false
}

// Phase tracks where a single station sits in its interaction cycle.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseInput      Phase = "input"
	PhaseProcessing Phase = "processing"
	PhaseResolved   Phase = "resolved"
	PhaseFailed     Phase = "failed"
)

// Tuning holds the three dispenser dials. Each value lives in [0,100].
type Tuning struct {
	Intensity int `json:"intensity"`
	Social    int `json:"social"`
	Weirdness int `json:"weirdness"`
}

// DefaultTuning returns the neutral middle position for every dial.
func DefaultTuning() Tuning {
	return Tuning{Intensity: 50, Social: 50, Weirdness: 50}
}

// TuningUpdate is a partial dial change; nil fields are left untouched.
type TuningUpdate struct {
	Intensity *int `json:"intensity,omitempty"`
	Social    *int `json:"social,omitempty"`
	Weirdness *int `json:"weirdness,omitempty"`
}

// Apply merges the update into t, clamping every dial to [0,100].
func (t Tuning) Apply(u TuningUpdate) Tuning {
	if u.Intensity != nil {
		t.Intensity = clampDial(*u.Intensity)
	}
	if u.Social != nil {
		t.Social = clampDial(*u.Social)
	}
	if u.Weirdness != nil {
		t.Weirdness = clampDial(*u.Weirdness)
	}
	return t
}

func clampDial(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
