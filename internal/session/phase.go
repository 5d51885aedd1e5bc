package session

// Phase is the scan workflow state. Transitions only move forward
// (temperature, then humidity, then done) except for an explicit reset.
type Phase int

// Workflow phases.
const (
	PhaseSelectingSource Phase = iota
	PhaseScanningTemperature
	PhaseScanningHumidity
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseSelectingSource:
		return "selecting-source"
	case PhaseScanningTemperature:
		return "scanning-temperature"
	case PhaseScanningHumidity:
		return "scanning-humidity"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// scanning reports whether the phase accepts recognition ticks.
func (p Phase) scanning() bool {
	return p == PhaseScanningTemperature || p == PhaseScanningHumidity
}

// Kind is the value type currently being read.
type Kind string

// Reading kinds, confirmed in this order.
const (
	KindTemperature Kind = "temperature"
	KindHumidity    Kind = "humidity"
)

// kindFor maps a scanning phase to its reading kind.
func kindFor(p Phase) (Kind, bool) {
	switch p {
	case PhaseScanningTemperature:
		return KindTemperature, true
	case PhaseScanningHumidity:
		return KindHumidity, true
	default:
		return "", false
	}
}
