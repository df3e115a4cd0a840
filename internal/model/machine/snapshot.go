package machine

import "time"

// Snapshot is the full JSON view of one session's state, shaped the way the
// 3D front-end consumes it.
type Snapshot struct {
	ID             string         `json:"id"`
	CreatedAt      time.Time      `json:"createdAt"`
	ActiveMachine  Kind           `json:"activeMachine,omitempty"`
	InputOpen      bool           `json:"isInputOpen"`
	InfoOpen       bool           `json:"isInfoOpen"`
	ProcessingStep string         `json:"processingStep,omitempty"`
	Phases         map[Kind]Phase `json:"phases"`
	Mission        *Mission       `json:"mission,omitempty"`
	Transmutation  *Transmutation `json:"transmutation,omitempty"`
	OracleChat     []ChatTurn     `json:"oracleChat"`
	Tuning         Tuning         `json:"advancedSettings"`
}
