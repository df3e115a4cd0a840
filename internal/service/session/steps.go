package session

import "github.com/mirrorfield/dust-machines/backend/internal/model/machine"

// Each machine shows a fixed, ordered run of status labels while its request
// is in flight. The order is part of the front-end contract; the pacing
// between labels is cosmetic and configured separately.
var processingSteps = map[machine.Kind][]string{
	machine.KindDispenser: {
		"Calibrating serendipity sensors...",
		"Scanning Playa vibes...",
		"Injecting controlled chaos...",
		"Aligning with the dust...",
		"Manifesting opportunity...",
		"Dispensing serendipity!",
	},
	machine.KindOracle: {
		"The mirror clouds over...",
		"Your reflection stirs...",
		"The Oracle speaks.",
	},
	machine.KindTemple: {
		"Placing the burden upon the altar...",
		"The alchemical fire takes hold...",
		"Transmuting...",
	},
}

// Steps returns the label sequence for a machine.
func Steps(kind machine.Kind) []string {
	return append([]string(nil), processingSteps[kind]...)
}
