// Package export renders a machine's result as the plain-text keepsake the
// front-end offers for download.
package export

import (
	"fmt"
	"strings"

	"github.com/mirrorfield/dust-machines/backend/internal/model/machine"
)

// File is a rendered download: a deterministic text blob plus its filename.
type File struct {
	Name string
	Body []byte
}

// Mission renders a dispensed mission as mission-<id>.txt.
func Mission(m machine.Mission) File {
	var b strings.Builder
	b.WriteString("SERENDIPITY DISPENSER\n")
	b.WriteString("=====================\n\n")
	fmt.Fprintf(&b, "Mission: %s\n", m.Title)
	fmt.Fprintf(&b, "Category: %s\n\n", m.Category)
	fmt.Fprintf(&b, "%s\n\n", m.Description)
	fmt.Fprintf(&b, "Mission ID: %s\n", m.ID)
	b.WriteString("\nGo forth. The dust is waiting.\n")
	return File{
		Name: fmt.Sprintf("mission-%s.txt", m.ID),
		Body: []byte(b.String()),
	}
}

// Transmutation renders the temple's reframing as transmutation-<id>.txt,
// where id is the session the burden was offered in.
func Transmutation(sessionID string, t machine.Transmutation) File {
	var b strings.Builder
	b.WriteString("TEMPLE OF TRANSMUTATION\n")
	b.WriteString("=======================\n\n")
	fmt.Fprintf(&b, "What you carried:\n%s\n\n", t.Original)
	fmt.Fprintf(&b, "Insight:\n%s\n\n", t.Insight)
	fmt.Fprintf(&b, "Wisdom:\n%s\n", t.Wisdom)
	return File{
		Name: fmt.Sprintf("transmutation-%s.txt", sessionID),
		Body: []byte(b.String()),
	}
}

// Oracle renders the conversation transcript as oracle-<id>.txt.
func Oracle(sessionID string, turns []machine.ChatTurn) File {
	var b strings.Builder
	b.WriteString("REFLECTIVE ORACLE\n")
	b.WriteString("=================\n\n")
	for _, turn := range turns {
		speaker := "You"
		if turn.Role == machine.RoleOracle {
			speaker = "Oracle"
		}
		fmt.Fprintf(&b, "%s: %s\n\n", speaker, turn.Content)
	}
	return File{
		Name: fmt.Sprintf("oracle-%s.txt", sessionID),
		Body: []byte(b.String()),
	}
}
