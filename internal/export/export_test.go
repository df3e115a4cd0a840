package export

import (
	"strings"
	"testing"

	"github.com/mirrorfield/dust-machines/backend/internal/model/machine"
)

func TestMissionFileDeterministic(t *testing.T) {
	m := machine.Mission{
		ID:          "abc-123",
		Title:       "Dust Angel",
		Description: "Lie down in the dust and make a dust angel.",
		Category:    machine.CategorySelfDiscovery,
		Color:       machine.CategorySelfDiscovery.Color(),
	}

	first := Mission(m)
	second := Mission(m)

	if first.Name != "mission-abc-123.txt" {
		t.Errorf("unexpected filename: %s", first.Name)
	}
	if string(first.Body) != string(second.Body) {
		t.Error("mission export not deterministic")
	}
	body := string(first.Body)
	for _, want := range []string{m.Title, m.Description, string(m.Category), m.ID} {
		if !strings.Contains(body, want) {
			t.Errorf("export missing %q", want)
		}
	}
}

func TestTransmutationFile(t *testing.T) {
	tr := machine.Transmutation{
		Original: "my fear",
		Insight:  "Fear is merely the border of your known reality.",
		Wisdom:   "Let this fear become Curiosity.",
	}

	file := Transmutation("sess-1", tr)
	if file.Name != "transmutation-sess-1.txt" {
		t.Errorf("unexpected filename: %s", file.Name)
	}
	body := string(file.Body)
	for _, want := range []string{tr.Original, tr.Insight, tr.Wisdom} {
		if !strings.Contains(body, want) {
			t.Errorf("export missing %q", want)
		}
	}
}

func TestOracleFileLabelsSpeakers(t *testing.T) {
	turns := []machine.ChatTurn{
		{Role: machine.RoleOracle, Content: machine.OracleOpeningLine},
		{Role: machine.RoleUser, Content: "I want to be seen"},
		{Role: machine.RoleOracle, Content: "Why do you seek what you seek?"},
	}

	file := Oracle("sess-2", turns)
	if file.Name != "oracle-sess-2.txt" {
		t.Errorf("unexpected filename: %s", file.Name)
	}
	body := string(file.Body)
	if !strings.Contains(body, "Oracle: "+machine.OracleOpeningLine) {
		t.Error("oracle turn not labeled")
	}
	if !strings.Contains(body, "You: I want to be seen") {
		t.Error("user turn not labeled")
	}
}
