package generate

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/mirrorfield/dust-machines/backend/internal/model/machine"
)

// stubModel answers every Generate call with a fixed reply and records the
// options the call carried.
type stubModel struct {
	reply    string
	err      error
	lastOpts []model.Option
}

func (s *stubModel) Generate(_ context.Context, _ []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	s.lastOpts = opts
	if s.err != nil {
		return nil, s.err
	}
	return schema.AssistantMessage(s.reply, nil), nil
}

func (s *stubModel) Stream(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("streaming not supported in stub")
}

func (s *stubModel) BindTools(_ []*schema.ToolInfo) error {
	return nil
}

func newTestService(t *testing.T, m model.ChatModel) *Service {
	t.Helper()
	svc, err := NewServiceWithModel(context.Background(), m, time.Second)
	if err != nil {
		t.Fatalf("NewServiceWithModel err: %v", err)
	}
	return svc
}

func TestDispenseMissionParsesReply(t *testing.T) {
	stub := &stubModel{reply: `Here you go!
{"title": "Follow the Music", "description": "Close your eyes and walk towards the first music you hear.", "category": "Adventure"}`}
	svc := newTestService(t, stub)

	mission, err := svc.DispenseMission(context.Background(), "I seek adventure", machine.DefaultTuning())
	if err != nil {
		t.Fatalf("DispenseMission err: %v", err)
	}

	if mission.ID == "" {
		t.Error("mission missing id")
	}
	if mission.Title != "Follow the Music" {
		t.Errorf("unexpected title: %s", mission.Title)
	}
	if mission.Category != machine.CategoryAdventure {
		t.Errorf("unexpected category: %s", mission.Category)
	}
	if mission.Color != machine.CategoryAdventure.Color() {
		t.Errorf("color not derived from category: %s", mission.Color)
	}
}

func TestDispenseMissionRejectsUnknownCategory(t *testing.T) {
	stub := &stubModel{reply: `{"title": "X", "description": "Y", "category": "Chaos"}`}
	svc := newTestService(t, stub)

	if _, err := svc.DispenseMission(context.Background(), "anything", machine.DefaultTuning()); err == nil {
		t.Error("expected error for unknown category")
	}
}

func TestDispenseMissionRejectsMissingField(t *testing.T) {
	stub := &stubModel{reply: `{"title": "X", "category": "Adventure"}`}
	svc := newTestService(t, stub)

	if _, err := svc.DispenseMission(context.Background(), "anything", machine.DefaultTuning()); err == nil {
		t.Error("expected error for missing description")
	}
}

func TestDispenseMissionRejectsProseOnlyReply(t *testing.T) {
	stub := &stubModel{reply: "I refuse to answer in JSON today."}
	svc := newTestService(t, stub)

	if _, err := svc.DispenseMission(context.Background(), "anything", machine.DefaultTuning()); err == nil {
		t.Error("expected error when reply carries no object")
	}
}

func TestDispenseMissionUpstreamError(t *testing.T) {
	stub := &stubModel{err: fmt.Errorf("upstream exploded")}
	svc := newTestService(t, stub)

	if _, err := svc.DispenseMission(context.Background(), "anything", machine.DefaultTuning()); err == nil {
		t.Error("expected error when upstream fails")
	}
}

func TestReflectPassesThroughText(t *testing.T) {
	stub := &stubModel{reply: "  Why do you seek what you seek?  "}
	svc := newTestService(t, stub)

	history := machine.SeedOracleChat()
	text, err := svc.Reflect(context.Background(), "I want to be seen", history)
	if err != nil {
		t.Fatalf("Reflect err: %v", err)
	}
	if text != "Why do you seek what you seek?" {
		t.Errorf("unexpected reflection: %q", text)
	}
}

func TestTransmutePreservesOriginal(t *testing.T) {
	stub := &stubModel{reply: `{"insight": "Fear is merely the border of your known reality.", "wisdom": "Let this fear become Curiosity."}`}
	svc := newTestService(t, stub)

	tr, err := svc.Transmute(context.Background(), "I am afraid")
	if err != nil {
		t.Fatalf("Transmute err: %v", err)
	}
	if tr.Original != "I am afraid" {
		t.Errorf("original not preserved: %q", tr.Original)
	}
	if tr.Insight == "" || tr.Wisdom == "" {
		t.Errorf("incomplete transmutation: %+v", tr)
	}
}

func TestTransmuteRejectsPartialReply(t *testing.T) {
	stub := &stubModel{reply: `{"insight": "only half"}`}
	svc := newTestService(t, stub)

	if _, err := svc.Transmute(context.Background(), "burden"); err == nil {
		t.Error("expected error for partial transmutation")
	}
}

func TestHealthWithoutModel(t *testing.T) {
	svc := newTestService(t, nil)

	if _, err := svc.Health(context.Background()); err == nil {
		t.Error("expected health error without a model")
	}
}

func TestHealthReportsReply(t *testing.T) {
	stub := &stubModel{reply: "Claude is connected!"}
	svc := newTestService(t, stub)

	text, err := svc.Health(context.Background())
	if err != nil {
		t.Fatalf("Health err: %v", err)
	}
	if !strings.Contains(text, "connected") {
		t.Errorf("unexpected health reply: %q", text)
	}
}

func lastMaxTokens(t *testing.T, stub *stubModel) int {
	t.Helper()
	opts := model.GetCommonOptions(&model.Options{}, stub.lastOpts...)
	if opts.MaxTokens == nil {
		t.Fatal("no max tokens option on the call")
	}
	return *opts.MaxTokens
}

func TestOutputBudgetPerArtifact(t *testing.T) {
	stub := &stubModel{reply: `{"title": "X", "description": "Y", "category": "Adventure"}`}
	svc := newTestService(t, stub)
	if _, err := svc.DispenseMission(context.Background(), "anything", machine.DefaultTuning()); err != nil {
		t.Fatalf("DispenseMission err: %v", err)
	}
	if got := lastMaxTokens(t, stub); got != 300 {
		t.Errorf("mission budget = %d, want 300", got)
	}

	stub = &stubModel{reply: "Why do you seek what you seek?"}
	svc = newTestService(t, stub)
	if _, err := svc.Reflect(context.Background(), "I want more", machine.SeedOracleChat()); err != nil {
		t.Fatalf("Reflect err: %v", err)
	}
	if got := lastMaxTokens(t, stub); got != 150 {
		t.Errorf("oracle budget = %d, want 150", got)
	}

	stub = &stubModel{reply: `{"insight": "A", "wisdom": "B"}`}
	svc = newTestService(t, stub)
	if _, err := svc.Transmute(context.Background(), "a burden"); err != nil {
		t.Fatalf("Transmute err: %v", err)
	}
	if got := lastMaxTokens(t, stub); got != 200 {
		t.Errorf("temple budget = %d, want 200", got)
	}

	stub = &stubModel{reply: "Claude is connected!"}
	svc = newTestService(t, stub)
	if _, err := svc.Health(context.Background()); err != nil {
		t.Fatalf("Health err: %v", err)
	}
	if got := lastMaxTokens(t, stub); got != 50 {
		t.Errorf("health budget = %d, want 50", got)
	}
}

func TestFallbackMissionIDsUnique(t *testing.T) {
	svc := newTestService(t, nil)

	seen := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		mission, err := svc.DispenseMission(context.Background(), "surprise me", machine.DefaultTuning())
		if err != nil {
			t.Fatalf("fallback DispenseMission err: %v", err)
		}
		if mission.Title == "" || mission.Description == "" || !mission.Category.Valid() {
			t.Fatalf("fallback mission incomplete: %+v", mission)
		}
		if seen[mission.ID] {
			t.Fatalf("duplicate mission id %s after %d calls", mission.ID, i+1)
		}
		seen[mission.ID] = true
	}
}
