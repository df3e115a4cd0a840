package machine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/go-chi/chi/v5"

	machineModel "github.com/mirrorfield/dust-machines/backend/internal/model/machine"
	"github.com/mirrorfield/dust-machines/backend/internal/service/generate"
)

// setupRouter builds the routes over a fallback-mode gateway, so no upstream
// model is needed.
func setupRouter(t *testing.T) *chi.Mux {
	t.Helper()
	gen, err := generate.NewServiceWithModel(context.Background(), nil, time.Second)
	if err != nil {
		t.Fatalf("NewServiceWithModel err: %v", err)
	}

	r := chi.NewRouter()
	New(gen).RegisterRoutes(r)
	return r
}

// capturingModel records every prompt it receives and answers with a fixed
// mission object.
type capturingModel struct {
	prompts []string
}

func (c *capturingModel) Generate(_ context.Context, msgs []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	for _, m := range msgs {
		c.prompts = append(c.prompts, m.Content)
	}
	return schema.AssistantMessage(`{"title": "Dust Walk", "description": "Walk into the dust.", "category": "Adventure"}`, nil), nil
}

func (c *capturingModel) Stream(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("streaming not supported in stub")
}

func (c *capturingModel) BindTools(_ []*schema.ToolInfo) error {
	return nil
}

// setupCapturingRouter builds the routes over a gateway whose model records
// the prompts it is sent.
func setupCapturingRouter(t *testing.T) (*chi.Mux, *capturingModel) {
	t.Helper()
	stub := &capturingModel{}
	gen, err := generate.NewServiceWithModel(context.Background(), stub, time.Second)
	if err != nil {
		t.Fatalf("NewServiceWithModel err: %v", err)
	}

	r := chi.NewRouter()
	New(gen).RegisterRoutes(r)
	return r, stub
}

func postJSON(t *testing.T, r http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestDispenserReturnsMission(t *testing.T) {
	r := setupRouter(t)

	resp := postJSON(t, r, "/dispenser", map[string]any{
		"aspiration": "I seek adventure",
		"settings":   map[string]int{"intensity": 50, "social": 50, "weirdness": 50},
	})

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var body struct {
		Mission machineModel.Mission `json:"mission"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Mission.ID == "" || body.Mission.Title == "" || body.Mission.Description == "" {
		t.Errorf("incomplete mission: %+v", body.Mission)
	}
	if !body.Mission.Category.Valid() {
		t.Errorf("invalid category: %q", body.Mission.Category)
	}
}

func TestDispenserDefaultsOmittedDials(t *testing.T) {
	r, stub := setupCapturingRouter(t)

	resp := postJSON(t, r, "/dispenser", map[string]any{"aspiration": "I seek adventure"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	prompt := strings.Join(stub.prompts, "\n")
	for _, want := range []string{"Intensity: 50/100", "Social Factor: 50/100", "Absurdity: 50/100"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestDispenserPartialSettingsKeepOtherDefaults(t *testing.T) {
	r, stub := setupCapturingRouter(t)

	resp := postJSON(t, r, "/dispenser", map[string]any{
		"aspiration": "I seek adventure",
		"settings":   map[string]int{"intensity": 90},
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	prompt := strings.Join(stub.prompts, "\n")
	for _, want := range []string{"Intensity: 90/100", "Social Factor: 50/100", "Absurdity: 50/100"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestDispenserRejectsEmptyAspiration(t *testing.T) {
	r := setupRouter(t)

	resp := postJSON(t, r, "/dispenser", map[string]any{"aspiration": "   "})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestDispenserRejectsOverlongAspiration(t *testing.T) {
	r := setupRouter(t)

	long := make([]byte, 200)
	for i := range long {
		long[i] = 'x'
	}
	resp := postJSON(t, r, "/dispenser", map[string]any{"aspiration": string(long)})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestOracleReturnsResponse(t *testing.T) {
	r := setupRouter(t)

	resp := postJSON(t, r, "/oracle", map[string]any{
		"message": "I want to be seen",
		"history": []machineModel.ChatTurn{
			{Role: machineModel.RoleOracle, Content: machineModel.OracleOpeningLine},
		},
	})

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var body struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Response == "" {
		t.Error("empty oracle response")
	}
}

func TestOracleRejectsEmptyMessage(t *testing.T) {
	r := setupRouter(t)

	resp := postJSON(t, r, "/oracle", map[string]any{"message": ""})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestTempleReturnsTransmutation(t *testing.T) {
	r := setupRouter(t)

	resp := postJSON(t, r, "/temple", map[string]any{"burden": "I am afraid of endings"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var body struct {
		Transmutation machineModel.Transmutation `json:"transmutation"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Transmutation.Original != "I am afraid of endings" {
		t.Errorf("original not preserved: %q", body.Transmutation.Original)
	}
	if body.Transmutation.Insight == "" || body.Transmutation.Wisdom == "" {
		t.Errorf("incomplete transmutation: %+v", body.Transmutation)
	}
}

func TestHealthWithoutModel(t *testing.T) {
	r := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 without a model, got %d", resp.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["status"] != "error" || body["error"] == "" {
		t.Errorf("unexpected health body: %v", body)
	}
}
