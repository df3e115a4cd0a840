// Package machine exposes the stateless generation endpoints: one per
// machine plus the health probe. These are the raw gateway contracts; the
// session handler layers the view-state cycle on top of the same service.
package machine

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mirrorfield/dust-machines/backend/internal/model/machine"
	"github.com/mirrorfield/dust-machines/backend/internal/service/generate"
	"github.com/mirrorfield/dust-machines/backend/pkg/utils"
)

const aspirationMaxLen = 150

// Handler serves the three machine endpoints.
type Handler struct {
	gen *generate.Service
}

// New creates the handler.
func New(gen *generate.Service) *Handler {
	return &Handler{gen: gen}
}

// RegisterRoutes mounts the machine routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/dispenser", h.handleDispenser)
	r.Post("/oracle", h.handleOracle)
	r.Post("/temple", h.handleTemple)
	r.Get("/health", h.handleHealth)
}

func (h *Handler) handleDispenser(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Aspiration string               `json:"aspiration"`
		Settings   machine.TuningUpdate `json:"settings"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	aspiration := strings.TrimSpace(payload.Aspiration)
	if aspiration == "" {
		utils.RespondError(w, http.StatusBadRequest, "aspiration is required")
		return
	}
	if len([]rune(aspiration)) > aspirationMaxLen {
		utils.RespondError(w, http.StatusBadRequest, "aspiration is too long")
		return
	}

	// Dials the request leaves out stay at the neutral 50.
	tuning := machine.DefaultTuning().Apply(payload.Settings)

	mission, err := h.gen.DispenseMission(r.Context(), aspiration, tuning)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]machine.Mission{"mission": mission})
}

func (h *Handler) handleOracle(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Message string             `json:"message"`
		History []machine.ChatTurn `json:"history"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	message := strings.TrimSpace(payload.Message)
	if message == "" {
		utils.RespondError(w, http.StatusBadRequest, "message is required")
		return
	}

	response, err := h.gen.Reflect(r.Context(), message, payload.History)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"response": response})
}

func (h *Handler) handleTemple(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Burden string `json:"burden"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	burden := strings.TrimSpace(payload.Burden)
	if burden == "" {
		utils.RespondError(w, http.StatusBadRequest, "burden is required")
		return
	}

	transmutation, err := h.gen.Transmute(r.Context(), burden)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]machine.Transmutation{"transmutation": transmutation})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	text, err := h.gen.Health(r.Context())
	if err != nil {
		utils.RespondJSON(w, http.StatusInternalServerError, map[string]string{
			"status": "error",
			"error":  err.Error(),
		})
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"claude": text,
	})
}
