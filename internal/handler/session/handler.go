// Package session exposes the view-state store over HTTP: session lifecycle,
// machine actions, live state feeds, and the text-file export.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mirrorfield/dust-machines/backend/internal/export"
	"github.com/mirrorfield/dust-machines/backend/internal/model/machine"
	sessionService "github.com/mirrorfield/dust-machines/backend/internal/service/session"
	"github.com/mirrorfield/dust-machines/backend/pkg/utils"
)

// Handler serves session state and actions.
type Handler struct {
	sessions *sessionService.Service
}

// New creates the session handler.
func New(sessions *sessionService.Service) *Handler {
	return &Handler{sessions: sessions}
}

// RegisterRoutes mounts the session routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session", h.handleCreate)
	r.Route("/session/{sessionID}", func(r chi.Router) {
		r.Get("/", h.handleGet)
		r.Post("/activate", h.handleActivate)
		r.Post("/input", h.handleInput)
		r.Post("/info", h.handleToggleInfo)
		r.Post("/tuning", h.handleTuning)
		r.Post("/aspiration", h.handleAspiration)
		r.Post("/reflection", h.handleReflection)
		r.Post("/burden", h.handleBurden)
		r.Post("/reset", h.handleReset)
		r.Post("/another", h.handleOfferAnother)
		r.Get("/events", h.handleEvents)
		r.Get("/export/{kind}", h.handleExport)
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	snap := h.sessions.Create(r.Context())
	utils.RespondJSON(w, http.StatusCreated, snap)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	snap, err := h.sessions.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondActionError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleActivate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Machine machine.Kind `json:"machine"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	snap, err := h.sessions.Activate(r.Context(), chi.URLParam(r, "sessionID"), payload.Machine)
	if err != nil {
		respondActionError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleInput(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Open bool `json:"open"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	snap, err := h.sessions.SetInputOpen(r.Context(), chi.URLParam(r, "sessionID"), payload.Open)
	if err != nil {
		respondActionError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleToggleInfo(w http.ResponseWriter, r *http.Request) {
	snap, err := h.sessions.ToggleInfo(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondActionError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleTuning(w http.ResponseWriter, r *http.Request) {
	var payload machine.TuningUpdate
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	snap, err := h.sessions.UpdateTuning(r.Context(), chi.URLParam(r, "sessionID"), payload)
	if err != nil {
		respondActionError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleAspiration(w http.ResponseWriter, r *http.Request) {
	h.handleSubmit(w, r, h.sessions.SubmitAspiration, "aspiration")
}

func (h *Handler) handleReflection(w http.ResponseWriter, r *http.Request) {
	h.handleSubmit(w, r, h.sessions.SendReflection, "message")
}

func (h *Handler) handleBurden(w http.ResponseWriter, r *http.Request) {
	h.handleSubmit(w, r, h.sessions.TransmuteBurden, "burden")
}

type submitFunc func(ctx context.Context, id, text string) (machine.Snapshot, error)

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request, submit submitFunc, field string) {
	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	snap, err := submit(r.Context(), chi.URLParam(r, "sessionID"), payload.Text)
	if err != nil {
		if errors.Is(err, sessionService.ErrEmptyInput) {
			utils.RespondError(w, http.StatusBadRequest, fmt.Sprintf("%s is required", field))
			return
		}
		respondActionError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Machine machine.Kind `json:"machine"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	snap, err := h.sessions.Reset(r.Context(), chi.URLParam(r, "sessionID"), payload.Machine)
	if err != nil {
		respondActionError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleOfferAnother(w http.ResponseWriter, r *http.Request) {
	snap, err := h.sessions.OfferAnother(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondActionError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, snap)
}

// handleEvents streams state snapshots over SSE until the client leaves.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	feed, cancel, err := h.sessions.Subscribe(chi.URLParam(r, "sessionID"))
	if err != nil {
		respondActionError(w, err)
		return
	}
	defer cancel()

	utils.SetupSSEHeaders(w)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-feed:
			utils.SendSSEChunk(w, flusher, snap)
		}
	}
}

// handleExport serves the current result as a downloadable text file.
func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	snap, err := h.sessions.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondActionError(w, err)
		return
	}

	var file export.File
	switch kind := machine.Kind(chi.URLParam(r, "kind")); kind {
	case machine.KindDispenser:
		if snap.Mission == nil {
			utils.RespondError(w, http.StatusNotFound, "no mission to export")
			return
		}
		file = export.Mission(*snap.Mission)
	case machine.KindOracle:
		file = export.Oracle(snap.ID, snap.OracleChat)
	case machine.KindTemple:
		if snap.Transmutation == nil {
			utils.RespondError(w, http.StatusNotFound, "no transmutation to export")
			return
		}
		file = export.Transmutation(snap.ID, *snap.Transmutation)
	default:
		utils.RespondError(w, http.StatusBadRequest, "unknown machine")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(file.Body); err != nil {
		return
	}
}

func respondActionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sessionService.ErrSessionNotFound):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, sessionService.ErrBusy):
		utils.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, sessionService.ErrEmptyInput),
		errors.Is(err, sessionService.ErrInputTooLong),
		errors.Is(err, sessionService.ErrUnknownMachine):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	default:
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
	}
}
