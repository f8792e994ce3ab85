package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"server/internal/middleware"
	"server/internal/providers/kling"
)

type videoGenerateRequest struct {
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt"`
	CfgScale       float64 `json:"cfg_scale"`
	Duration       int     `json:"duration"`
	ImageURL       string  `json:"image_url"`
	ImageTailURL   string  `json:"image_tail_url"`
	Mode           string  `json:"mode"`
	Version        string  `json:"version"`
}

// VideosGenerate submits one image-to-video job and starts tracking it.
// The reply carries the session id the UI polls and cancels through.
func (a *App) VideosGenerate(w http.ResponseWriter, r *http.Request) {
	var req videoGenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.ImageURL == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "image_url is required")
		return
	}
	locale := middleware.LocaleFromContext(r.Context())
	session, err := a.Sessions.Start(r.Context(), kling.CreateTaskRequest{
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		CfgScale:       req.CfgScale,
		Duration:       req.Duration,
		ImageURL:       req.ImageURL,
		ImageTailURL:   req.ImageTailURL,
		Mode:           req.Mode,
		Version:        req.Version,
	}, locale)
	if err != nil {
		a.writeGenerationError(w, r, err)
		return
	}
	a.json(w, http.StatusAccepted, session.Snapshot())
}

// VideoStatus returns the current snapshot of a tracked session.
func (a *App) VideoStatus(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	session, ok := a.Sessions.Get(sessionID)
	if !ok {
		a.error(w, http.StatusNotFound, "not_found", "unknown session")
		return
	}
	a.json(w, http.StatusOK, session.Snapshot())
}

// VideoCancel stops the session's polling loop. The provider-side job keeps
// running; the provider exposes no cancellation.
func (a *App) VideoCancel(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	session, ok := a.Sessions.Get(sessionID)
	if !ok {
		a.error(w, http.StatusNotFound, "not_found", "unknown session")
		return
	}
	session.Cancel()
	<-session.Done()
	a.json(w, http.StatusOK, session.Snapshot())
}
