package handlers

import (
	"encoding/json"
	"net/http"

	"server/internal/generation"
	"server/internal/infra"
	"server/internal/providers/webhook"
)

// App bundles the handler dependencies. Everything is injected at startup;
// handlers hold no global state.
type App struct {
	Logger infra.Logger

	PromptGateway   *webhook.Gateway
	AnalysisGateway *webhook.Gateway
	Sessions        *generation.Manager

	// ProxyUpstreams maps proxy target names to the upstream URLs the
	// same-origin proxy forwards to.
	ProxyUpstreams map[string]string
	ProxyClient    *http.Client
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, slug, message string) {
	a.json(w, code, errorBody{Error: slug, Message: message})
}
