package handlers

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// Proxy is the same-origin fallback for browser submissions blocked by CORS
// or egress policy. It forwards the caller's body and Content-Type header
// unchanged to the configured upstream for the named target and relays the
// upstream's status code, content type, and body verbatim.
func (a *App) Proxy(w http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "target")
	upstream, ok := a.ProxyUpstreams[target]
	if !ok {
		a.error(w, http.StatusNotFound, "unknown_target", "no upstream configured for "+target)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "failed to read request body")
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, upstream, bytes.NewReader(body))
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to build upstream request")
		return
	}
	if ct := r.Header.Get("Content-Type"); ct != "" {
		req.Header.Set("Content-Type", ct)
	}

	client := a.ProxyClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		a.Logger.Warn().Err(err).Str("target", target).Msg("proxy: upstream call failed")
		a.error(w, http.StatusBadGateway, "upstream_unreachable", "upstream call failed")
		return
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		a.Logger.Warn().Err(err).Str("target", target).Msg("proxy: relay interrupted")
	}
}
