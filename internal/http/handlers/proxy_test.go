package handlers

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

func newProxyRouter(app *App) http.Handler {
	r := chi.NewRouter()
	r.Post("/v1/proxy/{target}", app.Proxy)
	return r
}

func TestProxyRelaysBodyAndContentType(t *testing.T) {
	var upstreamBody []byte
	var upstreamContentType string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upstreamBody, _ = io.ReadAll(r.Body)
		upstreamContentType = r.Header.Get("Content-Type")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"echo":true}`))
	}))
	defer upstream.Close()

	app := &App{
		Logger:         zerolog.New(io.Discard),
		ProxyUpstreams: map[string]string{"prompt": upstream.URL},
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/proxy/prompt", strings.NewReader(`{"x":1}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	newProxyRouter(app).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 relayed", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("content type = %q", rec.Header().Get("Content-Type"))
	}
	if rec.Body.String() != `{"echo":true}` {
		t.Fatalf("body = %s", rec.Body.String())
	}
	if string(upstreamBody) != `{"x":1}` || upstreamContentType != "application/json" {
		t.Fatalf("upstream saw body %s with content type %q", upstreamBody, upstreamContentType)
	}
}

func TestProxyRelaysUpstreamErrorsVerbatim(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("denied"))
	}))
	defer upstream.Close()

	app := &App{
		Logger:         zerolog.New(io.Discard),
		ProxyUpstreams: map[string]string{"prompt": upstream.URL},
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/proxy/prompt", strings.NewReader("x"))
	rec := httptest.NewRecorder()
	newProxyRouter(app).ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden || rec.Body.String() != "denied" {
		t.Fatalf("reply = %d %q, want upstream relayed verbatim", rec.Code, rec.Body.String())
	}
}

func TestProxyUnknownTarget(t *testing.T) {
	app := &App{Logger: zerolog.New(io.Discard), ProxyUpstreams: map[string]string{}}
	req := httptest.NewRequest(http.MethodPost, "/v1/proxy/nope", strings.NewReader("x"))
	rec := httptest.NewRecorder()
	newProxyRouter(app).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestProxyUnreachableUpstream(t *testing.T) {
	app := &App{
		Logger:         zerolog.New(io.Discard),
		ProxyUpstreams: map[string]string{"prompt": "http://127.0.0.1:1"},
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/proxy/prompt", strings.NewReader("x"))
	rec := httptest.NewRecorder()
	newProxyRouter(app).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}
