package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func localeProbe(t *testing.T, headers map[string]string, fallback string) string {
	t.Helper()
	var got string
	handler := I18N(fallback)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = LocaleFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	handler.ServeHTTP(httptest.NewRecorder(), req)
	return got
}

func TestI18NPrefersExplicitHeader(t *testing.T) {
	got := localeProbe(t, map[string]string{
		"X-Locale":        "id-ID",
		"Accept-Language": "en-US,en;q=0.9",
	}, "en")
	if got != "id" {
		t.Fatalf("locale = %q, want id", got)
	}
}

func TestI18NMatchesAcceptLanguage(t *testing.T) {
	got := localeProbe(t, map[string]string{"Accept-Language": "id-ID,id;q=0.9,en;q=0.5"}, "en")
	if got != "id" {
		t.Fatalf("locale = %q, want id", got)
	}
}

func TestI18NFallsBackOnUnknownLanguage(t *testing.T) {
	got := localeProbe(t, map[string]string{"Accept-Language": "zz"}, "en")
	if got != "en" {
		t.Fatalf("locale = %q, want en", got)
	}
}

func TestLocaleFromContextDefault(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := LocaleFromContext(req.Context()); got != "en" {
		t.Fatalf("locale = %q, want en", got)
	}
}
