package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"server/internal/domain"
	"server/internal/providers/webhook"
)

const maxUploadBytes = 20 << 20

type promptListResponse struct {
	Prompts []string `json:"prompts"`
}

// PromptsGenerate submits an image plus scalar fields to the prompt
// generation workflow and returns the normalized prompt list.
func (a *App) PromptsGenerate(w http.ResponseWriter, r *http.Request) {
	a.submitToGateway(w, r, a.PromptGateway)
}

// PromptsAnalyze submits to the analysis workflow; the analysis text comes
// back as the first element of the list.
func (a *App) PromptsAnalyze(w http.ResponseWriter, r *http.Request) {
	a.submitToGateway(w, r, a.AnalysisGateway)
}

func (a *App) submitToGateway(w http.ResponseWriter, r *http.Request, gateway *webhook.Gateway) {
	sub, ok := a.readSubmission(w, r)
	if !ok {
		return
	}
	list, err := gateway.Submit(r.Context(), sub)
	if err != nil {
		a.writeGenerationError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, promptListResponse{Prompts: list})
}

func (a *App) readSubmission(w http.ResponseWriter, r *http.Request) (webhook.Submission, bool) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "invalid multipart payload")
			return webhook.Submission{}, false
		}
		sub := webhook.Submission{Fields: map[string]string{}}
		for key, values := range r.MultipartForm.Value {
			if len(values) > 0 {
				sub.Fields[key] = values[0]
			}
		}
		file, header, err := r.FormFile("image")
		if err == nil {
			defer file.Close()
			data, err := io.ReadAll(file)
			if err != nil {
				a.error(w, http.StatusBadRequest, "bad_request", "failed to read image")
				return webhook.Submission{}, false
			}
			sub.File = &webhook.FilePart{
				FieldName:   "image",
				Filename:    header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Data:        data,
			}
		}
		return sub, true
	}

	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return webhook.Submission{}, false
	}
	return webhook.Submission{JSON: payload}, true
}

// writeGenerationError maps the client error taxonomy onto HTTP replies.
// Cancellation is the caller hanging up; there is nobody left to answer.
func (a *App) writeGenerationError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, context.Canceled):
		return
	case isTimeout(err):
		a.error(w, http.StatusGatewayTimeout, "upstream_timeout", "the provider took too long, try again")
	case errors.Is(err, domain.ErrUnexpectedResponseShape):
		a.error(w, http.StatusBadGateway, "unexpected_response_shape", "the provider reply could not be understood")
	case isProviderFailure(err):
		a.error(w, http.StatusBadGateway, "provider_failure", err.Error())
	case isTransportFailure(err):
		a.error(w, http.StatusBadGateway, "transport_failure", "both the direct call and the proxy fallback failed")
	default:
		a.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("handlers: generation failed")
		a.error(w, http.StatusInternalServerError, "internal", "generation failed")
	}
}

func isTimeout(err error) bool {
	var terr *domain.UpstreamTimeoutError
	return errors.As(err, &terr)
}

func isProviderFailure(err error) bool {
	var perr *domain.ProviderError
	return errors.As(err, &perr)
}

func isTransportFailure(err error) bool {
	var terr *domain.TransportError
	return errors.As(err, &terr)
}
