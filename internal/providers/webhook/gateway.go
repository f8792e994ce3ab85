package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"sort"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/providers/prompts"
)

// FeatureConfig describes one "submit media, get prompts back" feature.
// Endpoints are injected at construction; nothing in this package reads
// global state.
type FeatureConfig struct {
	Name     string
	Endpoint string
	ProxyURL string
	// ExpectArtifacts marks features for which an empty normalization result
	// is an application-level error rather than a valid "no match".
	ExpectArtifacts bool
	Strategy        prompts.Strategy
}

// FilePart is a named binary part of a multipart submission.
type FilePart struct {
	FieldName   string
	Filename    string
	ContentType string
	Data        []byte
}

// Submission carries the feature inputs for one user action. When File is
// set the outbound payload is multipart/form-data; otherwise JSON is taken
// from JSON (if set) or Fields.
type Submission struct {
	File   *FilePart
	Fields map[string]string
	JSON   any
}

// Gateway assembles the outbound payload for its feature, invokes the
// transport, and normalizes the reply.
type Gateway struct {
	cfg       FeatureConfig
	transport Transport
	logger    infra.Logger
}

func NewGateway(cfg FeatureConfig, transport Transport, logger infra.Logger) *Gateway {
	if cfg.Strategy.AnalysisField == "" {
		cfg.Strategy = prompts.DefaultStrategy()
	}
	return &Gateway{cfg: cfg, transport: transport, logger: logger}
}

// Submit sends one submission and returns the normalized prompt list.
func (g *Gateway) Submit(ctx context.Context, sub Submission) ([]string, error) {
	req, err := g.buildRequest(sub)
	if err != nil {
		return nil, err
	}
	raw, err := g.transport.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	if raw.IsImage() {
		// Binary replies never reach the normalizer.
		if g.cfg.ExpectArtifacts {
			return nil, fmt.Errorf("webhook: %s: image response: %w", g.cfg.Name, domain.ErrUnexpectedResponseShape)
		}
		return nil, nil
	}
	list := g.cfg.Strategy.Normalize(raw.Body)
	if len(list) == 0 && g.cfg.ExpectArtifacts {
		return nil, fmt.Errorf("webhook: %s: %w", g.cfg.Name, domain.ErrUnexpectedResponseShape)
	}
	g.logger.Debug().
		Str("feature", g.cfg.Name).
		Int("prompts", len(list)).
		Int("status", raw.StatusCode).
		Msg("webhook: submission normalized")
	return list, nil
}

func (g *Gateway) buildRequest(sub Submission) (Request, error) {
	if sub.File != nil {
		body, contentType, err := encodeMultipart(sub)
		if err != nil {
			return Request{}, err
		}
		return Request{Endpoint: g.cfg.Endpoint, ProxyURL: g.cfg.ProxyURL, Body: body, ContentType: contentType}, nil
	}
	payload := sub.JSON
	if payload == nil {
		payload = sub.Fields
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Request{}, fmt.Errorf("webhook: %s: encode payload: %w", g.cfg.Name, err)
	}
	return Request{Endpoint: g.cfg.Endpoint, ProxyURL: g.cfg.ProxyURL, Body: body, ContentType: "application/json"}, nil
}

func encodeMultipart(sub Submission) ([]byte, string, error) {
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)

	file := sub.File
	fieldName := file.FieldName
	if fieldName == "" {
		fieldName = "file"
	}
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, fieldName, file.Filename))
	if file.ContentType != "" {
		header.Set("Content-Type", file.ContentType)
	}
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("webhook: create file part: %w", err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, "", fmt.Errorf("webhook: write file part: %w", err)
	}

	keys := make([]string, 0, len(sub.Fields))
	for k := range sub.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := mw.WriteField(k, sub.Fields[k]); err != nil {
			return nil, "", fmt.Errorf("webhook: write field %s: %w", k, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("webhook: finalize multipart body: %w", err)
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}
