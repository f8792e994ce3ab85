// Package prompts normalizes provider replies into an ordered list of text
// artifacts. Automation webhooks answer the same submission in a dozen
// structurally different JSON shapes; everything downstream only ever sees
// the canonical list produced here.
package prompts

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Strategy controls per-feature extraction. The zero value is not useful;
// start from DefaultStrategy and override fields as needed.
type Strategy struct {
	// AnalysisField names the field whose text is conventionally consumed
	// before generated variants. When found in a list payload it is moved to
	// the front of the result regardless of its position in the source.
	AnalysisField string
	// PromptFields are the direct string fields probed on each list element,
	// in priority order.
	PromptFields []string
}

// DefaultStrategy matches the shapes the automation workflows emit today.
func DefaultStrategy() Strategy {
	return Strategy{
		AnalysisField: "analysis_text",
		PromptFields:  []string{"prompt", "text", "output"},
	}
}

// Normalize extracts prompt artifacts from an arbitrary payload using the
// default strategy. It never fails: unrecognized shapes yield an empty list.
func Normalize(payload []byte) []string {
	return DefaultStrategy().Normalize(payload)
}

// Normalize extracts prompt artifacts from an arbitrary payload. Every
// returned element is trimmed, non-empty, and has any surrounding markdown
// code fence stripped.
func (s Strategy) Normalize(payload []byte) []string {
	if len(payload) == 0 {
		return nil
	}
	if !gjson.ValidBytes(payload) {
		// Not JSON at all: the raw text is the artifact.
		return appendArtifact(nil, string(payload))
	}
	root := gjson.ParseBytes(payload)
	switch {
	case root.Type == gjson.String:
		return appendArtifact(nil, root.String())
	case root.IsArray():
		return s.normalizeList(root)
	case root.IsObject():
		return s.normalizeObject(root)
	default:
		return nil
	}
}

// normalizeList processes each element independently, first match wins per
// element. Analysis text is forced to the front of the result: it is read
// before the generated variants, wherever the provider happened to place it.
func (s Strategy) normalizeList(list gjson.Result) []string {
	var analysis []string
	var variants []string
	list.ForEach(func(_, item gjson.Result) bool {
		if item.Type == gjson.String {
			variants = appendArtifact(variants, item.String())
			return true
		}
		if !item.IsObject() {
			return true
		}
		if text := item.Get("content.parts.0.text"); text.Type == gjson.String {
			variants = appendArtifact(variants, text.String())
			return true
		}
		if text := item.Get("input.prompt"); text.Type == gjson.String {
			variants = appendArtifact(variants, text.String())
			return true
		}
		for _, field := range s.PromptFields {
			if text := item.Get(field); text.Type == gjson.String {
				variants = appendArtifact(variants, text.String())
				return true
			}
		}
		if text := item.Get(s.AnalysisField); text.Type == gjson.String {
			analysis = appendArtifact(analysis, text.String())
		}
		return true
	})
	return append(analysis, variants...)
}

func (s Strategy) normalizeObject(obj gjson.Result) []string {
	if parts := obj.Get("content.parts"); parts.IsArray() {
		var out []string
		parts.ForEach(func(_, part gjson.Result) bool {
			if text := part.Get("text"); text.Type == gjson.String {
				out = appendArtifact(out, text.String())
			}
			return true
		})
		if len(out) > 0 {
			return out
		}
	}
	if input := obj.Get("input"); input.IsArray() {
		var out []string
		input.ForEach(func(_, item gjson.Result) bool {
			if text := item.Get("prompt"); text.Type == gjson.String {
				out = appendArtifact(out, text.String())
			}
			return true
		})
		if len(out) > 0 {
			return out
		}
	}
	if variants := obj.Get("variants"); variants.IsArray() {
		var out []string
		variants.ForEach(func(_, item gjson.Result) bool {
			switch {
			case item.Type == gjson.String:
				out = appendArtifact(out, item.String())
			case item.IsObject():
				for _, field := range s.PromptFields {
					if text := item.Get(field); text.Type == gjson.String {
						out = appendArtifact(out, text.String())
						break
					}
				}
			}
			return true
		})
		if len(out) > 0 {
			return out
		}
	}
	var out []string
	for _, field := range []string{"output", "text", "prompt", "result", s.AnalysisField} {
		if text := obj.Get(field); text.Type == gjson.String {
			out = appendArtifact(out, text.String())
		}
	}
	return out
}

func appendArtifact(dst []string, raw string) []string {
	cleaned := stripFence(raw)
	if cleaned == "" {
		return dst
	}
	return append(dst, cleaned)
}

// stripFence removes a surrounding markdown code fence, keeping the inner
// content. The opening fence may carry a language hint (```yaml, ```text).
func stripFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	rest := trimmed[len("```"):]
	if idx := strings.IndexByte(rest, '\n'); idx >= 0 {
		rest = rest[idx+1:]
	}
	if idx := strings.LastIndex(rest, "```"); idx >= 0 {
		rest = rest[:idx]
	}
	return strings.TrimSpace(rest)
}
