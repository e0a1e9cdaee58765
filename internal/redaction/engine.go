// Package redaction scrubs secrets from finding evidence before it
// reaches reports or the history store. Captured navigation URLs
// routinely carry session tokens and API keys; none of them belong in a
// persisted artifact.
package redaction

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/verityhq/verity/internal/domain"
)

// Engine performs regex-based secret detection and redaction.
type Engine struct {
	patterns []*regexp.Regexp
}

// NewEngine creates a redaction engine with the default secret patterns.
func NewEngine() *Engine {
	return &Engine{patterns: defaultPatterns()}
}

// SanitizeFinding returns a copy of the finding with secrets scrubbed
// from every free-text field the sensors may have captured. The input
// finding is never mutated.
func (e *Engine) SanitizeFinding(f domain.Finding) domain.Finding {
	f.Signals.Navigation.FromURL = e.Redact(f.Signals.Navigation.FromURL)
	f.Signals.Navigation.ToURL = e.Redact(f.Signals.Navigation.ToURL)
	return f
}

// Redact replaces every detected secret with a stable placeholder. The
// placeholder is derived from the secret's hash, so the same secret
// redacts identically across findings and runs.
func (e *Engine) Redact(input string) string {
	if input == "" {
		return input
	}

	seen := map[string]string{}
	for _, pattern := range e.patterns {
		for _, match := range pattern.FindAllString(input, -1) {
			if _, ok := seen[match]; ok {
				continue
			}
			seen[match] = placeholder(match)
		}
	}

	result := input
	for secret, ph := range seen {
		result = strings.ReplaceAll(result, secret, ph)
	}
	return result
}

// IsRedacted reports whether the content already carries placeholders.
func (e *Engine) IsRedacted(content string) bool {
	return strings.Contains(content, "<REDACTED:")
}

func placeholder(secret string) string {
	hash := sha256.Sum256([]byte(secret))
	return fmt.Sprintf("<REDACTED:%s>", hex.EncodeToString(hash[:])[:8])
}

// defaultPatterns covers the secret shapes that show up in captured
// browser traffic: bearer headers, JWTs, vendor API keys, and
// credential-bearing query parameters.
func defaultPatterns() []*regexp.Regexp {
	patterns := []string{
		// Credential-looking query parameters (token=..., api_key=...).
		`(?i)[?&](?:token|access_token|api_key|apikey|session|sessionid|auth|secret|key)=[^&\s"']+`,
		// JWT tokens
		`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`,
		// Bearer tokens
		`Bearer\s+[a-zA-Z0-9_\-\.]+`,
		// OpenAI-style API keys
		`sk-[a-zA-Z0-9]{20,}`,
		// AWS Access Key ID
		`AKIA[0-9A-Z]{16}`,
		// GitHub tokens
		`gh[posr]_[a-zA-Z0-9]{20,}`,
		// Google API keys
		`AIza[0-9A-Za-z\-_]{35}`,
		// Slack tokens
		`xox[baprs]-[a-zA-Z0-9\-]{10,}`,
	}

	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		compiled = append(compiled, regexp.MustCompile(pattern))
	}
	return compiled
}
