package pii

import (
	"log/slog"
	"maps"
	"strings"

	"github.com/V4T54L/logsink/internal/domain"
)

const RedactedPlaceholder = "[REDACTED]"

// Redactor masks sensitive properties of log events before they are queued.
type Redactor struct {
	fieldsToRedact map[string]struct{} // lower-cased property names
	logger         *slog.Logger
}

// NewRedactor creates a new Redactor instance with a given set of property names to redact.
// Matching is case-insensitive; blank names are ignored.
func NewRedactor(fields []string, logger *slog.Logger) *Redactor {
	fieldSet := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		field = strings.ToLower(strings.TrimSpace(field))
		if field == "" {
			continue
		}
		fieldSet[field] = struct{}{}
	}
	return &Redactor{
		fieldsToRedact: fieldSet,
		logger:         logger,
	}
}

// Enabled reports whether any field is configured for redaction.
func (r *Redactor) Enabled() bool {
	return r != nil && len(r.fieldsToRedact) > 0
}

// Redact returns the event with sensitive properties masked. The caller's
// property map is never modified: a copy is made when anything changes, and
// the rendered message is re-rendered from the template.
func (r *Redactor) Redact(event domain.LogEvent) (domain.LogEvent, bool) {
	if !r.Enabled() || len(event.Properties) == 0 {
		return event, false
	}

	var redacted map[string]any
	for key := range event.Properties {
		if _, ok := r.fieldsToRedact[strings.ToLower(key)]; !ok {
			continue
		}
		if redacted == nil {
			redacted = maps.Clone(event.Properties)
		}
		redacted[key] = RedactedPlaceholder
	}
	if redacted == nil {
		return event, false
	}

	event.Properties = redacted
	if event.MessageTemplate != "" {
		event.RenderedMessage = domain.RenderTemplate(event.MessageTemplate, redacted)
	}
	r.logger.Debug("redacted log event properties", "template", event.MessageTemplate)
	return event, true
}
