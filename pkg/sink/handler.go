package sink

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/V4T54L/logsink/internal/domain"
)

// Handler is an slog.Handler feeding an EventSink. The record message is
// used as the message template; attributes become event properties, groups
// become nested objects, and an error attribute keyed "exception" or "error"
// becomes the event's exception text.
type Handler struct {
	sink   EventSink
	levels *LevelSwitch
	attrs  []scopedAttr
	groups []string
}

type scopedAttr struct {
	groups []string
	attr   slog.Attr
}

var _ slog.Handler = (*Handler)(nil)

// NewHandler returns a handler emitting into s. A nil levels enables everything.
func NewHandler(s EventSink, levels *LevelSwitch) *Handler {
	if levels == nil {
		levels = domain.NewLevelSwitch(LevelVerbose)
	}
	return &Handler{sink: s, levels: levels}
}

// Handler returns an slog.Handler writing into the sink.
func (s *Sink) Handler() *Handler {
	return NewHandler(s, s.Levels())
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return h.levels.Enabled(domain.LevelFromSlog(level))
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	event := LogEvent{
		Timestamp:       r.Time,
		Level:           domain.LevelFromSlog(r.Level),
		MessageTemplate: r.Message,
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	props := make(map[string]any)
	for _, sa := range h.attrs {
		addAttr(&event, props, sa.groups, sa.attr)
	}
	r.Attrs(func(a slog.Attr) bool {
		addAttr(&event, props, h.groups, a)
		return true
	})

	if len(props) > 0 {
		event.Properties = props
	}
	event.RenderedMessage = domain.RenderTemplate(event.MessageTemplate, event.Properties)

	h.sink.Emit(event)
	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	h2 := *h
	h2.attrs = slices.Clip(h.attrs)
	for _, a := range attrs {
		h2.attrs = append(h2.attrs, scopedAttr{groups: h.groups, attr: a})
	}
	return &h2
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.groups = append(slices.Clip(h.groups), name)
	return &h2
}

func addAttr(event *LogEvent, props map[string]any, groups []string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	if len(groups) == 0 && (a.Key == "exception" || a.Key == "error") && a.Value.Kind() == slog.KindAny {
		if err, ok := a.Value.Any().(error); ok && err != nil {
			event.Exception = err.Error()
			return
		}
	}

	if a.Value.Kind() == slog.KindGroup {
		members := a.Value.Group()
		if len(members) == 0 {
			return
		}
		if a.Key == "" {
			for _, m := range members {
				addAttr(event, props, groups, m)
			}
			return
		}
		for _, m := range members {
			addAttr(event, props, append(slices.Clip(groups), a.Key), m)
		}
		return
	}

	target := props
	for _, g := range groups {
		next, ok := target[g].(map[string]any)
		if !ok {
			next = make(map[string]any)
			target[g] = next
		}
		target = next
	}

	target[a.Key] = attrValue(a.Value)
}

func attrValue(v slog.Value) any {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindInt64:
		return v.Int64()
	case slog.KindUint64:
		return v.Uint64()
	case slog.KindFloat64:
		return v.Float64()
	case slog.KindBool:
		return v.Bool()
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339Nano)
	default:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return v.Any()
	}
}
