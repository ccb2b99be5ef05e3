package handler

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/gzip"
	"github.com/valyala/fastjson"

	"github.com/V4T54L/logsink/internal/domain"
	"github.com/V4T54L/logsink/internal/usecase"
)

// LogIngester accepts one decoded event.
type LogIngester interface {
	Ingest(ctx context.Context, event *domain.LogEvent) error
}

var (
	errDecode     = errors.New("failed to decode JSON")
	errDecodeLine = errors.New("failed to decode NDJSON line")
)

// IngestHandler handles HTTP requests for log ingestion.
type IngestHandler struct {
	useCase      LogIngester
	logger       *slog.Logger
	maxEventSize int64
	parsers      fastjson.ParserPool
}

// NewIngestHandler creates a new IngestHandler.
func NewIngestHandler(uc LogIngester, logger *slog.Logger, maxEventSize int64) *IngestHandler {
	return &IngestHandler{
		useCase:      uc,
		logger:       logger.With("component", "ingest_handler"),
		maxEventSize: maxEventSize,
	}
}

// ServeHTTP accepts a JSON object, a JSON array of objects, or NDJSON,
// optionally gzip-compressed.
func (h *IngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	contentType := r.Header.Get("Content-Type")
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || (mediaType != "application/json" && mediaType != "application/x-ndjson") {
		http.Error(w, "Unsupported Media Type: "+contentType, http.StatusUnsupportedMediaType)
		return
	}

	// Enforce max body size
	var body io.ReadCloser = http.MaxBytesReader(w, r.Body, h.maxEventSize)
	if r.Header.Get("Content-Encoding") == "gzip" {
		zr, err := gzip.NewReader(body)
		if err != nil {
			h.fail(w, err)
			return
		}
		defer zr.Close()
		body = http.MaxBytesReader(w, zr, h.maxEventSize)
	}

	if mediaType == "application/json" {
		err = h.handleJSON(r.Context(), body)
	} else {
		err = h.handleNDJSON(r.Context(), body)
	}
	if err != nil {
		h.fail(w, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (h *IngestHandler) fail(w http.ResponseWriter, err error) {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesErr):
		http.Error(w, maxBytesErr.Error(), http.StatusRequestEntityTooLarge)
	case errors.Is(err, gzip.ErrHeader), errors.Is(err, gzip.ErrChecksum):
		http.Error(w, "Bad Request: Invalid gzip body", http.StatusBadRequest)
	case errors.Is(err, errDecode):
		http.Error(w, "Bad Request: Failed to decode JSON", http.StatusBadRequest)
	case errors.Is(err, errDecodeLine):
		http.Error(w, "Bad Request: Failed to decode NDJSON line", http.StatusBadRequest)
	case errors.Is(err, usecase.ErrEmptyMessage):
		http.Error(w, "Bad Request: Event has no message", http.StatusBadRequest)
	default:
		h.logger.Error("failed to process ingest request", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (h *IngestHandler) handleJSON(ctx context.Context, body io.Reader) error {
	raw, err := io.ReadAll(body)
	if err != nil {
		return err
	}

	p := h.parsers.Get()
	defer h.parsers.Put(p)

	v, err := p.ParseBytes(raw)
	if err != nil {
		return errors.Mark(err, errDecode)
	}

	var values []*fastjson.Value
	switch v.Type() {
	case fastjson.TypeObject:
		values = []*fastjson.Value{v}
	case fastjson.TypeArray:
		values, _ = v.Array()
	default:
		return errors.Mark(errors.Newf("unexpected JSON %s", v.Type()), errDecode)
	}

	// Decode everything first so a bad element rejects the whole request.
	events := make([]domain.LogEvent, 0, len(values))
	for i, item := range values {
		event, err := decodeEvent(item)
		if err != nil {
			return errors.Mark(errors.Wrapf(err, "element %d", i), errDecode)
		}
		events = append(events, event)
	}
	for i := range events {
		if err := h.useCase.Ingest(ctx, &events[i]); err != nil {
			return err
		}
	}
	return nil
}

func (h *IngestHandler) handleNDJSON(ctx context.Context, body io.Reader) error {
	p := h.parsers.Get()
	defer h.parsers.Put(p)

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), int(h.maxEventSize)+1)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		v, err := p.ParseBytes(line)
		if err != nil {
			return errors.Mark(err, errDecodeLine)
		}
		event, err := decodeEvent(v)
		if err != nil {
			return errors.Mark(err, errDecodeLine)
		}
		if err := h.useCase.Ingest(ctx, &event); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// decodeEvent maps a JSON object onto a LogEvent. Unknown keys are ignored.
func decodeEvent(v *fastjson.Value) (domain.LogEvent, error) {
	obj, err := v.Object()
	if err != nil {
		return domain.LogEvent{}, err
	}

	event := domain.LogEvent{Level: domain.LevelInformation}
	if ts := obj.Get("timestamp"); ts != nil {
		b, err := ts.StringBytes()
		if err != nil {
			return domain.LogEvent{}, errors.Wrap(err, "timestamp")
		}
		event.Timestamp, err = time.Parse(time.RFC3339Nano, string(b))
		if err != nil {
			return domain.LogEvent{}, errors.Wrap(err, "timestamp")
		}
	}
	if lv := obj.Get("level"); lv != nil {
		b, err := lv.StringBytes()
		if err != nil {
			return domain.LogEvent{}, errors.Wrap(err, "level")
		}
		event.Level, err = domain.ParseLevel(string(b))
		if err != nil {
			return domain.LogEvent{}, err
		}
	}
	event.MessageTemplate = string(obj.Get("messageTemplate").GetStringBytes())
	event.RenderedMessage = string(obj.Get("message").GetStringBytes())
	event.Exception = string(obj.Get("exception").GetStringBytes())

	if props := obj.Get("properties"); props != nil {
		if props.Type() != fastjson.TypeObject {
			return domain.LogEvent{}, errors.New("properties must be an object")
		}
		if m, _ := toGo(props).(map[string]any); len(m) > 0 {
			event.Properties = m
		}
	}
	return event, nil
}

func toGo(v *fastjson.Value) any {
	switch v.Type() {
	case fastjson.TypeObject:
		o, _ := v.Object()
		m := make(map[string]any, o.Len())
		o.Visit(func(k []byte, item *fastjson.Value) {
			m[string(k)] = toGo(item)
		})
		return m
	case fastjson.TypeArray:
		items, _ := v.Array()
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = toGo(item)
		}
		return out
	case fastjson.TypeString:
		return string(v.GetStringBytes())
	case fastjson.TypeNumber:
		if n, err := v.Int64(); err == nil {
			return n
		}
		return v.GetFloat64()
	case fastjson.TypeTrue:
		return true
	case fastjson.TypeFalse:
		return false
	default:
		return nil
	}
}
