package inbound

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-upstream-gateway/core"
)

const (
	HeaderRequestID = "X-Request-ID"

	DefaultMaxBodyBytes int64 = 1 << 20
)

// Handler serves one route. body is always a JSON document.
type Handler interface {
	Handle(ctx context.Context, body []byte) (core.Envelope, error)
}

type HandlerFunc func(ctx context.Context, body []byte) (core.Envelope, error)

func (f HandlerFunc) Handle(ctx context.Context, body []byte) (core.Envelope, error) {
	return f(ctx, body)
}

type Request struct {
	Method    string
	Path      string
	Body      []byte
	RequestID string
}

// Dispatcher maps exact paths to handlers. Only POST is served; OPTIONS is
// answered for registered paths.
type Dispatcher struct {
	Observer     *core.Observer
	MaxBodyBytes int64

	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewDispatcher(observer *core.Observer) *Dispatcher {
	return &Dispatcher{
		Observer:     observer,
		MaxBodyBytes: DefaultMaxBodyBytes,
		handlers:     map[string]Handler{},
	}
}

func (d *Dispatcher) Register(path string, handler Handler) error {
	if d == nil {
		return core.NewInternalFault(nil, "inbound: dispatcher is nil", nil)
	}
	path = normalizePath(path)
	if path == "/" {
		return fmt.Errorf("inbound: route path is required")
	}
	if handler == nil {
		return fmt.Errorf("inbound: handler for %q is nil", path)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.handlers == nil {
		d.handlers = map[string]Handler{}
	}
	if _, exists := d.handlers[path]; exists {
		return fmt.Errorf("inbound: handler already registered for %q", path)
	}
	d.handlers[path] = handler
	return nil
}

// Routes lists registered paths in sorted order.
func (d *Dispatcher) Routes() []string {
	if d == nil {
		return nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.handlers))
	for path := range d.handlers {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (env core.Envelope) {
	if d == nil {
		return core.EnvelopeFromError(core.NewInternalFault(nil, "inbound: dispatcher is nil", nil))
	}
	if ctx == nil {
		ctx = context.Background()
	}
	path := normalizePath(req.Path)
	handler := d.handlerFor(path)
	if handler == nil {
		return core.EmptyEnvelope(http.StatusNotFound)
	}
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	switch method {
	case http.MethodPost:
	case http.MethodOptions:
		return core.EmptyEnvelope(http.StatusNoContent)
	default:
		return core.EnvelopeFromError(methodNotAllowed(method, path))
	}

	body := bytes.TrimSpace(req.Body)
	if len(body) == 0 {
		body = []byte("{}")
	}
	if !json.Valid(body) {
		return core.EnvelopeFromError(invalidBody(nil))
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			err := core.NewInternalFault(fmt.Errorf("panic: %v", recovered), "inbound: handler panicked", map[string]any{
				"path": path,
			})
			d.Observer.Error(ctx, "inbound handler panicked", map[string]any{
				"path":       path,
				"request_id": req.RequestID,
				"panic":      fmt.Sprint(recovered),
				"stack":      string(debug.Stack()),
			})
			env = core.EnvelopeFromError(err)
		}
	}()

	result, err := handler.Handle(ctx, body)
	if err != nil {
		mapped := core.AsGatewayError(err)
		if mapped.Code >= http.StatusInternalServerError {
			d.Observer.Error(ctx, "inbound handler failed", map[string]any{
				"path":       path,
				"request_id": req.RequestID,
				"error":      err.Error(),
				"text_code":  mapped.TextCode,
				"metadata":   mapped.Metadata,
			})
		}
		return core.EnvelopeFromError(mapped)
	}
	if result.StatusCode == 0 {
		result.StatusCode = http.StatusOK
	}
	return result
}

func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	startedAt := time.Now()
	requestID := strings.TrimSpace(r.Header.Get(HeaderRequestID))
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set(HeaderRequestID, requestID)

	var env core.Envelope
	body, err := d.readBody(w, r)
	if err != nil {
		env = core.EnvelopeFromError(invalidBody(err))
	} else {
		env = d.Dispatch(r.Context(), Request{
			Method:    r.Method,
			Path:      r.URL.Path,
			Body:      body,
			RequestID: requestID,
		})
	}
	if env.StatusCode == http.StatusMethodNotAllowed || env.StatusCode == http.StatusNoContent {
		w.Header().Set("Allow", "POST, OPTIONS")
	}
	if writeErr := env.Write(w); writeErr != nil {
		d.Observer.Warn(r.Context(), "inbound response write failed", map[string]any{
			"request_id": requestID,
			"error":      writeErr.Error(),
		})
	}
	d.Observer.ObserveRequest(r.Context(), startedAt, r.Method, r.URL.Path, env.StatusCode, map[string]any{
		"request_id": requestID,
	})
}

func (d *Dispatcher) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	limit := d.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	return io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
}

func (d *Dispatcher) handlerFor(path string) Handler {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.handlers[path]
}

func normalizePath(path string) string {
	path = strings.TrimSpace(path)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	return path
}

var _ http.Handler = (*Dispatcher)(nil)
