// Package devkit holds test doubles for upstream adapters.
package devkit

import (
	"context"
	"strings"
	"sync"

	"github.com/goliatone/go-upstream-gateway/core"
)

type TransportScript struct {
	Response core.UpstreamResponse
	Err      error
}

// Responder answers a request dynamically. It takes precedence over scripts.
type Responder func(req core.UpstreamRequest) (core.UpstreamResponse, error)

// FakeTransportAdapter replays scripted responses in order, repeating the last
// one, and records every request it receives.
type FakeTransportAdapter struct {
	mu        sync.Mutex
	kind      string
	scripts   []TransportScript
	responder Responder
	requests  []core.UpstreamRequest
}

func NewFakeTransportAdapter(kind string, scripts ...TransportScript) *FakeTransportAdapter {
	return &FakeTransportAdapter{
		kind:    strings.TrimSpace(strings.ToLower(kind)),
		scripts: append([]TransportScript(nil), scripts...),
	}
}

func NewRespondingTransportAdapter(kind string, responder Responder) *FakeTransportAdapter {
	adapter := NewFakeTransportAdapter(kind)
	adapter.responder = responder
	return adapter
}

func (a *FakeTransportAdapter) Kind() string {
	if a == nil {
		return ""
	}
	return a.kind
}

func (a *FakeTransportAdapter) Do(_ context.Context, req core.UpstreamRequest) (core.UpstreamResponse, error) {
	if a == nil {
		return core.UpstreamResponse{}, core.NewInternalFault(nil, "devkit: fake transport adapter is nil", nil)
	}
	a.mu.Lock()
	a.requests = append(a.requests, cloneRequest(req))
	index := len(a.requests) - 1
	responder := a.responder
	a.mu.Unlock()

	if responder != nil {
		return responder(cloneRequest(req))
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.scripts) == 0 {
		return core.UpstreamResponse{StatusCode: 200, Headers: map[string]string{}, Body: []byte(`{}`)}, nil
	}
	if index >= len(a.scripts) {
		index = len(a.scripts) - 1
	}
	script := a.scripts[index]
	return cloneResponse(script.Response), script.Err
}

func (a *FakeTransportAdapter) Requests() []core.UpstreamRequest {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]core.UpstreamRequest, 0, len(a.requests))
	for _, item := range a.requests {
		out = append(out, cloneRequest(item))
	}
	return out
}

func (a *FakeTransportAdapter) CallCount() int {
	if a == nil {
		return 0
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.requests)
}

// JSON builds a scripted response with a raw body.
func JSON(status int, body string) TransportScript {
	return TransportScript{Response: Response(status, body)}
}

func Response(status int, body string) core.UpstreamResponse {
	return core.UpstreamResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       []byte(body),
	}
}

// ChallengePage is a representative anti-automation interstitial.
const ChallengePage = `<!DOCTYPE html><html><head><title>Just a moment...</title></head>` +
	`<body><script src="/cdn-cgi/challenge-platform/h/g/orchestrate/chl_page/v1"></script></body></html>`

func cloneRequest(in core.UpstreamRequest) core.UpstreamRequest {
	out := core.UpstreamRequest{
		Method:   in.Method,
		URL:      in.URL,
		Headers:  map[string]string{},
		Body:     append([]byte(nil), in.Body...),
		Metadata: map[string]any{},
	}
	for key, value := range in.Headers {
		out.Headers[key] = value
	}
	for key, value := range in.Metadata {
		out.Metadata[key] = value
	}
	return out
}

func cloneResponse(in core.UpstreamResponse) core.UpstreamResponse {
	out := core.UpstreamResponse{
		StatusCode: in.StatusCode,
		Headers:    map[string]string{},
		Body:       append([]byte(nil), in.Body...),
		Metadata:   map[string]any{},
	}
	for key, value := range in.Headers {
		out.Headers[key] = value
	}
	for key, value := range in.Metadata {
		out.Metadata[key] = value
	}
	return out
}

var _ core.TransportAdapter = (*FakeTransportAdapter)(nil)
