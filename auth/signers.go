package auth

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/goliatone/go-upstream-gateway/core"
)

const (
	HeaderAuthorization = "Authorization"
	HeaderAPIKey        = "X-API-Key"
)

// TokenSource yields the bearer token for an upstream.
type TokenSource interface {
	GetToken(ctx context.Context) (string, error)
}

// BasicSigner sets Authorization: Basic base64(username:password). An empty
// password is allowed for upstreams that authenticate with "apiKey:".
type BasicSigner struct {
	Username string
	Password string
}

func NewBasicSigner(username string, password string) BasicSigner {
	return BasicSigner{Username: strings.TrimSpace(username), Password: password}
}

func (s BasicSigner) Sign(_ context.Context, req *core.UpstreamRequest) error {
	if s.Username == "" {
		return core.NewInternalFault(nil, "auth: basic signer requires a username", nil)
	}
	encoded := base64.StdEncoding.EncodeToString([]byte(s.Username + ":" + s.Password))
	setHeader(req, HeaderAuthorization, "Basic "+encoded)
	return nil
}

type BearerSigner struct {
	Tokens TokenSource
}

func NewBearerSigner(tokens TokenSource) BearerSigner {
	return BearerSigner{Tokens: tokens}
}

func (s BearerSigner) Sign(ctx context.Context, req *core.UpstreamRequest) error {
	if s.Tokens == nil {
		return core.NewInternalFault(nil, "auth: bearer signer requires a token source", nil)
	}
	token, err := s.Tokens.GetToken(ctx)
	if err != nil {
		return err
	}
	setHeader(req, HeaderAuthorization, "Bearer "+token)
	return nil
}

type APIKeySigner struct {
	Header string
	Key    string
}

func NewAPIKeySigner(key string) APIKeySigner {
	return APIKeySigner{Header: HeaderAPIKey, Key: strings.TrimSpace(key)}
}

func (s APIKeySigner) Sign(_ context.Context, req *core.UpstreamRequest) error {
	if s.Key == "" {
		return core.NewInternalFault(nil, "auth: api key signer requires a key", nil)
	}
	header := firstNonEmpty(s.Header, HeaderAPIKey)
	setHeader(req, header, s.Key)
	return nil
}

func setHeader(req *core.UpstreamRequest, key string, value string) {
	if req.Headers == nil {
		req.Headers = map[string]string{}
	}
	req.Headers[key] = value
}

var (
	_ core.Signer = BasicSigner{}
	_ core.Signer = BearerSigner{}
	_ core.Signer = APIKeySigner{}
)
