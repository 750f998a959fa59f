package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	GatewayErrorBadInput            = "GATEWAY_BAD_INPUT"
	GatewayErrorUpstreamRejected    = "GATEWAY_UPSTREAM_REJECTED"
	GatewayErrorUpstreamUnavailable = "GATEWAY_UPSTREAM_UNAVAILABLE"
	GatewayErrorAuthBlocked         = "GATEWAY_AUTH_BLOCKED"
	GatewayErrorRateLimited         = "GATEWAY_RATE_LIMITED"
	GatewayErrorNotFound            = "GATEWAY_NOT_FOUND"
	GatewayErrorMethodNotAllowed    = "GATEWAY_METHOD_NOT_ALLOWED"
	GatewayErrorInternal            = "GATEWAY_INTERNAL_ERROR"
)

const internalFaultMessage = "An unexpected error occurred"

// NewCallerInputError reports missing or invalid fields in an inbound body.
func NewCallerInputError(message string, metadata map[string]any) *goerrors.Error {
	return newGatewayError(message, goerrors.CategoryBadInput, http.StatusBadRequest, GatewayErrorBadInput, metadata)
}

// NewUpstreamRejection reports an upstream that understood the request and
// declined it. The upstream message is passed through to the caller.
func NewUpstreamRejection(message string, metadata map[string]any) *goerrors.Error {
	return newGatewayError(message, goerrors.CategoryOperation, http.StatusBadRequest, GatewayErrorUpstreamRejected, metadata)
}

func NewUpstreamUnavailable(source error, message string, metadata map[string]any) *goerrors.Error {
	return wrapGatewayError(source, goerrors.CategoryExternal, message, http.StatusInternalServerError, GatewayErrorUpstreamUnavailable, metadata)
}

// NewAuthBlocked reports a login rejected by an anti-automation challenge.
// When it reaches the caller it is surfaced as an unavailable upstream.
func NewAuthBlocked(message string, metadata map[string]any) *goerrors.Error {
	return newGatewayError(message, goerrors.CategoryAuth, http.StatusInternalServerError, GatewayErrorAuthBlocked, metadata)
}

func NewRateLimited(message string, metadata map[string]any) *goerrors.Error {
	return newGatewayError(message, goerrors.CategoryRateLimit, http.StatusTooManyRequests, GatewayErrorRateLimited, metadata)
}

func NewInternalFault(source error, message string, metadata map[string]any) *goerrors.Error {
	return wrapGatewayError(source, goerrors.CategoryInternal, message, http.StatusInternalServerError, GatewayErrorInternal, metadata)
}

func NewMissingConfiguration(setting string, upstream string) *goerrors.Error {
	return NewInternalFault(nil, "gateway: required configuration is missing", map[string]any{
		"setting":  setting,
		"upstream": upstream,
	})
}

func IsAuthBlocked(err error) bool {
	return hasTextCode(err, GatewayErrorAuthBlocked)
}

func IsRateLimited(err error) bool {
	return hasTextCode(err, GatewayErrorRateLimited)
}

func IsUpstreamUnavailable(err error) bool {
	return hasTextCode(err, GatewayErrorUpstreamUnavailable)
}

// AsGatewayError maps any error into the gateway taxonomy. Errors that did not
// originate from this package are treated as internal faults.
func AsGatewayError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureGatewayEnvelope(richErr)
	}
	return NewInternalFault(err, internalFaultMessage, nil)
}

// EnvelopeFromError is the single conversion point from a classified failure to
// the outbound envelope. Internal faults never expose their detail.
func EnvelopeFromError(err error) Envelope {
	mapped := AsGatewayError(err)
	if mapped == nil {
		return JSONEnvelope(http.StatusInternalServerError, MessageBody(internalFaultMessage))
	}
	message := strings.TrimSpace(mapped.Message)
	if mapped.Category == goerrors.CategoryInternal || message == "" {
		message = internalFaultMessage
	}
	return JSONEnvelope(mapped.Code, MessageBody(message))
}

func newGatewayError(
	message string,
	category goerrors.Category,
	code int,
	textCode string,
	metadata map[string]any,
) *goerrors.Error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func wrapGatewayError(
	source error,
	category goerrors.Category,
	message string,
	code int,
	textCode string,
	metadata map[string]any,
) *goerrors.Error {
	// goerrors.Wrap clones a wrapped *goerrors.Error and keeps its category and
	// text code, so the source is attached to a fresh error instead.
	err := newGatewayError(message, category, code, textCode, metadata)
	err.Source = source
	return err
}

func hasTextCode(err error, textCode string) bool {
	for err != nil {
		var richErr *goerrors.Error
		if !goerrors.As(err, &richErr) {
			return false
		}
		if richErr.TextCode == textCode {
			return true
		}
		err = richErr.Source
	}
	return false
}

func ensureGatewayEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = gatewayHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultGatewayTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = internalFaultMessage
	}
	return err
}

func defaultGatewayTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return GatewayErrorBadInput
	case goerrors.CategoryOperation:
		return GatewayErrorUpstreamRejected
	case goerrors.CategoryExternal:
		return GatewayErrorUpstreamUnavailable
	case goerrors.CategoryAuth:
		return GatewayErrorAuthBlocked
	case goerrors.CategoryRateLimit:
		return GatewayErrorRateLimited
	case goerrors.CategoryNotFound:
		return GatewayErrorNotFound
	case goerrors.CategoryMethodNotAllowed:
		return GatewayErrorMethodNotAllowed
	default:
		return GatewayErrorInternal
	}
}

func gatewayHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation, goerrors.CategoryOperation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
