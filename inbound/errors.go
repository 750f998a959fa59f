package inbound

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-upstream-gateway/core"
)

func inboundError(
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

func methodNotAllowed(method string, path string) *goerrors.Error {
	return inboundError("Method not allowed", goerrors.CategoryMethodNotAllowed, http.StatusMethodNotAllowed, core.GatewayErrorMethodNotAllowed, map[string]any{
		"method": method,
		"path":   path,
	})
}

func invalidBody(source error) *goerrors.Error {
	metadata := map[string]any{}
	if source != nil {
		metadata["error"] = source.Error()
	}
	return core.NewCallerInputError("Invalid JSON body", metadata)
}
