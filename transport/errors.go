package transport

import (
	"github.com/goliatone/go-upstream-gateway/core"
)

func unavailableError(source error, message string, metadata map[string]any) error {
	return core.NewUpstreamUnavailable(source, message, metadata)
}

func internalError(source error, message string, metadata map[string]any) error {
	return core.NewInternalFault(source, message, metadata)
}
