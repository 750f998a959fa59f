package inbound

import (
	"context"
	"encoding/json"

	"github.com/goliatone/go-command"

	"github.com/goliatone/go-upstream-gateway/adapters/gocommand"
	"github.com/goliatone/go-upstream-gateway/core"
)

type validator interface {
	Validate() error
}

// Route decodes the body into T, validates it and runs the query. Validation
// failures are returned as they are so their status reaches the caller.
func Route[T command.Message](q command.Querier[T, core.Envelope]) Handler {
	return HandlerFunc(func(ctx context.Context, body []byte) (core.Envelope, error) {
		if q == nil {
			return core.Envelope{}, core.NewInternalFault(nil, "inbound: route has no query", nil)
		}
		var msg T
		if err := json.Unmarshal(body, &msg); err != nil {
			return core.Envelope{}, invalidBody(err)
		}
		if v, ok := any(msg).(validator); ok {
			if err := v.Validate(); err != nil {
				return core.Envelope{}, err
			}
		}
		if err := gocommand.ValidateMessageContract(msg); err != nil {
			return core.Envelope{}, core.NewInternalFault(err, "inbound: message contract violated", map[string]any{
				"type": msg.Type(),
			})
		}
		return q.Query(ctx, msg)
	})
}
