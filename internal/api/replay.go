package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/finzz-app/finzz-client/internal/model"
)

// ReplayIntent resends a queued mutation intent through the authenticated
// pipeline. It is the handler the sync queue's drain runs against.
func (c *Client) ReplayIntent(ctx context.Context, intent model.Intent) error {
	var method string
	switch intent.Kind {
	case model.IntentCreate:
		method = http.MethodPost
	case model.IntentUpdate:
		method = http.MethodPut
	case model.IntentDelete:
		method = http.MethodDelete
	default:
		return fmt.Errorf("unknown intent kind %q", intent.Kind)
	}

	var body any
	if len(intent.Payload) > 0 {
		body = json.RawMessage(intent.Payload)
	}

	if err := c.Do(ctx, method, intent.Endpoint, body, nil); err != nil {
		return fmt.Errorf("failed to replay intent %s: %w", intent.ID, err)
	}
	return nil
}
