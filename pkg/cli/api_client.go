package cli

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mittwald/mittprobe/pkg/health"
	"github.com/mittwald/mittprobe/pkg/probe"
	"github.com/pkg/errors"
)

type APIClient struct {
	apiAddress string
}

func NewAPIClient(apiAddress string) *APIClient {
	return &APIClient{apiAddress: apiAddress}
}

func (api *APIClient) Status() *TypedAPIResponse[probe.StatusResponse] {
	client, u, err := api.buildHTTPClientAndURL("status")
	if err != nil {
		return &TypedAPIResponse[probe.StatusResponse]{Error: err}
	}
	return NewTypedAPIResponse[probe.StatusResponse](client.Get(u.String()))
}

func (api *APIClient) ProbeStatus(name string) *TypedAPIResponse[health.Report] {
	client, u, err := api.buildHTTPClientAndURL("status", name)
	if err != nil {
		return &TypedAPIResponse[health.Report]{Error: err}
	}
	return NewTypedAPIResponse[health.Report](client.Get(u.String()))
}

// Watch streams status responses at the given interval until ctx is done.
func (api *APIClient) Watch(ctx context.Context, interval time.Duration, fn func(probe.StatusResponse) error) APIResponse {
	dialer, u, err := api.buildWebsocketURL("status", "watch")
	if err != nil {
		return &TypedAPIResponse[probe.StatusResponse]{Error: err}
	}

	if interval > 0 {
		q := u.Query()
		q.Set("interval", interval.String())
		u.RawQuery = q.Encode()
	}

	return NewStreamingAPIResponse(ctx, u, dialer, func(msg []byte) error {
		var response probe.StatusResponse
		if err := json.Unmarshal(msg, &response); err != nil {
			return errors.Wrap(err, "failed to parse status response")
		}
		return fn(response)
	})
}
