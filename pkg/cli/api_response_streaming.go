package cli

import (
	"context"
	"net/url"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

var _ APIResponse = &StreamingAPIResponse{}

// StreamingAPIResponseHandler is called for every websocket message. A
// returned error ends the stream.
type StreamingAPIResponseHandler func(msg []byte) error

type StreamingAPIResponse struct {
	ctx     context.Context
	url     *url.URL
	dialer  *websocket.Dialer
	handler StreamingAPIResponseHandler
}

func NewStreamingAPIResponse(ctx context.Context, u *url.URL, dialer *websocket.Dialer, handler StreamingAPIResponseHandler) *StreamingAPIResponse {
	return &StreamingAPIResponse{ctx: ctx, url: u, dialer: dialer, handler: handler}
}

func (resp *StreamingAPIResponse) Err() error {
	return nil
}

// Print streams messages to the handler until the server closes the
// connection or the context is done.
func (resp *StreamingAPIResponse) Print() error {
	ctx, cancel := context.WithCancel(resp.ctx)
	defer cancel()

	conn, _, err := resp.dialer.DialContext(ctx, resp.url.String(), nil)
	if err != nil {
		return errors.Wrapf(err, "error dialing to %s", resp.url.String())
	}
	defer conn.Close()

	// unblocks ReadMessage once the context is done
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}

		if err := resp.handler(msg); err != nil {
			return err
		}
	}
}
