package cli

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/gorilla/websocket"
)

const defaultRequestTimeout = 30 * time.Second

// endpoint resolves p against the api address. For "unix:///path.sock"
// addresses the socket path is replaced by p and the host is set to a
// placeholder.
func (api *APIClient) endpoint(scheme string, p ...string) (*url.URL, string, error) {
	u, err := url.Parse(api.apiAddress)
	if err != nil {
		return nil, "", err
	}

	socketPath := ""
	base := "/" + u.Path
	if u.Scheme == "unix" {
		socketPath = u.Path
		base = "/"
		u.Host = "unix"
	}

	u.Scheme = scheme
	u.Path = path.Join(append([]string{base}, p...)...)
	return u, socketPath, nil
}

func (api *APIClient) buildHTTPClientAndURL(p ...string) (*http.Client, *url.URL, error) {
	u, socketPath, err := api.endpoint("http", p...)
	if err != nil {
		return nil, nil, err
	}

	if parsed, _ := url.Parse(api.apiAddress); parsed != nil && parsed.Scheme == "https" {
		u.Scheme = "https"
	}

	if socketPath == "" {
		return &http.Client{Timeout: defaultRequestTimeout}, u, nil
	}

	return &http.Client{
		Timeout: defaultRequestTimeout,
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", socketPath)
			},
		},
	}, u, nil
}

func (api *APIClient) buildWebsocketURL(p ...string) (*websocket.Dialer, *url.URL, error) {
	u, socketPath, err := api.endpoint("ws", p...)
	if err != nil {
		return nil, nil, err
	}

	if parsed, _ := url.Parse(api.apiAddress); parsed != nil && parsed.Scheme == "https" {
		u.Scheme = "wss"
	}

	if socketPath == "" {
		return websocket.DefaultDialer, u, nil
	}

	return &websocket.Dialer{
		NetDialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", socketPath)
		},
	}, u, nil
}
