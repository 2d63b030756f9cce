package probe

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/mittwald/mittprobe/internal/config"
	"github.com/mittwald/mittprobe/internal/helper"
	"github.com/mittwald/mittprobe/pkg/health"
	"github.com/pkg/errors"
)

type httpProbe struct {
	method  string
	url     string
	payload string
	headers map[string]string
	status  *regexp.Regexp
	client  *http.Client
}

func NewHttpProbe(cfg *config.HTTP) (*httpProbe, error) {
	cfg.Method = helper.SetDefaultStringIfEmpty(helper.ResolveEnv(cfg.Method), "GET", "method", "http")
	cfg.Scheme = helper.SetDefaultStringIfEmpty(helper.ResolveEnv(cfg.Scheme), "http", "scheme", "http")
	cfg.Hostname = helper.ResolveEnv(cfg.Hostname)
	cfg.Port = helper.ResolveEnv(cfg.Port)
	cfg.Path = helper.ResolveEnv(cfg.Path)
	cfg.ExpectStatus = helper.SetDefaultStringIfEmpty(helper.ResolveEnv(cfg.ExpectStatus), `(1|2|3)\d\d\s`, "expectStatus", "http")

	host := cfg.Hostname
	if cfg.Port != "" {
		host = net.JoinHostPort(cfg.Hostname, cfg.Port)
	}

	status, err := regexp.Compile(cfg.ExpectStatus)
	if err != nil {
		return nil, errors.Wrap(err, "invalid HTTP status line regexp")
	}

	timeout, err := helper.ParseDurationOrDefault(cfg.Timeout, "5s", "timeout", "http")
	if err != nil {
		return nil, err
	}

	u := url.URL{Scheme: cfg.Scheme, Host: host, Path: cfg.Path}

	return &httpProbe{
		method:  strings.ToUpper(cfg.Method),
		url:     u.String(),
		payload: cfg.Payload,
		headers: cfg.Headers,
		status:  status,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (h *httpProbe) do() (*http.Response, error) {
	req, err := http.NewRequest(h.method, h.url, strings.NewReader(h.payload))
	if err != nil {
		return nil, err
	}

	for k, v := range h.headers {
		req.Header.Set(k, v)
	}

	res, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)

	return res, nil
}

func (h *httpProbe) Check() health.Report {
	return health.Indicate("http", func(b *health.Builder) error {
		outcome := health.TimeValue(h.do)

		b.WithDetail("timeMs", outcome.ElapsedMs())
		if !outcome.Succeeded() {
			return outcome.Err
		}

		res := outcome.Value
		b.WithDetail("statusCode", res.StatusCode)

		// match against the full status line, e.g. "200 OK"
		if !h.status.MatchString(res.Status + " ") {
			return fmt.Errorf("http service %q returned status %q", h.url, res.Status)
		}

		b.Up()
		return nil
	})
}

var _ Probe = &httpProbe{}
