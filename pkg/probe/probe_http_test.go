package probe

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/mittwald/mittprobe/internal/config"
	"github.com/mittwald/mittprobe/pkg/health"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHttpTestSubject(t *testing.T, srv *httptest.Server, cfg config.HTTP) *httpProbe {
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	cfg.Hostname = u.Hostname()
	cfg.Port = u.Port()

	subject, err := NewHttpProbe(&cfg)
	require.NoError(t, err)
	return subject
}

func TestHttpProbeSendsConfiguredRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/anything", r.URL.Path)
		assert.Equal(t, "yes", r.Header.Get("X-Probe"))
		assert.Equal(t, `{"ping":true}`, string(body))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	subject := newHttpTestSubject(t, srv, config.HTTP{
		Method:  "post",
		Path:    "/anything",
		Payload: `{"ping":true}`,
		Headers: map[string]string{"X-Probe": "yes"},
	})

	report := subject.Check()

	assert.Equal(t, health.StatusUp, report.Status())
	code, _ := report.Detail("statusCode")
	assert.Equal(t, http.StatusAccepted, code)
}

func TestHttpProbeErrorStatusCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	subject := newHttpTestSubject(t, srv, config.HTTP{Path: "/status/503"})

	report := subject.Check()

	assert.Equal(t, health.StatusDown, report.Status())
	msg, _ := report.Detail("error")
	assert.Contains(t, msg, "returned status \"503 Service Unavailable\"")
}

func TestHttpProbeCustomExpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	subject := newHttpTestSubject(t, srv, config.HTTP{ExpectStatus: `^418\s`})

	assert.Equal(t, health.StatusUp, subject.Check().Status())
}

func TestNewHttpProbeRejectsInvalidConfig(t *testing.T) {
	_, err := NewHttpProbe(&config.HTTP{Host: config.Host{Hostname: "web"}, ExpectStatus: "("})
	assert.ErrorContains(t, err, "invalid HTTP status line regexp")

	_, err = NewHttpProbe(&config.HTTP{Host: config.Host{Hostname: "web"}, Timeout: "forever"})
	assert.ErrorContains(t, err, "invalid timeout duration")
}
