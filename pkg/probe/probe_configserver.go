package probe

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/mittwald/mittprobe/internal/config"
	"github.com/mittwald/mittprobe/internal/helper"
	"github.com/mittwald/mittprobe/pkg/health"
)

type configServerProbe struct {
	uri     string
	name    string
	profile string
	label   string
	client  *http.Client
}

func NewConfigServerProbe(cfg *config.ConfigServer) (*configServerProbe, error) {
	cfg.URI = helper.ResolveEnv(cfg.URI)
	cfg.Name = helper.SetDefaultStringIfEmpty(helper.ResolveEnv(cfg.Name), "base", "name", "configServer")
	cfg.Profile = helper.SetDefaultStringIfEmpty(helper.ResolveEnv(cfg.Profile), "dev", "profile", "configServer")
	cfg.Label = helper.ResolveEnv(cfg.Label)

	if cfg.URI == "" {
		return nil, fmt.Errorf("config server probe requires an uri")
	}

	timeout, err := helper.ParseDurationOrDefault(cfg.Timeout, "5s", "timeout", "configServer")
	if err != nil {
		return nil, err
	}

	return &configServerProbe{
		uri:     strings.TrimRight(cfg.URI, "/"),
		name:    cfg.Name,
		profile: cfg.Profile,
		label:   cfg.Label,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// profileURL builds {uri}/{name}/{profile}[/{label}].
func (c *configServerProbe) profileURL() string {
	parts := []string{c.uri, url.PathEscape(c.name), url.PathEscape(c.profile)}
	if c.label != "" {
		parts = append(parts, url.PathEscape(c.label))
	}
	return strings.Join(parts, "/")
}

func (c *configServerProbe) Check() health.Report {
	return health.Indicate("configServer", func(b *health.Builder) error {
		target := c.profileURL()

		outcome := health.TimeValue(func() (int, error) {
			res, err := c.client.Get(target)
			if err != nil {
				return 0, err
			}
			defer res.Body.Close()
			_, _ = io.Copy(io.Discard, res.Body)
			return res.StatusCode, nil
		})

		b.WithDetail("timeMs", outcome.ElapsedMs())
		if !outcome.Succeeded() {
			return outcome.Err
		}

		b.WithDetail("statusCode", outcome.Value)
		if outcome.Value != http.StatusOK {
			b.Down(fmt.Errorf("config server %q returned status %d", target, outcome.Value))
			return nil
		}

		b.Up()
		return nil
	})
}

var _ Probe = &configServerProbe{}

