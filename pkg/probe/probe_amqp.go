package probe

import (
	"fmt"
	"net"
	"net/url"

	"github.com/mittwald/mittprobe/internal/config"
	"github.com/mittwald/mittprobe/internal/helper"
	"github.com/mittwald/mittprobe/pkg/health"
	"github.com/pkg/errors"
	"github.com/streadway/amqp"
)

const (
	defaultVirtualHost = "/"
)

type amqpProbe struct {
	url  string
	host string
	dial func(url string) (*amqp.Connection, error)
}

func NewAmqpProbe(cfg *config.Amqp) *amqpProbe {
	cfg.User = helper.ResolveEnv(cfg.User)
	cfg.Password = helper.ResolveEnv(cfg.Password)
	cfg.Hostname = helper.ResolveEnv(cfg.Hostname)
	cfg.Port = helper.SetDefaultStringIfEmpty(helper.ResolveEnv(cfg.Port), "5672", "port", "amqp")
	cfg.VirtualHost = helper.SetDefaultStringIfEmpty(helper.ResolveEnv(cfg.VirtualHost), defaultVirtualHost, "virtualHost", "amqp")

	host := net.JoinHostPort(cfg.Hostname, cfg.Port)
	u := url.URL{
		Scheme: "amqp",
		Host:   host,
		Path:   cfg.VirtualHost,
	}

	if cfg.User != "" && cfg.Password != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	}

	return &amqpProbe{url: u.String(), host: host, dial: amqp.Dial}
}

func (a *amqpProbe) Check() health.Report {
	return health.Indicate("amqp", func(b *health.Builder) error {
		outcome := health.TimeValue(func() (*amqp.Connection, error) {
			return a.dial(a.url)
		})
		b.WithDetail("timeMs", outcome.ElapsedMs())

		if !outcome.Succeeded() {
			return errors.Wrapf(outcome.Err, "failed to dial amqp broker at %s", a.host)
		}

		conn := outcome.Value
		defer conn.Close()

		if v, ok := conn.Properties["version"]; ok {
			b.WithDetail("version", fmt.Sprint(v))
		}

		b.Up()
		return nil
	})
}

var _ Probe = &amqpProbe{}
