package probe

import (
	"fmt"

	"github.com/mittwald/mittprobe/internal/config"
	"github.com/pkg/errors"
)

func buildProbe(cfg *config.Probe) (Probe, error) {
	switch {
	case cfg.ConfigServer != nil:
		return NewConfigServerProbe(cfg.ConfigServer)
	case cfg.Eureka != nil:
		return NewEurekaProbe(cfg.Eureka)
	case cfg.MongoDB != nil:
		return NewMongoDBProbe(cfg.MongoDB)
	case cfg.Redis != nil:
		return NewRedisProbe(cfg.Redis)
	case cfg.Zookeeper != nil:
		return NewZookeeperProbe(cfg.Zookeeper)
	case cfg.MySQL != nil:
		return NewMySQLProbe(cfg.MySQL)
	case cfg.Postgres != nil:
		return NewPostgresProbe(cfg.Postgres)
	case cfg.Amqp != nil:
		return NewAmqpProbe(cfg.Amqp), nil
	case cfg.HTTP != nil:
		return NewHttpProbe(cfg.HTTP)
	}
	return nil, fmt.Errorf("probe %q does not declare a dependency type", cfg.Name)
}

// NewProbeHandler builds a handler holding every probe declared in cfg.
func NewProbeHandler(cfg *config.Ignition) (*Handler, error) {
	handler := NewHandler()

	if cfg.Server != nil && cfg.Server.Timeout != "" {
		if err := handler.SetTimeout(cfg.Server.Timeout); err != nil {
			return nil, err
		}
	}

	for i := range cfg.Probes {
		p, err := buildProbe(&cfg.Probes[i])
		if err != nil {
			return nil, errors.Wrapf(err, "failed to build probe %q", cfg.Probes[i].Name)
		}
		if err := handler.Register(cfg.Probes[i].Name, p, cfg.Probes[i].Wait); err != nil {
			return nil, err
		}
	}

	return handler, nil
}
