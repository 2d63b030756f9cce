package probe

import (
	"bufio"
	"net"
	"strconv"
	"strings"

	"github.com/go-redis/redis"
	"github.com/mittwald/mittprobe/internal/config"
	"github.com/mittwald/mittprobe/internal/helper"
	"github.com/mittwald/mittprobe/pkg/health"
	"github.com/pkg/errors"
)

const defaultRedisKey = "ok"

// redisConn is implemented by both *redis.Client and *redis.ClusterClient.
type redisConn interface {
	Get(key string) *redis.StringCmd
	Info(section ...string) *redis.StringCmd
	ClusterInfo() *redis.StringCmd
}

type redisProbe struct {
	conn    redisConn
	cluster bool
	key     string
}

// NewRedisProbeForClient wraps an already configured client; cluster
// clients report cluster topology instead of the server version.
func NewRedisProbeForClient(conn redisConn) *redisProbe {
	_, cluster := conn.(*redis.ClusterClient)
	return &redisProbe{conn: conn, cluster: cluster, key: defaultRedisKey}
}

func NewRedisProbe(cfg *config.Redis) (*redisProbe, error) {
	cfg.Hostname = helper.ResolveEnv(cfg.Hostname)
	cfg.Password = helper.ResolveEnv(cfg.Password)
	cfg.Port = helper.SetDefaultStringIfEmpty(helper.ResolveEnv(cfg.Port), "6379", "port", "redis")
	cfg.Key = helper.SetDefaultStringIfEmpty(helper.ResolveEnv(cfg.Key), defaultRedisKey, "key", "redis")

	timeout, err := helper.ParseDurationOrDefault(cfg.Timeout, "5s", "timeout", "redis")
	if err != nil {
		return nil, err
	}

	addrs := helper.ResolveEnvSlice(cfg.Addrs)
	if len(addrs) == 0 {
		addrs = []string{net.JoinHostPort(cfg.Hostname, cfg.Port)}
	}

	var p *redisProbe
	if cfg.Cluster {
		p = NewRedisProbeForClient(redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:        addrs,
			Password:     cfg.Password,
			DialTimeout:  timeout,
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
		}))
	} else {
		p = NewRedisProbeForClient(redis.NewClient(&redis.Options{
			Addr:         addrs[0],
			Password:     cfg.Password,
			DialTimeout:  timeout,
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
		}))
	}

	p.key = cfg.Key
	return p, nil
}

// parseInfo reads the "field:value" lines of an INFO or CLUSTER INFO reply.
func parseInfo(raw string) map[string]string {
	fields := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(raw))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if k, v, ok := strings.Cut(line, ":"); ok {
			fields[k] = v
		}
	}
	return fields
}

func infoInt(fields map[string]string, key string) (int64, error) {
	v, ok := fields[key]
	if !ok {
		return 0, errors.Errorf("cluster info is missing %s", key)
	}
	return strconv.ParseInt(v, 10, 64)
}

func (r *redisProbe) clusterDetails(b *health.Builder) error {
	raw, err := r.conn.ClusterInfo().Result()
	if err != nil {
		return errors.Wrap(err, "failed to fetch cluster info")
	}

	fields := parseInfo(raw)
	for _, d := range []struct{ detail, field string }{
		{"cluster_size", "cluster_size"},
		{"slots_up", "cluster_slots_ok"},
		{"slots_fail", "cluster_slots_fail"},
	} {
		v, err := infoInt(fields, d.field)
		if err != nil {
			return err
		}
		b.WithDetail(d.detail, v)
	}
	return nil
}

func (r *redisProbe) serverDetails(b *health.Builder) error {
	raw, err := r.conn.Info("server").Result()
	if err != nil {
		return errors.Wrap(err, "failed to fetch server info")
	}
	b.WithDetail("version", parseInfo(raw)["redis_version"])
	return nil
}

func (r *redisProbe) Check() health.Report {
	return health.Indicate("redis", func(b *health.Builder) error {
		if r.conn == nil {
			b.Up().WithDetail("cache", "unknown")
			return nil
		}

		outcome := health.Time(func() error {
			// a missing key still proves a full round trip
			if err := r.conn.Get(r.key).Err(); err != nil && err != redis.Nil {
				return err
			}
			return nil
		})

		if outcome.Succeeded() {
			b.WithDetail("result", "ok")
			b.WithDetail("timeMs", outcome.ElapsedMs())
			b.Up()
		} else {
			b.Down(outcome.Err)
		}

		if r.cluster {
			return r.clusterDetails(b)
		}
		return r.serverDetails(b)
	})
}

var _ Probe = &redisProbe{}
