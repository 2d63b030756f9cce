package probe

import (
	"path"

	"github.com/go-zookeeper/zk"
	"github.com/mittwald/mittprobe/internal/config"
	"github.com/mittwald/mittprobe/internal/helper"
	"github.com/mittwald/mittprobe/pkg/health"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var (
	errZookeeperNotStarted = errors.New("Client not started")
	errZookeeperNoRoot     = errors.New("Root for namespace does not exist")
)

type zookeeperConn interface {
	State() zk.State
	Exists(path string) (bool, *zk.Stat, error)
}

type zookeeperProbe struct {
	conn zookeeperConn
	root string
}

// NewZookeeperProbeForConn wraps an existing connection. The namespace
// acts as a chroot; its root node must exist.
func NewZookeeperProbeForConn(conn *zk.Conn, namespace string) *zookeeperProbe {
	p := &zookeeperProbe{root: namespaceRoot(namespace)}
	if conn != nil {
		p.conn = conn
	}
	return p
}

func NewZookeeperProbe(cfg *config.Zookeeper) (*zookeeperProbe, error) {
	servers := helper.ResolveEnvSlice(cfg.Servers)
	if len(servers) == 0 {
		return nil, errors.New("zookeeper probe requires at least one server")
	}

	sessionTimeout, err := helper.ParseDurationOrDefault(cfg.SessionTimeout, "10s", "sessionTimeout", "zookeeper")
	if err != nil {
		return nil, err
	}

	// Connect returns immediately and keeps reconnecting in the background.
	conn, _, err := zk.Connect(servers, sessionTimeout, zk.WithLogger(log.WithFields(log.Fields{"kind": "probe", "name": "zookeeper"})))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create zookeeper client")
	}

	return NewZookeeperProbeForConn(conn, helper.ResolveEnv(cfg.Namespace)), nil
}

func namespaceRoot(namespace string) string {
	return path.Join("/", namespace)
}

// zookeeperStarted maps connection states onto "client started"; only a
// connected client can answer the existence check.
func zookeeperStarted(state zk.State) bool {
	switch state {
	case zk.StateConnected, zk.StateHasSession:
		return true
	}
	return false
}

func (z *zookeeperProbe) Check() health.Report {
	return health.Indicate("zookeeper", func(b *health.Builder) error {
		if z.conn == nil {
			b.Up().WithDetail("coordinator", "unknown")
			return nil
		}

		if !zookeeperStarted(z.conn.State()) {
			return errZookeeperNotStarted
		}

		outcome := health.TimeValue(func() (bool, error) {
			exists, _, err := z.conn.Exists(z.root)
			return exists, err
		})
		b.WithDetail("timeMs", outcome.ElapsedMs())

		if !outcome.Succeeded() {
			return outcome.Err
		}
		if !outcome.Value {
			return errZookeeperNoRoot
		}

		b.Up()
		return nil
	})
}

var _ Probe = &zookeeperProbe{}
