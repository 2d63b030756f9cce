package probe

import (
	"errors"
	"testing"

	"github.com/go-zookeeper/zk"
	"github.com/mittwald/mittprobe/pkg/health"
	"github.com/stretchr/testify/assert"
)

type fakeZookeeper struct {
	state   zk.State
	exists  bool
	err     error
	checked []string
}

func (f *fakeZookeeper) State() zk.State {
	return f.state
}

func (f *fakeZookeeper) Exists(path string) (bool, *zk.Stat, error) {
	f.checked = append(f.checked, path)
	if !f.exists {
		return false, nil, f.err
	}
	return true, &zk.Stat{}, f.err
}

func TestZookeeperProbe(t *testing.T) {
	cases := []struct {
		name   string
		conn   *fakeZookeeper
		status health.Status
		err    string
	}{
		{"started with root", &fakeZookeeper{state: zk.StateHasSession, exists: true}, health.StatusUp, ""},
		{"started without root", &fakeZookeeper{state: zk.StateHasSession}, health.StatusDown, "Root for namespace does not exist"},
		{"not started", &fakeZookeeper{state: zk.StateDisconnected, exists: true}, health.StatusDown, "Client not started"},
		{"expired session", &fakeZookeeper{state: zk.StateExpired, exists: true}, health.StatusDown, "Client not started"},
		{"exists fails", &fakeZookeeper{state: zk.StateConnected, err: errors.New("zk: connection closed")}, health.StatusDown, "zk: connection closed"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			subject := &zookeeperProbe{conn: c.conn, root: "/app"}

			report := subject.Check()

			assert.Equal(t, c.status, report.Status())
			msg, hasErr := report.Detail("error")
			if c.err == "" {
				assert.False(t, hasErr)
			} else {
				assert.Equal(t, c.err, msg)
			}
		})
	}
}

func TestZookeeperProbeChecksNamespaceRoot(t *testing.T) {
	conn := &fakeZookeeper{state: zk.StateHasSession, exists: true}
	subject := &zookeeperProbe{conn: conn, root: namespaceRoot("app")}

	report := subject.Check()

	assert.Equal(t, health.StatusUp, report.Status())
	assert.Equal(t, []string{"/app"}, conn.checked)
	_, hasTime := report.Detail("timeMs")
	assert.True(t, hasTime)

	assert.Equal(t, "/", namespaceRoot(""))
	assert.Equal(t, "/a/b", namespaceRoot("a/b/"))
}

func TestZookeeperProbeWithoutConnectionIsUnknown(t *testing.T) {
	report := NewZookeeperProbeForConn(nil, "app").Check()

	assert.Equal(t, health.StatusUp, report.Status())
	v, _ := report.Detail("coordinator")
	assert.Equal(t, "unknown", v)
}
