//go:build integration
// +build integration

package probe

import (
	"flag"
	"strconv"
	"testing"

	"github.com/mittwald/mittprobe/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	redisHost = flag.String("redis.host", svcHost("127.0.0.1", "redis"), "Redis integration server host")
	redisPort = flag.Uint("redis.port", svcPort(16379, 6379), "Redis integration server port")
)

func TestRedisProbeCheckUp(t *testing.T) {
	subject, err := NewRedisProbe(&config.Redis{
		Host: config.Host{Hostname: *redisHost, Port: strconv.FormatUint(uint64(*redisPort), 10)},
	})
	require.NoError(t, err)

	report := subject.Check()

	requireUp(t, report)
	result, _ := report.Detail("result")
	assert.Equal(t, "ok", result)
	_, hasVersion := report.Detail("version")
	assert.True(t, hasVersion)
}
