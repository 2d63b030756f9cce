//go:build integration
// +build integration

package probe

import (
	"flag"
	"strconv"
	"testing"

	"github.com/mittwald/mittprobe/internal/config"
	"github.com/stretchr/testify/assert"
)

var (
	amqpHost     = flag.String("amqp.host", svcHost("127.0.0.1", "amqp"), "AMQP integration server host")
	amqpPort     = flag.Uint("amqp.port", svcPort(15672, 5672), "AMQP integration server port")
	amqpVhost    = flag.String("amqp.vhost", "", "AMQP virtual host")
	amqpUsername = flag.String("amqp.username", "guest", "AMQP integration username")
	amqpPassword = flag.String("amqp.password", "guest", "AMQP integration password")
)

func TestAmqpProbeCheckUp(t *testing.T) {
	subject := NewAmqpProbe(&config.Amqp{
		Credentials: config.Credentials{User: *amqpUsername, Password: *amqpPassword},
		Host:        config.Host{Hostname: *amqpHost, Port: strconv.FormatUint(uint64(*amqpPort), 10)},
		VirtualHost: *amqpVhost,
	})

	report := subject.Check()

	requireUp(t, report)
	_, hasVersion := report.Detail("version")
	assert.True(t, hasVersion)
}
