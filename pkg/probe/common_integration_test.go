//go:build integration
// +build integration

package probe

import (
	"os"
	"testing"

	"github.com/mittwald/mittprobe/pkg/health"
	"github.com/stretchr/testify/require"
)

const (
	dockerEnv = "/.dockerenv"
	podmanEnv = "/run/.containerenv"
)

// isContainerEnv reports whether the tests run inside a container.
func isContainerEnv() bool {
	for _, marker := range []string{dockerEnv, podmanEnv} {
		if _, err := os.Stat(marker); err == nil {
			return true
		}
	}
	return false
}

// svcHost returns either hostAddr or containerAddr depending on the
// current execution environment.
func svcHost(hostAddr, containerAddr string) string {
	if isContainerEnv() {
		return containerAddr
	}
	return hostAddr
}

func svcPort(hostPort, containerPort uint) uint {
	if isContainerEnv() {
		return containerPort
	}
	return hostPort
}

func requireUp(t *testing.T, report health.Report) {
	t.Helper()
	msg, _ := report.Detail("error")
	require.Equal(t, health.StatusUp, report.Status(), "error: %v", msg)
}
