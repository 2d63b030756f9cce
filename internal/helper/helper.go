package helper

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const envPrefix = "ENV:"

// ResolveEnv replaces values of the form "ENV:NAME" with the content of the
// environment variable NAME.
func ResolveEnv(in string) string {
	if strings.HasPrefix(in, envPrefix) {
		return os.Getenv(in[len(envPrefix):])
	}
	return in
}

func ResolveEnvSlice(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = ResolveEnv(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func SetDefaultStringIfEmpty(value, defaultValue, field, probe string) string {
	if len(value) == 0 {
		log.WithFields(log.Fields{"kind": "probe", "name": probe}).
			Infof("no %s specified or env variable not found, assuming default %q", field, defaultValue)
		return defaultValue
	}
	return value
}

// ParseDurationOrDefault resolves and parses a duration setting, falling
// back to defaultValue when the setting is empty.
func ParseDurationOrDefault(value, defaultValue, field, probe string) (time.Duration, error) {
	raw := SetDefaultStringIfEmpty(ResolveEnv(value), defaultValue, field, probe)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s duration %q for %s probe", field, raw, probe)
	}
	return d, nil
}
