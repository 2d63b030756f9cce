package config

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// GenerateFromConfigDir merges every *.hcl file below configDir into the
// ignition config.
func (ignitionConfig *Ignition) GenerateFromConfigDir(configDir string) error {
	configDir = strings.TrimRight(configDir, "/")

	matches, err := configFiles(configDir)
	if err != nil {
		return err
	}

	for _, m := range matches {
		log.Infof("found config file: %s", m)

		contents, err := os.ReadFile(m)
		if err != nil {
			return errors.Wrapf(err, "failed to read configuration file %s", m)
		}

		if err := ignitionConfig.Parse(string(contents)); err != nil {
			return errors.Wrapf(err, "could not parse configuration file %s", m)
		}
	}

	return ignitionConfig.Validate()
}

func (ignitionConfig *Ignition) Parse(contents string) error {
	return hcl.Unmarshal([]byte(contents), ignitionConfig)
}

// Validate checks that probe names are unique and that every probe
// declares exactly one dependency type.
func (ignitionConfig *Ignition) Validate() error {
	seen := make(map[string]struct{}, len(ignitionConfig.Probes))

	for i := range ignitionConfig.Probes {
		p := &ignitionConfig.Probes[i]
		if p.Name == "" {
			return fmt.Errorf("probe #%d has no name", i)
		}
		if _, ok := seen[p.Name]; ok {
			return fmt.Errorf("probe %q is declared more than once", p.Name)
		}
		seen[p.Name] = struct{}{}

		if n := p.kinds(); n != 1 {
			return fmt.Errorf("probe %q must declare exactly one dependency type, found %d", p.Name, n)
		}
	}

	return nil
}

func (p *Probe) kinds() int {
	n := 0
	for _, set := range []bool{
		p.ConfigServer != nil,
		p.Eureka != nil,
		p.MongoDB != nil,
		p.Redis != nil,
		p.Zookeeper != nil,
		p.MySQL != nil,
		p.Postgres != nil,
		p.Amqp != nil,
		p.HTTP != nil,
	} {
		if set {
			n++
		}
	}
	return n
}

func configFiles(configDir string) ([]string, error) {
	var matches []string

	err := filepath.WalkDir(configDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".hcl" {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to walk config dir %s", configDir)
	}

	if len(matches) == 0 {
		return nil, fmt.Errorf("could not find any configuration files in %s", configDir)
	}

	return matches, nil
}
