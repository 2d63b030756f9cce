package probe

import "github.com/mittwald/mittprobe/pkg/health"

// Probe checks one external dependency. Check must always return a report
// with a status and must never panic.
type Probe interface {
	Check() health.Report
}

// ProbeFunc adapts a plain function to the Probe interface.
type ProbeFunc func() health.Report

func (f ProbeFunc) Check() health.Report {
	return f()
}

type StatusResponse struct {
	ID     string                   `json:"id"`
	Status health.Status            `json:"status"`
	Probes map[string]health.Report `json:"probes"`
}
