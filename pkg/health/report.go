package health

import (
	"encoding/json"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Report is the immutable result of a single health check.
type Report struct {
	status  Status
	reason  string
	details *Details
}

func (r Report) Status() Status {
	return r.status
}

func (r Report) Reason() string {
	return r.reason
}

// Details returns a copy of the report's details.
func (r Report) Details() *Details {
	return r.details.clone()
}

func (r Report) Detail(key string) (interface{}, bool) {
	return r.details.Get(key)
}

type reportJSON struct {
	Status  Status   `json:"status"`
	Reason  string   `json:"reason,omitempty"`
	Details *Details `json:"details,omitempty"`
}

func (r Report) MarshalJSON() ([]byte, error) {
	out := reportJSON{Status: r.status, Reason: r.reason}
	if r.details.Len() > 0 {
		out.Details = r.details
	}
	return json.Marshal(out)
}

func (r *Report) UnmarshalJSON(data []byte) error {
	var in reportJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if in.Details == nil {
		in.Details = NewDetails()
	}
	*r = Report{status: in.Status, reason: in.Reason, details: in.Details}
	return nil
}

// Builder accumulates a report. A builder that never received a status
// builds a DOWN report.
type Builder struct {
	status  Status
	reason  string
	details *Details
}

func NewBuilder() *Builder {
	return &Builder{details: NewDetails()}
}

func (b *Builder) Up() *Builder {
	b.status = StatusUp
	return b
}

// Down marks the report as DOWN. A non-nil err is recorded as the
// "error" detail.
func (b *Builder) Down(err error) *Builder {
	b.status = StatusDown
	if err != nil {
		b.details.Set("error", err.Error())
	}
	return b
}

func (b *Builder) Status(s Status) *Builder {
	b.status = s
	return b
}

func (b *Builder) Reason(reason string) *Builder {
	b.reason = reason
	return b
}

func (b *Builder) WithDetail(key string, value interface{}) *Builder {
	b.details.Set(key, value)
	return b
}

func (b *Builder) Build() Report {
	status := b.status
	if status == "" {
		status = StatusDown
	}
	return Report{status: status, reason: b.reason, details: b.details.clone()}
}

// Indicate runs check against a fresh builder and always returns a report.
// A returned error or a panic inside check turns the report DOWN.
func Indicate(name string, check func(b *Builder) error) (report Report) {
	b := NewBuilder()

	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{"kind": "probe", "name": name, "panic": r}).Error("health check panicked")
			report = b.Down(fmt.Errorf("%s health check failed: %v", name, r)).Build()
		}
	}()

	if err := check(b); err != nil {
		b.Down(err)
	}

	report = b.Build()

	fields := log.Fields{"kind": "probe", "name": name, "status": report.Status()}
	if report.Status().IsUp() {
		log.WithFields(fields).Debug()
	} else {
		log.WithFields(fields).Warn("dependency is down")
	}
	return report
}
