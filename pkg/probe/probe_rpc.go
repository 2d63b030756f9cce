package probe

import (
	"fmt"
	"strings"
	"sync"

	"github.com/mittwald/mittprobe/pkg/health"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// EchoMessage is sent to every echo-checked remote interface.
const EchoMessage = "ok"

const (
	extensionThreadPool = "threadpool"
	extensionRegistry   = "registry"
)

// RPCStatusLevel is the level reported by an RPC framework status extension.
type RPCStatusLevel string

const (
	RPCLevelOK      RPCStatusLevel = "OK"
	RPCLevelWarn    RPCStatusLevel = "WARN"
	RPCLevelError   RPCStatusLevel = "ERROR"
	RPCLevelUnknown RPCStatusLevel = "UNKNOWN"
)

type RPCStatusChecker interface {
	Check() RPCStatusLevel
}

// RPCExtensions looks up status extensions by name ("threadpool", "registry").
type RPCExtensions interface {
	StatusChecker(name string) (RPCStatusChecker, error)
}

// RPCReference is a client-side reference to a remote interface that
// supports the framework's echo operation.
type RPCReference interface {
	Interface() string
	Echo(message interface{}) (interface{}, error)
}

type RPCReferenceSource interface {
	References() []RPCReference
}

// ErrEchoChecksResolved is returned when an echo check is registered after
// the probe already resolved its references.
var ErrEchoChecksResolved = errors.New("echo checks were already resolved; register them before the first health check")

type echoCheck struct {
	provider  string
	iface     string
	reference RPCReference
}

// RPCProbe checks an RPC framework's thread pool, its registry connection,
// and performs a real echo call against every registered provider.
type RPCProbe struct {
	extensions RPCExtensions
	references RPCReferenceSource

	mu            sync.Mutex
	registrations []echoCheck

	resolveOnce sync.Once
	resolved    []echoCheck
}

func NewRPCProbe(extensions RPCExtensions, references RPCReferenceSource) *RPCProbe {
	return &RPCProbe{
		extensions: extensions,
		references: references,
	}
}

// RegisterEchoCheck echo-tests the remote interface iface under the
// logical name provider. Registering the same provider twice replaces the
// interface but keeps the original order.
func (p *RPCProbe) RegisterEchoCheck(provider, iface string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.resolved != nil {
		return ErrEchoChecksResolved
	}

	for i := range p.registrations {
		if p.registrations[i].provider == provider {
			p.registrations[i].iface = iface
			return nil
		}
	}

	p.registrations = append(p.registrations, echoCheck{provider: provider, iface: iface})
	return nil
}

// threadPoolStatus maps thread pool levels; an unknown level counts as UP.
func threadPoolStatus(level RPCStatusLevel) health.Status {
	switch level {
	case RPCLevelOK, RPCLevelUnknown:
		return health.StatusUp
	}
	return health.StatusDown
}

func registryStatus(level RPCStatusLevel) health.Status {
	switch level {
	case RPCLevelOK:
		return health.StatusUp
	}
	return health.StatusDown
}

func (p *RPCProbe) resolve() []echoCheck {
	p.resolveOnce.Do(func() {
		p.mu.Lock()
		defer p.mu.Unlock()

		var refs []RPCReference
		if p.references != nil {
			refs = p.references.References()
		}

		resolved := make([]echoCheck, 0, len(p.registrations))
		for _, reg := range p.registrations {
			for _, ref := range refs {
				if ref != nil && strings.EqualFold(ref.Interface(), reg.iface) {
					reg.reference = ref
				}
			}

			if reg.reference == nil {
				log.WithFields(log.Fields{"kind": "probe", "name": "rpc", "provider": reg.provider, "interface": reg.iface}).
					Warn("no reference found for echo check")
				continue
			}
			resolved = append(resolved, reg)
		}

		p.resolved = resolved
	})

	return p.resolved
}

func (p *RPCProbe) checkExtension(name string, translate func(RPCStatusLevel) health.Status) (health.Status, *health.Details) {
	detail := health.NewDetails()

	if p.extensions == nil {
		detail.Set("status", health.StatusDown).Set("error", "no status extensions configured")
		return health.StatusDown, detail
	}

	checker, err := p.extensions.StatusChecker(name)
	if err == nil && checker == nil {
		err = fmt.Errorf("status extension %q not found", name)
	}
	if err != nil {
		detail.Set("status", health.StatusDown).Set("error", err.Error())
		return health.StatusDown, detail
	}

	status := translate(checker.Check())
	detail.Set("status", status)
	return status, detail
}

func echo(check echoCheck) (health.Status, *health.Details) {
	detail := health.NewDetails()

	outcome := health.TimeValue(func() (result interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("echo call panicked: %v", r)
			}
		}()
		return check.reference.Echo(EchoMessage)
	})

	status := health.StatusOf(outcome.Succeeded())
	detail.Set("status", status)
	if outcome.Succeeded() {
		detail.Set("result", outcome.Value)
	} else {
		detail.Set("error", outcome.Err.Error())
	}
	detail.Set("timeMs", outcome.ElapsedMs())

	return status, detail
}

// Check runs every sub-check, even after one of them failed, and is UP
// only if all of them are UP.
func (p *RPCProbe) Check() health.Report {
	return health.Indicate("rpc", func(b *health.Builder) error {
		agg := health.Aggregate{}

		status, detail := p.checkExtension(extensionThreadPool, threadPoolStatus)
		agg.Record(extensionThreadPool, status)
		b.WithDetail(extensionThreadPool, detail)

		status, detail = p.checkExtension(extensionRegistry, registryStatus)
		agg.Record(extensionRegistry, status)
		b.WithDetail(extensionRegistry, detail)

		for _, check := range p.resolve() {
			key := check.provider + "-invoke-check"
			status, detail := echo(check)
			agg.Record(key, status)
			b.WithDetail(key, detail)
		}

		b.Status(agg.Status())
		if failed := agg.Failed(); len(failed) > 0 {
			b.Reason("failed checks: " + strings.Join(failed, ", "))
		}
		return nil
	})
}

var _ Probe = &RPCProbe{}
