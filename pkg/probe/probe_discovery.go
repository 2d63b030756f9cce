package probe

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mittwald/mittprobe/internal/config"
	"github.com/mittwald/mittprobe/internal/helper"
	"github.com/mittwald/mittprobe/pkg/health"
	log "github.com/sirupsen/logrus"
)

const (
	reasonRegistryNotConnected = "discovery client has not yet successfully connected to a discovery server"
	reasonRegistryFailing      = "discovery client is reporting failures to connect to a discovery server"
)

type DiscoveryInstance struct {
	ID             string
	App            string
	HealthCheckURL string
}

type DiscoveryApplication struct {
	Name      string
	Instances []DiscoveryInstance
}

// DiscoveryClient is the view of a service-discovery client the probe needs.
type DiscoveryClient interface {
	// InstanceRemoteStatus is the status the discovery server holds for
	// this very instance (UP, DOWN, STARTING, OUT_OF_SERVICE, UNKNOWN).
	InstanceRemoteStatus() string

	// LastSuccessfulRegistryFetch is the age of the last successful
	// registry fetch, negative if there never was one.
	LastSuccessfulRegistryFetch() time.Duration

	Applications() ([]DiscoveryApplication, error)
}

type discoveryProbe struct {
	client        DiscoveryClient
	fetchRegistry bool
	fetchInterval time.Duration
	required      []string
	http          *http.Client
}

func NewDiscoveryProbe(client DiscoveryClient, fetchRegistry bool, fetchInterval time.Duration, required []string, httpClient *http.Client) *discoveryProbe {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &discoveryProbe{
		client:        client,
		fetchRegistry: fetchRegistry,
		fetchInterval: fetchInterval,
		required:      required,
		http:          httpClient,
	}
}

func NewEurekaProbe(cfg *config.Eureka) (*discoveryProbe, error) {
	cfg.ServiceURL = helper.ResolveEnv(cfg.ServiceURL)
	cfg.AppName = helper.ResolveEnv(cfg.AppName)
	cfg.InstanceID = helper.ResolveEnv(cfg.InstanceID)

	if cfg.ServiceURL == "" {
		return nil, fmt.Errorf("eureka probe requires a serviceUrl")
	}

	interval, err := helper.ParseDurationOrDefault(cfg.FetchInterval, "30s", "registryFetchInterval", "eureka")
	if err != nil {
		return nil, err
	}

	timeout, err := helper.ParseDurationOrDefault(cfg.Timeout, "5s", "timeout", "eureka")
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: timeout}
	client := NewEurekaClient(cfg.ServiceURL, cfg.AppName, cfg.InstanceID, httpClient)

	fetchRegistry := cfg.FetchRegistry == nil || *cfg.FetchRegistry

	return NewDiscoveryProbe(client, fetchRegistry, interval, helper.ResolveEnvSlice(cfg.RequiredApplications), httpClient), nil
}

// remoteStatus maps the discovery server's instance states.
func remoteStatus(state string) health.Status {
	switch state {
	case "UP":
		return health.StatusUp
	}
	return health.StatusDown
}

func (d *discoveryProbe) localStatus() (health.Status, string) {
	state := d.client.InstanceRemoteStatus()
	status := remoteStatus(state)
	reason := ""
	if !status.IsUp() {
		reason = "remote status from discovery server is " + state
	}

	if d.fetchRegistry {
		lastFetch := d.client.LastSuccessfulRegistryFetch()
		if lastFetch < 0 {
			return health.StatusUp, reasonRegistryNotConnected
		} else if lastFetch > 2*d.fetchInterval {
			return health.StatusUp, reasonRegistryFailing
		}
	}

	return status, reason
}

type instanceHealth struct {
	Status string `json:"status"`
}

func (d *discoveryProbe) instanceStatus(instance DiscoveryInstance) (health.Status, error) {
	res, err := d.http.Get(instance.HealthCheckURL)
	if err != nil {
		return health.StatusDown, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return health.StatusDown, nil
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return health.StatusDown, err
	}

	// endpoints that do not answer with a health document only need a 200
	var h instanceHealth
	if err := json.Unmarshal(body, &h); err != nil || h.Status == "" {
		return health.StatusUp, nil
	}

	return health.StatusOf(h.Status == string(health.StatusUp)), nil
}

// Check reports the local client state as the overall status. The
// reachability of other registered instances is only recorded in the
// "servers" detail and does not change the overall status.
func (d *discoveryProbe) Check() health.Report {
	return health.Indicate("discovery", func(b *health.Builder) error {
		start := time.Now()

		// fetching first keeps the registry age current for localStatus
		apps, err := d.client.Applications()
		if err != nil {
			return err
		}

		status, reason := d.localStatus()

		servers := health.NewDetails()
		for _, app := range apps {
			if len(app.Instances) == 0 {
				continue
			}

			appResult := health.NewDetails()
			appResult.Set("total", len(app.Instances))

			for _, instance := range app.Instances {
				outcome := health.TimeValue(func() (health.Status, error) {
					return d.instanceStatus(instance)
				})

				if outcome.Err != nil {
					log.WithFields(log.Fields{"kind": "probe", "name": "discovery", "app": app.Name, "instance": instance.ID, "err": outcome.Err}).
						Warn("instance health check failed")
				}

				appResult.Set(instance.ID+"_TimeMs", outcome.ElapsedMs())
				appResult.Set(instance.ID+"_Status", outcome.Value)
			}

			servers.Set(app.Name, appResult)
		}

		for _, name := range d.required {
			if _, ok := servers.Get(name); !ok {
				servers.Set(name, health.StatusDown)
			}
		}

		b.Status(status).Reason(reason)
		b.WithDetail("timeMs", time.Since(start).Milliseconds())
		b.WithDetail("servers", servers)
		return nil
	})
}

var _ Probe = &discoveryProbe{}
