package probe

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// EurekaClient reads the registry of a Eureka server through its REST API.
type EurekaClient struct {
	serviceURL string
	appName    string
	instanceID string
	client     *http.Client

	mu        sync.Mutex
	lastFetch time.Time
}

func NewEurekaClient(serviceURL, appName, instanceID string, client *http.Client) *EurekaClient {
	return &EurekaClient{
		serviceURL: strings.TrimRight(serviceURL, "/"),
		appName:    appName,
		instanceID: instanceID,
		client:     client,
	}
}

type eurekaInstance struct {
	InstanceID     string `json:"instanceId"`
	App            string `json:"app"`
	Status         string `json:"status"`
	HealthCheckURL string `json:"healthCheckUrl"`
}

type eurekaApplication struct {
	Name     string           `json:"name"`
	Instance []eurekaInstance `json:"instance"`
}

type eurekaApplications struct {
	Applications struct {
		Application []eurekaApplication `json:"application"`
	} `json:"applications"`
}

type eurekaInstanceResponse struct {
	Instance eurekaInstance `json:"instance"`
}

func (e *EurekaClient) getJSON(path string, out interface{}) error {
	req, err := http.NewRequest(http.MethodGet, e.serviceURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	res, err := e.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("eureka server returned status %d for %s", res.StatusCode, path)
	}

	return errors.Wrapf(json.NewDecoder(res.Body).Decode(out), "failed to decode eureka response for %s", path)
}

func (e *EurekaClient) Applications() ([]DiscoveryApplication, error) {
	var body eurekaApplications
	if err := e.getJSON("/apps", &body); err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.lastFetch = time.Now()
	e.mu.Unlock()

	apps := make([]DiscoveryApplication, 0, len(body.Applications.Application))
	for _, a := range body.Applications.Application {
		app := DiscoveryApplication{Name: a.Name}
		for _, i := range a.Instance {
			app.Instances = append(app.Instances, DiscoveryInstance{
				ID:             i.InstanceID,
				App:            i.App,
				HealthCheckURL: i.HealthCheckURL,
			})
		}
		apps = append(apps, app)
	}

	return apps, nil
}

func (e *EurekaClient) InstanceRemoteStatus() string {
	if e.appName == "" || e.instanceID == "" {
		return "UNKNOWN"
	}

	var body eurekaInstanceResponse
	path := fmt.Sprintf("/apps/%s/%s", url.PathEscape(e.appName), url.PathEscape(e.instanceID))
	if err := e.getJSON(path, &body); err != nil {
		log.WithFields(log.Fields{"kind": "probe", "name": "eureka", "app": e.appName, "instance": e.instanceID}).
			WithError(err).Warn("failed to fetch remote instance status")
		return "UNKNOWN"
	}
	if body.Instance.Status == "" {
		return "UNKNOWN"
	}

	return body.Instance.Status
}

func (e *EurekaClient) LastSuccessfulRegistryFetch() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.lastFetch.IsZero() {
		return -1
	}
	return time.Since(e.lastFetch)
}

var _ DiscoveryClient = &EurekaClient{}
