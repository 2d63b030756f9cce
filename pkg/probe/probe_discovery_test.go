package probe

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mittwald/mittprobe/internal/config"
	"github.com/mittwald/mittprobe/pkg/health"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDiscoveryClient struct {
	remote    string
	lastFetch time.Duration
	apps      []DiscoveryApplication
	err       error
}

func (f *fakeDiscoveryClient) InstanceRemoteStatus() string {
	return f.remote
}

func (f *fakeDiscoveryClient) LastSuccessfulRegistryFetch() time.Duration {
	return f.lastFetch
}

func (f *fakeDiscoveryClient) Applications() ([]DiscoveryApplication, error) {
	return f.apps, f.err
}

func newInstanceServer(t *testing.T, status int, body string) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDiscoveryProbeRecordsInstanceHealth(t *testing.T) {
	up := newInstanceServer(t, http.StatusOK, `{"status":"UP"}`)
	outOfService := newInstanceServer(t, http.StatusOK, `{"status":"OUT_OF_SERVICE"}`)
	plain := newInstanceServer(t, http.StatusOK, `pong`)

	client := &fakeDiscoveryClient{
		remote:    "UP",
		lastFetch: time.Second,
		apps: []DiscoveryApplication{
			{Name: "ENGINE", Instances: []DiscoveryInstance{
				{ID: "engine-1", App: "ENGINE", HealthCheckURL: up.URL + "/actuator/health"},
				{ID: "engine-2", App: "ENGINE", HealthCheckURL: outOfService.URL + "/actuator/health"},
			}},
			{Name: "API", Instances: []DiscoveryInstance{
				{ID: "api-1", App: "API", HealthCheckURL: plain.URL + "/info"},
			}},
			{Name: "EMPTY"},
		},
	}

	subject := NewDiscoveryProbe(client, true, 30*time.Second, nil, nil)
	report := subject.Check()

	assert.Equal(t, health.StatusUp, report.Status())
	assert.Empty(t, report.Reason())

	servers := nestedDetail(t, report, "servers")
	assert.Equal(t, []string{"ENGINE", "API"}, servers.Keys())

	engine, _ := servers.Get("ENGINE")
	engineDetails := engine.(*health.Details)
	total, _ := engineDetails.Get("total")
	s1, _ := engineDetails.Get("engine-1_Status")
	s2, _ := engineDetails.Get("engine-2_Status")
	_, hasTime := engineDetails.Get("engine-1_TimeMs")
	assert.Equal(t, 2, total)
	assert.Equal(t, health.StatusUp, s1)
	assert.Equal(t, health.StatusDown, s2)
	assert.True(t, hasTime)

	api, _ := servers.Get("API")
	s3, _ := api.(*health.Details).Get("api-1_Status")
	assert.Equal(t, health.StatusUp, s3)
}

// Unreachable instances are only visible in the details; the overall
// status follows the local client.
func TestDiscoveryProbeInstanceFailuresDoNotGateStatus(t *testing.T) {
	down := newInstanceServer(t, http.StatusServiceUnavailable, `{"status":"DOWN"}`)

	client := &fakeDiscoveryClient{
		remote:    "UP",
		lastFetch: time.Second,
		apps: []DiscoveryApplication{
			{Name: "ENGINE", Instances: []DiscoveryInstance{
				{ID: "engine-1", HealthCheckURL: down.URL},
				{ID: "engine-2", HealthCheckURL: "http://127.0.0.1:1/unreachable"},
			}},
		},
	}

	report := NewDiscoveryProbe(client, true, 30*time.Second, nil, nil).Check()

	assert.Equal(t, health.StatusUp, report.Status())

	servers := nestedDetail(t, report, "servers")
	engine, _ := servers.Get("ENGINE")
	s1, _ := engine.(*health.Details).Get("engine-1_Status")
	s2, _ := engine.(*health.Details).Get("engine-2_Status")
	assert.Equal(t, health.StatusDown, s1)
	assert.Equal(t, health.StatusDown, s2)
}

func TestDiscoveryProbeMarksMissingRequiredApplications(t *testing.T) {
	client := &fakeDiscoveryClient{remote: "UP", lastFetch: time.Second}

	report := NewDiscoveryProbe(client, true, 30*time.Second, []string{"ENGINE"}, nil).Check()

	servers := nestedDetail(t, report, "servers")
	engine, ok := servers.Get("ENGINE")
	require.True(t, ok)
	assert.Equal(t, health.StatusDown, engine)
}

func TestDiscoveryProbeLocalStatus(t *testing.T) {
	cases := []struct {
		name          string
		remote        string
		fetchRegistry bool
		lastFetch     time.Duration
		status        health.Status
		reason        string
	}{
		{"up", "UP", true, time.Second, health.StatusUp, ""},
		{"out of service", "OUT_OF_SERVICE", true, time.Second, health.StatusDown, "remote status from discovery server is OUT_OF_SERVICE"},
		{"never fetched", "DOWN", true, -1, health.StatusUp, reasonRegistryNotConnected},
		{"fetch overdue", "UP", true, 61 * time.Second, health.StatusUp, reasonRegistryFailing},
		{"fetch age ignored without registry fetching", "STARTING", false, -1, health.StatusDown, "remote status from discovery server is STARTING"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			client := &fakeDiscoveryClient{remote: c.remote, lastFetch: c.lastFetch}
			report := NewDiscoveryProbe(client, c.fetchRegistry, 30*time.Second, nil, nil).Check()

			assert.Equal(t, c.status, report.Status())
			assert.Equal(t, c.reason, report.Reason())
		})
	}
}

func TestDiscoveryProbeDownWhenApplicationsUnavailable(t *testing.T) {
	client := &fakeDiscoveryClient{remote: "UP", lastFetch: time.Second, err: errors.New("registry unavailable")}

	report := NewDiscoveryProbe(client, true, 30*time.Second, nil, nil).Check()

	assert.Equal(t, health.StatusDown, report.Status())
	msg, _ := report.Detail("error")
	assert.Equal(t, "registry unavailable", msg)
}

func TestEurekaClientReadsRegistry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case "/eureka/apps":
			_, _ = w.Write([]byte(`{"applications":{"versions__delta":"1","application":[
				{"name":"ENGINE","instance":[{"instanceId":"engine-1","app":"ENGINE","status":"UP","healthCheckUrl":"http://engine-1/actuator/health"}]}
			]}}`))
		case "/eureka/apps/ME/me-1":
			_, _ = w.Write([]byte(`{"instance":{"instanceId":"me-1","app":"ME","status":"STARTING"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := NewEurekaClient(srv.URL+"/eureka/", "ME", "me-1", srv.Client())

	assert.Less(t, client.LastSuccessfulRegistryFetch(), time.Duration(0))
	assert.Equal(t, "STARTING", client.InstanceRemoteStatus())

	apps, err := client.Applications()
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, "ENGINE", apps[0].Name)
	require.Len(t, apps[0].Instances, 1)
	assert.Equal(t, "engine-1", apps[0].Instances[0].ID)
	assert.Equal(t, "http://engine-1/actuator/health", apps[0].Instances[0].HealthCheckURL)

	assert.GreaterOrEqual(t, client.LastSuccessfulRegistryFetch(), time.Duration(0))

	unknown := NewEurekaClient(srv.URL+"/eureka", "OTHER", "other-1", srv.Client())
	assert.Equal(t, "UNKNOWN", unknown.InstanceRemoteStatus())
}

func TestEurekaClientLogsFailedInstanceLookup(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	hook := logtest.NewGlobal()
	defer hook.Reset()

	client := NewEurekaClient(srv.URL+"/eureka", "ME", "me-1", srv.Client())
	assert.Equal(t, "UNKNOWN", client.InstanceRemoteStatus())

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "failed to fetch remote instance status", entry.Message)
	assert.Equal(t, "eureka", entry.Data["name"])
	assert.Equal(t, "me-1", entry.Data["instance"])
	assert.Contains(t, entry.Data["error"].(error).Error(), "status 404")
}

// The registry is fetched before the local state is judged, so a first
// check against a reachable server reflects the remote instance status.
func TestEurekaFirstCheckFollowsRemoteStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case "/eureka/apps":
			_, _ = w.Write([]byte(`{"applications":{"application":[]}}`))
		case "/eureka/apps/ME/me-1":
			_, _ = w.Write([]byte(`{"instance":{"instanceId":"me-1","app":"ME","status":"DOWN"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	subject, err := NewEurekaProbe(&config.Eureka{ServiceURL: srv.URL + "/eureka", AppName: "ME", InstanceID: "me-1"})
	require.NoError(t, err)

	report := subject.Check()
	assert.Equal(t, health.StatusDown, report.Status())
	assert.Equal(t, "remote status from discovery server is DOWN", report.Reason())
}

func TestEurekaCheckDownWhenServerUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	subject, err := NewEurekaProbe(&config.Eureka{ServiceURL: srv.URL + "/eureka", AppName: "ME", InstanceID: "me-1", Timeout: "1s"})
	require.NoError(t, err)

	assert.Equal(t, health.StatusDown, subject.Check().Status())
}
