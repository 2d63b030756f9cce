package config

type Credentials struct {
	User     string `hcl:"user"`
	Password string `hcl:"password"`
}

type Host struct {
	Hostname string `hcl:"hostname"`
	Port     string `hcl:"port"`
}

type ConfigServer struct {
	URI     string `hcl:"uri"`
	Name    string `hcl:"name"`
	Profile string `hcl:"profile"`
	Label   string `hcl:"label"`
	Timeout string `hcl:"timeout"`
}

type Eureka struct {
	ServiceURL    string `hcl:"serviceUrl"`
	AppName       string `hcl:"appName"`
	InstanceID    string `hcl:"instanceId"`
	FetchRegistry *bool  `hcl:"fetchRegistry"`
	FetchInterval string `hcl:"registryFetchInterval"`
	Timeout       string `hcl:"timeout"`

	// applications reported as DOWN when no instance of them is registered
	RequiredApplications []string `hcl:"requiredApplications"`
}

type MongoDB struct {
	Credentials `hcl:",squash"`
	Host        `hcl:",squash"`

	Database   string `hcl:"database"`
	Collection string `hcl:"collection"`
	URL        string `hcl:"url"`
	Timeout    string `hcl:"timeout"`
}

type Redis struct {
	Host `hcl:",squash"`

	Password string   `hcl:"password"`
	Cluster  bool     `hcl:"cluster"`
	Addrs    []string `hcl:"addrs"`
	Key      string   `hcl:"key"`
	Timeout  string   `hcl:"timeout"`
}

type Zookeeper struct {
	Servers        []string `hcl:"servers"`
	Namespace      string   `hcl:"namespace"`
	SessionTimeout string   `hcl:"sessionTimeout"`
}

type MySQL struct {
	Credentials `hcl:",squash"`
	Host        `hcl:",squash"`

	Database            string `hcl:"database"`
	AllowNativePassword *bool  `hcl:"allowNativePassword"`
	ValidationQuery     string `hcl:"validationQuery"`
}

type Postgres struct {
	Credentials `hcl:",squash"`
	Host        `hcl:",squash"`

	Database        string `hcl:"database"`
	SSLMode         string `hcl:"sslMode"`
	ValidationQuery string `hcl:"validationQuery"`
}

type Amqp struct {
	Credentials `hcl:",squash"`
	Host        `hcl:",squash"`

	VirtualHost string `hcl:"virtualHost"`
}

type HTTP struct {
	Host `hcl:",squash"`

	Method       string            `hcl:"method"`
	Scheme       string            `hcl:"scheme"`
	Path         string            `hcl:"path"`
	Payload      string            `hcl:"payload"`
	Headers      map[string]string `hcl:"headers"`
	Timeout      string            `hcl:"timeout"`
	ExpectStatus string            `hcl:"expectStatus"`
}

type Probe struct {
	Name string `hcl:",key"`
	Wait bool   `hcl:"wait"`

	ConfigServer *ConfigServer `hcl:"configServer"`
	Eureka       *Eureka       `hcl:"eureka"`
	MongoDB      *MongoDB      `hcl:"mongodb"`
	Redis        *Redis        `hcl:"redis"`
	Zookeeper    *Zookeeper    `hcl:"zookeeper"`
	MySQL        *MySQL        `hcl:"mysql"`
	Postgres     *Postgres     `hcl:"postgres"`
	Amqp         *Amqp         `hcl:"amqp"`
	HTTP         *HTTP         `hcl:"http"`
}

type Server struct {
	Listen  string `hcl:"listen"`
	Timeout string `hcl:"timeout"`
}

type Ignition struct {
	Server *Server `hcl:"server"`
	Probes []Probe `hcl:"probe"`
}
