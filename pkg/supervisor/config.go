package supervisor

import (
	"fmt"
	"strconv"
	"time"

	"github.com/cuemby/burrow/pkg/process"
)

const (
	DefaultConfigPath   = "/home/ec2-user/opensearch/config/opensearch.yml"
	DefaultPortSetting  = "http.port"
	DefaultInternalPort = 19200
	DefaultListenPort   = 9200
	DefaultGracePeriod  = 5 * time.Second
	DefaultLogTailLines = 20
)

// ProcessConfig describes one supervised process
type ProcessConfig struct {
	// Name labels the process in output and metrics
	Name string

	// Match is a substring of the command line identifying the process
	Match string

	// Command launches the process
	Command []string

	// Dir is the working directory for Command
	Dir string

	// LogFile receives stdout and stderr
	LogFile string
}

// Config controls one supervisor run
type Config struct {
	// ConfigPath is the primary service's settings document
	ConfigPath string

	// PortSetting is the key holding the primary's listening port
	PortSetting string

	// InternalPort is where the primary must listen
	InternalPort int

	// ListenPort is the externally advertised port the sidecar listens on
	ListenPort int

	// KafkaEndpoints is forwarded verbatim to the sidecar
	KafkaEndpoints string

	// DestinationScheme is the scheme the sidecar uses to reach the primary
	DestinationScheme string

	// SidecarArgs are appended after the generated sidecar arguments
	SidecarArgs []string

	Service ProcessConfig
	Sidecar ProcessConfig

	// GracePeriod is how long to wait after launching the sidecar before
	// checking it is alive
	GracePeriod time.Duration

	// CheckListenPort additionally requires the sidecar to accept
	// connections on ListenPort after the grace period
	CheckListenPort bool

	// LogTailLines is how much of the sidecar log to print on failure
	LogTailLines int

	// LockFile, when set, is held for the duration of the run so a second
	// concurrent run fails fast instead of racing
	LockFile string
}

// DefaultConfig returns the layout of a stock node
func DefaultConfig() Config {
	return Config{
		ConfigPath:        DefaultConfigPath,
		PortSetting:       DefaultPortSetting,
		InternalPort:      DefaultInternalPort,
		ListenPort:        DefaultListenPort,
		DestinationScheme: "http",
		Service: ProcessConfig{
			Name:    "opensearch",
			Match:   "org.opensearch.bootstrap.OpenSearch",
			Command: []string{"/home/ec2-user/opensearch/bin/opensearch"},
			Dir:     "/home/ec2-user/opensearch",
			LogFile: "/home/ec2-user/opensearch/logs/supervisor.out",
		},
		Sidecar: ProcessConfig{
			Name:    "capture-proxy",
			Match:   "trafficCaptureProxyServer",
			Command: []string{"java", "-jar", "/home/ec2-user/capture-proxy/trafficCaptureProxyServer.jar"},
			Dir:     "/home/ec2-user/capture-proxy",
			LogFile: "/home/ec2-user/capture-proxy/nohup.out",
		},
		GracePeriod:  DefaultGracePeriod,
		LogTailLines: DefaultLogTailLines,
	}
}

// Validate checks the configuration before anything is observed
func (c Config) Validate() error {
	switch {
	case c.KafkaEndpoints == "":
		return fmt.Errorf("kafka endpoints are required")
	case c.ConfigPath == "":
		return fmt.Errorf("config path is required")
	case c.PortSetting == "":
		return fmt.Errorf("port setting is required")
	case c.InternalPort <= 0 || c.InternalPort > 65535:
		return fmt.Errorf("invalid internal port %d", c.InternalPort)
	case c.ListenPort <= 0 || c.ListenPort > 65535:
		return fmt.Errorf("invalid listen port %d", c.ListenPort)
	case c.InternalPort == c.ListenPort:
		return fmt.Errorf("internal and listen port must differ, both are %d", c.ListenPort)
	case c.Service.Match == "" || c.Sidecar.Match == "":
		return fmt.Errorf("service and sidecar match patterns are required")
	case len(c.Service.Command) == 0 || len(c.Sidecar.Command) == 0:
		return fmt.Errorf("service and sidecar commands are required")
	case c.GracePeriod < 0:
		return fmt.Errorf("grace period must not be negative")
	}
	return nil
}

// DestinationURI is where the sidecar forwards captured traffic
func (c Config) DestinationURI() string {
	scheme := c.DestinationScheme
	if scheme == "" {
		scheme = "http"
	}
	return fmt.Sprintf("%s://localhost:%d", scheme, c.InternalPort)
}

// ServiceSpec is the launch spec of the primary service
func (c Config) ServiceSpec() process.Spec {
	return process.Spec{
		Name:    c.Service.Name,
		Command: c.Service.Command,
		Dir:     c.Service.Dir,
		LogFile: c.Service.LogFile,
	}
}

// SidecarSpec is the launch spec of the capture sidecar, wired to the
// broker endpoints and to the primary's internal port
func (c Config) SidecarSpec() process.Spec {
	cmd := append([]string(nil), c.Sidecar.Command...)
	cmd = append(cmd,
		"--kafkaConnection", c.KafkaEndpoints,
		"--destinationUri", c.DestinationURI(),
		"--listenPort", strconv.Itoa(c.ListenPort),
		"--insecureDestination",
	)
	cmd = append(cmd, c.SidecarArgs...)

	return process.Spec{
		Name:    c.Sidecar.Name,
		Command: cmd,
		Dir:     c.Sidecar.Dir,
		LogFile: c.Sidecar.LogFile,
	}
}
