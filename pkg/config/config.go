package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
)

type Config struct {
	Orchestrator Orchestrator
	Registry     Registry
}

type Orchestrator struct {
	Debug      bool
	Console    bool
	LockFile   string
	Master     Master
	Game       Game
	Poll       Poll
	Turn       Turn
	Monitoring Monitoring
}

type Master struct {
	// Address is the master RPC endpoint, tcp://host:port or ws://host:port/path.
	Address    string        `default:"tcp://localhost:54321"`
	RosterPoll time.Duration `default:"2s"`
	// Reconnect is the pause before the next dial after the master link is lost.
	Reconnect time.Duration `default:"5s"`
	// ReconnectMax caps the doubling pause between failed dials.
	ReconnectMax time.Duration `default:"1m"`
	// CallTimeout fails commands left without an answer.
	CallTimeout time.Duration `default:"30s"`
}

type Game struct {
	Map           string `default:"testmap"`
	LobbyInitMode string `default:"normal"`
}

type Poll struct {
	Status         time.Duration `default:"2s"`
	AdapterConnect time.Duration `default:"300ms"`
	GpgnetConnect  time.Duration `default:"500ms"`
}

type Turn struct {
	Host       string
	Secret     string
	SecretFile string
	Ttl        time.Duration `default:"24h"`
	// Probe checks the STUN endpoint of the host at start.
	Probe bool
}

type Monitoring struct {
	Port             int
	URLPrefix        string
	MetricEnabled    bool
	ProfilingEnabled bool
}

func (c *Monitoring) IsEnabled() bool { return c.MetricEnabled || c.ProfilingEnabled }

type Registry struct {
	Debug      bool
	Console    bool
	Server     Server
	Monitoring Monitoring
}

type Server struct {
	Address string `default:":8080"`
	Https   bool
	Tls     struct {
		// Address of the plain HTTP server redirecting to HTTPS.
		Address   string `default:":80"`
		Domain    string
		HttpsCert string
		HttpsKey  string
		// CacheDir keeps automatic certificates between restarts.
		CacheDir string `default:"certs"`
	}
}

// NewConfig loads the app config with the command line flags
// applied on top of it.
func NewConfig(args []string) (conf Config, err error) {
	if err = LoadConfig(&conf, confDir(args)); err != nil {
		return conf, fmt.Errorf("config: %w", err)
	}
	return conf, nil
}

func (c *Orchestrator) WithFlags(fs *pflag.FlagSet) {
	fs.String("conf", "", "Set custom configuration file directory")
	fs.BoolVar(&c.Debug, "debug", c.Debug, "Enable debug logging")
	fs.BoolVar(&c.Console, "console", c.Console, "Use human-friendly console logs")
	fs.StringVarP(&c.Master.Address, "master", "m", c.Master.Address, "Master RPC address (tcp:// or ws://)")
	fs.StringVar(&c.LockFile, "lock", c.LockFile, "Controller lock file path")
	fs.StringVar(&c.Game.Map, "map", c.Game.Map, "Map name for hosted games")
	fs.StringVar(&c.Turn.Host, "turn", c.Turn.Host, "TURN/STUN host[:port]")
	fs.StringVar(&c.Turn.SecretFile, "turnSecretFile", c.Turn.SecretFile, "File with the TURN shared secret")
	fs.BoolVar(&c.Turn.Probe, "probe", c.Turn.Probe, "Check the STUN endpoint before start")
	fs.IntVar(&c.Monitoring.Port, "monitoring", c.Monitoring.Port, "Monitoring server port")
}

func (c *Registry) WithFlags(fs *pflag.FlagSet) {
	fs.String("conf", "", "Set custom configuration file directory")
	fs.BoolVar(&c.Debug, "debug", c.Debug, "Enable debug logging")
	fs.BoolVar(&c.Console, "console", c.Console, "Use human-friendly console logs")
	fs.StringVarP(&c.Server.Address, "addr", "a", c.Server.Address, "Registry HTTP server address")
	fs.BoolVar(&c.Server.Https, "https", c.Server.Https, "Use HTTPS")
	fs.StringVar(&c.Server.Tls.Domain, "domain", c.Server.Tls.Domain, "Domain for the automatic TLS certificates")
	fs.IntVar(&c.Monitoring.Port, "monitoring", c.Monitoring.Port, "Monitoring server port")
}

func (t Turn) HasSecret() bool { return t.Secret != "" || t.SecretFile != "" }

func (t Turn) Validate() error {
	if t.Host == "" {
		return fmt.Errorf("turn host is not set")
	}
	if !t.HasSecret() {
		return fmt.Errorf("turn secret is not set")
	}
	if t.SecretFile != "" {
		if _, err := os.Stat(t.SecretFile); err != nil {
			return fmt.Errorf("turn secret file: %w", err)
		}
	}
	return nil
}
