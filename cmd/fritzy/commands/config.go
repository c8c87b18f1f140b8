package commands

import (
	"errors"
	"fritzy-backend/lib/configutil"
	"fritzy-backend/lib/trafficbus"
	"fritzy-backend/lib/trafficstore"
	"fritzy-backend/services/trafficapi"
	"os"
	"time"
)

const (
	DefaultAddress  = "http://fritz.box/"
	DefaultSchedule = "0 3 * * *"
	DefaultDatabase = "data/fritzy.db"
)

type RouterConfig struct {
	Address  string `json:"address"`
	Username string `json:"username"`
	Password string `json:"password"`
	// per request, in seconds
	Timeout           int     `json:"timeout"`
	RequestsPerSecond float64 `json:"requests_per_second"`
}

type Config struct {
	Router RouterConfig `json:"router"`
	// IANA name, defaults to the host timezone
	Timezone string              `json:"timezone"`
	Schedule string              `json:"schedule"`
	Port     int                 `json:"port"`
	Database trafficstore.Config `json:"database"`
	Nats     trafficbus.Config   `json:"nats"`
}

func (c *Config) applyDefaults() {
	if c.Router.Address == "" {
		c.Router.Address = DefaultAddress
	}
	if c.Schedule == "" {
		c.Schedule = DefaultSchedule
	}
	if c.Port == 0 {
		c.Port = trafficapi.DefaultPort
	}
	if c.Database.File == "" && c.Database.Url == "" {
		c.Database.File = DefaultDatabase
	}
}

func (c RouterConfig) timeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// flagOverrides are the router flags that were explicitly set.
type flagOverrides struct {
	address  *string
	username *string
	password *string
}

// loadConfig reads `path` (a missing file is fine), then applies the
// environment and finally the flags.
func loadConfig(path string, flags flagOverrides) (Config, error) {
	cfg, err := configutil.ReadConfig[Config](path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}

	configutil.EnvOverride(&cfg.Router.Address, "FRITZY_ADDRESS")
	configutil.EnvOverride(&cfg.Router.Username, "FRITZY_USER")
	configutil.EnvOverride(&cfg.Router.Password, "FRITZY_PASSWORD")

	if flags.address != nil {
		cfg.Router.Address = *flags.address
	}
	if flags.username != nil {
		cfg.Router.Username = *flags.username
	}
	if flags.password != nil {
		cfg.Router.Password = *flags.password
	}

	cfg.applyDefaults()
	return cfg, nil
}
