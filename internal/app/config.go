package app

import (
	"os"
	"path/filepath"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete client configuration, loadable from environment
// variables (SHOPSYNC_ prefix) or YAML config files.
type Config struct {
	BaseURL  string `default:"http://localhost:3000/api" usage:"Backend API base URL" flag:"base-url"`
	PageSize int    `default:"5" usage:"Catalog page size" flag:"page-size"`
	CredFile string `default:"" usage:"Path to the persisted credentials file" flag:"cred-file"`
	HTTP     HTTPConfig

	ProbeInterval time.Duration `default:"30s" usage:"Backend reachability probe interval"`
}

// HTTPConfig controls the resilient transport chain.
type HTTPConfig struct {
	MaxRetries     int           `default:"3"   usage:"Transient-failure retry budget per call"`
	RetryDelay     time.Duration `default:"2s"  usage:"Fixed delay between transient retries"`
	AttemptTimeout time.Duration `default:"15s" usage:"Per-attempt request timeout"`
}

// LoadConfig loads configuration from environment variables and YAML config
// files.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "SHOPSYNC",
		Files:     []string{"config.yaml", "/etc/shopsync/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}

	if cfg.CredFile == "" {
		dir, err := os.UserConfigDir()
		if err == nil {
			cfg.CredFile = filepath.Join(dir, "shopsync", "credentials.json")
		}
	}
	return &cfg, nil
}
