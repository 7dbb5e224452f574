// Package config loads the classmod configuration from an optional YAML file and the environment.
package config

import (
	"errors"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pandeptwidyaop/classmod/internal/models"
)

var (
	// ErrCredentials reports missing model service credentials. It is a warning: the run goes on
	// and fails later when the session is opened.
	ErrCredentials = errors.New("missing credentials")
	// ErrConfiguration reports missing or invalid project settings.
	ErrConfiguration = errors.New("invalid configuration")
)

type Config struct {
	Model     ModelConfig     `yaml:"model"`
	Project   ProjectConfig   `yaml:"project"`
	Rename    RenameConfig    `yaml:"rename"`
	Loader    LoaderConfig    `yaml:"loader"`
	Output    OutputConfig    `yaml:"output"`
	DevServer DevServerConfig `yaml:"devserver"`
}

// ModelConfig points at the model service and holds the API credentials.
type ModelConfig struct {
	URL            string `yaml:"url" validate:"required,url"`
	User           string `yaml:"user" validate:"required"`
	Token          string `yaml:"token" validate:"required"`
	RequestTimeout string `yaml:"request_timeout"`
}

// ProjectConfig selects the working copy, or the project to create one from.
type ProjectConfig struct {
	ID           string `yaml:"id" validate:"required_without=WorkingCopy"`
	Title        string `yaml:"title" validate:"required_without=WorkingCopy"`
	WorkingCopy  string `yaml:"working_copy"`
	Branch       string `yaml:"branch"`
	TemplateFile string `yaml:"file"`
	Revision     int    `yaml:"revision"`
}

// RenameConfig describes the class token rename.
type RenameConfig struct {
	ModuleName  string `yaml:"module_name"`
	Target      string `yaml:"target" validate:"classtoken"`
	Replacement string `yaml:"replacement" validate:"classtoken"`
	DryRun      bool   `yaml:"dry_run"`
}

// LoaderConfig bounds how units are fetched.
type LoaderConfig struct {
	Concurrency       int     `yaml:"concurrency" validate:"gte=1"`
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gte=0"`
}

// OutputConfig controls logging and run artifacts.
type OutputConfig struct {
	JournalPath string `yaml:"journal_path"`
	MetricsFile string `yaml:"metrics_file"`
	Verbose     bool   `yaml:"verbose"`
}

// DevServerConfig configures the local model service.
type DevServerConfig struct {
	Host            string       `yaml:"host"`
	DatabasePath    string       `yaml:"database_path"`
	Users           []DevUser    `yaml:"users"`
	Projects        []DevProject `yaml:"projects"`
	Port            int          `yaml:"port"`
	MaxTemplateSize int64        `yaml:"max_template_size"`

	// RateLimit is the allowed requests per second per API user. Zero disables limiting.
	RateLimit  float64 `yaml:"rate_limit"`
	// BcryptCost hashes the seeded API keys. Zero uses the bcrypt default.
	BcryptCost int     `yaml:"bcrypt_cost"`
}

// DevUser is an account accepted by the local model service.
type DevUser struct {
	Username string `yaml:"username"`
	APIKey   string `yaml:"api_key"`
}

// DevProject is seeded into the local model service from a template file.
type DevProject struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Template string `yaml:"template"`
}

// GetRequestTimeout returns the per-request timeout, 60s when unset or invalid.
func (c *ModelConfig) GetRequestTimeout() time.Duration {
	d, err := time.ParseDuration(c.RequestTimeout)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

// Mode returns the path a run takes: an existing working copy is renamed, otherwise one is created.
func (c *Config) Mode() models.RunMode {
	switch {
	case c.Project.WorkingCopy != "":
		return models.ModeRename
	case c.Project.TemplateFile != "":
		return models.ModeCreateFromTemplate
	default:
		return models.ModeCreateOnline
	}
}

// Load reads the YAML file at path, overlays the process environment and applies defaults.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}

	if err := ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	setDefaults(&cfg)

	return &cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Project.Revision == 0 {
		cfg.Project.Revision = models.LatestRevision
	}
	if cfg.Rename.Target == "" {
		cfg.Rename.Target = "question_KOLOM"
	}
	if cfg.Rename.Replacement == "" {
		cfg.Rename.Replacement = "question_column"
	}
	if cfg.Loader.Concurrency == 0 {
		cfg.Loader.Concurrency = 8
	}
	if cfg.Model.RequestTimeout == "" {
		cfg.Model.RequestTimeout = "60s"
	}
	if cfg.DevServer.Host == "" {
		cfg.DevServer.Host = "127.0.0.1"
	}
	if cfg.DevServer.Port == 0 {
		cfg.DevServer.Port = 8700
	}
	if cfg.DevServer.DatabasePath == "" {
		cfg.DevServer.DatabasePath = "./data/devserver.db"
	}
	if cfg.DevServer.MaxTemplateSize == 0 {
		cfg.DevServer.MaxTemplateSize = 4 << 20
	}
}
