package config

import (
	"fmt"
	"strconv"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

type binding struct {
	key   string
	apply func(cfg *Config, value string) error
}

func str(dst func(*Config) *string) func(*Config, string) error {
	return func(cfg *Config, v string) error {
		*dst(cfg) = v
		return nil
	}
}

// boolean treats only the literal "true" as set.
func boolean(dst func(*Config) *bool) func(*Config, string) error {
	return func(cfg *Config, v string) error {
		*dst(cfg) = v == "true"
		return nil
	}
}

func integer(dst func(*Config) *int) func(*Config, string) error {
	return func(cfg *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*dst(cfg) = n
		return nil
	}
}

var bindings = []binding{
	{"PROJECT_ID", str(func(c *Config) *string { return &c.Project.ID })},
	{"PROJECT_TITLE", str(func(c *Config) *string { return &c.Project.Title })},
	{"WORKING_COPY", str(func(c *Config) *string { return &c.Project.WorkingCopy })},
	{"BRANCH", str(func(c *Config) *string { return &c.Project.Branch })},
	{"FILE", str(func(c *Config) *string { return &c.Project.TemplateFile })},
	{"REVISION", integer(func(c *Config) *int { return &c.Project.Revision })},
	{"MODULE_NAME", str(func(c *Config) *string { return &c.Rename.ModuleName })},
	{"TARGET_TOKEN", str(func(c *Config) *string { return &c.Rename.Target })},
	{"REPLACEMENT_TOKEN", str(func(c *Config) *string { return &c.Rename.Replacement })},
	{"DRY_RUN", boolean(func(c *Config) *bool { return &c.Rename.DryRun })},
	{"VERBOSE", boolean(func(c *Config) *bool { return &c.Output.Verbose })},
	{"JOURNAL_PATH", str(func(c *Config) *string { return &c.Output.JournalPath })},
	{"METRICS_FILE", str(func(c *Config) *string { return &c.Output.MetricsFile })},
	{"MODEL_SDK_URL", str(func(c *Config) *string { return &c.Model.URL })},
	{"MODEL_SDK_USER", str(func(c *Config) *string { return &c.Model.User })},
	{"MODEL_SDK_TOKEN", str(func(c *Config) *string { return &c.Model.Token })},
	{"REQUEST_TIMEOUT", str(func(c *Config) *string { return &c.Model.RequestTimeout })},
	{"LOAD_CONCURRENCY", integer(func(c *Config) *int { return &c.Loader.Concurrency })},
	{"REQUESTS_PER_SECOND", func(c *Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		c.Loader.RequestsPerSecond = f
		return nil
	}},
}

// ApplyEnv overlays environment variables on cfg. Variables that are unset leave the file value alone.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	for _, b := range bindings {
		v, ok := lookup(b.key)
		if !ok {
			continue
		}
		if err := b.apply(cfg, v); err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrConfiguration, b.key, v, err)
		}
	}
	return nil
}

// EnvKeys lists the recognized environment variables.
func EnvKeys() []string {
	keys := make([]string, len(bindings))
	for i, b := range bindings {
		keys[i] = b.key
	}
	return keys
}
