package relax

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the file form of the store and binding options.
//
//	name: todos
//	debug: true
//	engine: cel
//	instance_limit: 50
//	warn_unsupported: true
//	activity:
//	  channel: ui
type Config struct {
	Name            string         `yaml:"name"`
	Debug           bool           `yaml:"debug"`
	Engine          string         `yaml:"engine"`
	InstanceLimit   *int           `yaml:"instance_limit"`
	WarnUnsupported bool           `yaml:"warn_unsupported"`
	Activity        ActivityConfig `yaml:"activity"`
}

// ActivityConfig configures diagnostics emission.
type ActivityConfig struct {
	Channel string `yaml:"channel"`
}

// LoadConfig decodes a YAML document. Unknown keys are rejected.
func LoadConfig(r io.Reader) (Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("relax: decode config: %w", err)
	}
	return cfg, nil
}

// LoadConfigFile reads and decodes the YAML file at path.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("relax: read config %q: %w", path, err)
	}
	return LoadConfig(bytes.NewReader(data))
}

// Options converts the file form into Options. The engine is validated here
// so a bad file fails at load time instead of at the first query.
func (c Config) Options() ([]Option, error) {
	engine := strings.ToLower(strings.TrimSpace(c.Engine))
	switch engine {
	case "", engineExpr, engineCEL:
	case engineJS:
		if !jsEvaluatorAvailable() {
			return nil, fmt.Errorf("relax: config engine %q requires the js_eval build tag", c.Engine)
		}
	default:
		return nil, fmt.Errorf("relax: config engine %q is not one of expr, cel, js", c.Engine)
	}
	if c.InstanceLimit != nil && *c.InstanceLimit < 0 {
		return nil, fmt.Errorf("relax: config instance_limit must not be negative, got %d", *c.InstanceLimit)
	}

	opts := []Option{
		WithDebug(c.Debug),
		WithWarnUnsupported(c.WarnUnsupported),
	}
	if c.Name != "" {
		opts = append(opts, WithName(c.Name))
	}
	if engine != "" {
		opts = append(opts, WithEngineName(engine))
	}
	if c.InstanceLimit != nil {
		opts = append(opts, WithInstanceLimit(*c.InstanceLimit))
	}
	if c.Activity.Channel != "" {
		opts = append(opts, WithActivityChannel(c.Activity.Channel))
	}
	return opts, nil
}
