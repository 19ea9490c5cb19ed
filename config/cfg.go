package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	// AffixConfig is a prefix or suffix specification: a uniform value
	// and/or independent per-target overrides.
	AffixConfig struct {
		All       string `yaml:"all,omitempty"`
		Selectors string `yaml:"selectors,omitempty"`
		Idents    string `yaml:"idents,omitempty"`
	}

	// IgnoreConfig lists regular expressions exempting names from
	// renaming, either for both targets or per target.
	IgnoreConfig struct {
		All       []string `yaml:"all,omitempty"`
		Selectors []string `yaml:"selectors,omitempty"`
		Idents    []string `yaml:"idents,omitempty"`
	}

	RenameConfig struct {
		Mode        string       `yaml:"mode" validate:"required,oneof=hash minimal debug"`
		DebugSymbol string       `yaml:"debug_symbol"`
		Prefix      AffixConfig  `yaml:"prefix"`
		Suffix      AffixConfig  `yaml:"suffix"`
		Seed        string       `yaml:"seed,omitempty"`
		Minify      bool         `yaml:"minify"`
		TablesPath  string       `yaml:"tables_path,omitempty" sanitize:"path_clean" validate:"omitempty,filepath"`
		Ignore      IgnoreConfig `yaml:"ignore"`
	}

	Config struct {
		Version   int            `yaml:"version" validate:"eq=1"`
		Rename    RenameConfig   `yaml:"rename"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		// sanitize and validate what has been loaded
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of the expanded configuration template to
// provide sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a
// byte slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
