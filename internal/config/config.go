// Package config loads harness settings from YAML merged with environment
// variables (prefix `PIPECHECK__`, delimiter `__`).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/pipecheck/pipecheck"
)

type StreamCfg struct {
	Name          string `koanf:"name"`
	Partitions    int32  `koanf:"partitions"`
	Replicas      int16  `koanf:"replicas"`
	CleanupPolicy string `koanf:"cleanup_policy"`
	Records       int    `koanf:"records"`
	RecordSize    int    `koanf:"record_size"`
}

type ScriptCfg struct {
	Template string   `koanf:"template"`
	Inputs   []string `koanf:"inputs"`
	Outputs  []string `koanf:"outputs"`
}

type BuildCfg struct {
	WorkDir     string   `koanf:"work_dir"`
	TemplateDir string   `koanf:"template_dir"`
	Command     []string `koanf:"command"`
	RPKBin      string   `koanf:"rpk_bin"`
}

type LogCfg struct {
	Level string `koanf:"level"`
	JSON  bool   `koanf:"json"`
}

type Config struct {
	Brokers     []string      `koanf:"brokers"`
	Timeout     time.Duration `koanf:"timeout"`
	Backoff     time.Duration `koanf:"backoff"`
	JoinTimeout time.Duration `koanf:"join_timeout"`
	FanOut      int           `koanf:"fan_out"`
	DeployLabel string        `koanf:"deploy_label"`

	Streams []StreamCfg `koanf:"streams"`
	Scripts []ScriptCfg `koanf:"scripts"`
	Build   BuildCfg    `koanf:"build"`
	Log     LogCfg      `koanf:"log"`
}

// Load merges YAML (if present) with env vars and applies defaults.
func Load(path string) (Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil &&
			!errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}
	_ = k.Load(env.Provider("PIPECHECK__", "__", nil), nil)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, err
	}
	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if len(cfg.Brokers) == 0 {
		cfg.Brokers = []string{"localhost:9092"}
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 180 * time.Second
	}
	if cfg.Backoff == 0 {
		cfg.Backoff = time.Second
	}
	if cfg.JoinTimeout == 0 {
		cfg.JoinTimeout = 30 * time.Second
	}
	if cfg.FanOut == 0 {
		cfg.FanOut = 1
	}
	if cfg.DeployLabel == "" {
		cfg.DeployLabel = "pipecheck"
	}
}

// Topology converts the config into the harness topology. Script inputs must
// reference declared streams by name.
func (cfg Config) Topology() ([]pipecheck.StreamSpec, []*pipecheck.TransformScript, error) {
	byName := make(map[string]pipecheck.StreamSpec, len(cfg.Streams))
	streams := make([]pipecheck.StreamSpec, 0, len(cfg.Streams))
	for _, s := range cfg.Streams {
		spec := pipecheck.StreamSpec{
			Name:          s.Name,
			Partitions:    s.Partitions,
			Replicas:      s.Replicas,
			CleanupPolicy: pipecheck.CleanupPolicy(s.CleanupPolicy),
			Records:       s.Records,
			RecordSize:    s.RecordSize,
		}
		if spec.Partitions == 0 {
			spec.Partitions = 1
		}
		if spec.Replicas == 0 {
			spec.Replicas = 1
		}
		if spec.CleanupPolicy == "" {
			spec.CleanupPolicy = pipecheck.CleanupDelete
		}
		streams = append(streams, spec)
		byName[spec.Name] = spec
	}

	scripts := make([]*pipecheck.TransformScript, 0, len(cfg.Scripts))
	for _, sc := range cfg.Scripts {
		inputs := make([]pipecheck.StreamSpec, 0, len(sc.Inputs))
		for _, name := range sc.Inputs {
			spec, ok := byName[name]
			if !ok {
				return nil, nil, fmt.Errorf("script input %q is not a declared stream", name)
			}
			inputs = append(inputs, spec)
		}
		scripts = append(scripts, pipecheck.NewTransformScript(inputs, sc.Outputs, sc.Template))
	}
	return streams, scripts, nil
}
