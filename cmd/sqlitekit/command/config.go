package command

import (
	"os"

	"gopkg.in/yaml.v2"
)

// Config is the YAML-decoded configuration shared by inspect and create,
// mirroring the teacher's ListenCommand config pattern: a handful of
// scalar fields decoded straight off the file over preset defaults, so a
// field the file omits keeps its default.
type Config struct {
	DB       string `yaml:"db"`
	PageSize uint32 `yaml:"page_size"`
	LogLevel string `yaml:"log_level"`
	DataDir  string `yaml:"data_dir"`
}

func loadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg := &Config{PageSize: 4096, LogLevel: "info"}
	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
