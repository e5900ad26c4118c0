package preview

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the splittone-preview server configuration file. Command
// line flags override any value set here.
type Config struct {
	Addr  string `yaml:"addr"`  // HTTP listen address, e.g. :8089
	Frame string `yaml:"frame"` // source frame path
	Grade string `yaml:"grade"` // initial grade document path
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
