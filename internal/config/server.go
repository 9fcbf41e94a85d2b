package config

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// ServerConfig configures cmd/api. Every field can come from the YAML file
// and be overridden by the environment.
type ServerConfig struct {
	Port        string        `yaml:"port" env:"API_PORT" env-default:"8080"`
	Env         string        `yaml:"env" env:"API_ENV" env-default:"development"`
	StaticDir   string        `yaml:"static_dir" env:"STATIC_DIR" env-default:"./web/dist"`
	PresetsDir  string        `yaml:"presets_dir" env:"PRESETS_DIR" env-default:"./examples/storage"`
	ExportDir   string        `yaml:"export_dir" env:"EXPORT_DIR" env-default:"./outputs"`
	CacheTTL    time.Duration `yaml:"cache_ttl" env:"CACHE_TTL" env-default:"30m"`
	CORSOrigins []string      `yaml:"cors_origins" env:"CORS_ORIGINS" env-separator:"," env-default:"*"`
	LogLevel    string        `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	LogPretty   bool          `yaml:"log_pretty" env:"LOG_PRETTY" env-default:"false"`
}

func (c ServerConfig) IsProduction() bool { return c.Env == "production" }

// LoadServer reads path (if set) and then the environment.
func LoadServer(path string) (ServerConfig, error) {
	var c ServerConfig
	if path != "" {
		if err := cleanenv.ReadConfig(path, &c); err != nil {
			return ServerConfig{}, err
		}
		return c, nil
	}
	if err := cleanenv.ReadEnv(&c); err != nil {
		return ServerConfig{}, err
	}
	return c, nil
}
