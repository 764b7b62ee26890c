package config

import (
	"os"
	"path"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// SysConfig system configuration
type SysConfig struct {
	Appid          string `yaml:"appid"`
	Location       string `yaml:"location"`
	Workdir        string `yaml:"workdir"`
	Debug          bool   `yaml:"debug"`
	Workers        int    `yaml:"workers"`         // worker pool size used by the recipe engine
	SeedCategories bool   `yaml:"seed_categories"` // create default categories on first start
	NodeID         int64  `yaml:"node_id"`         // snowflake node id (0-1023)
}

// WebConfig web server configuration
type WebConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	BasePath      string `yaml:"base_path"`
	MetricsEnable bool   `yaml:"metrics_enable"`
}

// DBConfig database configuration
type DBConfig struct {
	Type     string `yaml:"type"` // memory, sqlite or postgres
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Passwd   string `yaml:"passwd"`
	Dsn      string `yaml:"dsn"` // overrides the individual postgres fields when set
	MaxConn  int    `yaml:"max_conn"`
	IdleConn int    `yaml:"idle_conn"`
	Debug    bool   `yaml:"debug"`
}

// LogConfig logging configuration
type LogConfig struct {
	Mode       string `yaml:"mode"`
	FileEnable bool   `yaml:"file_enable"`
	Filename   string `yaml:"filename"`
}

type AppConfig struct {
	System   SysConfig `yaml:"system"`
	Web      WebConfig `yaml:"web"`
	Database DBConfig  `yaml:"database"`
	Logger   LogConfig `yaml:"logger"`
}

func (c *AppConfig) GetLogDir() string {
	return path.Join(c.System.Workdir, "logs")
}

func (c *AppConfig) GetDataDir() string {
	return path.Join(c.System.Workdir, "data")
}

// InitDirs creates the working directories used by the log and metrics stores.
func (c *AppConfig) InitDirs() error {
	for _, dir := range []string{c.GetLogDir(), c.GetDataDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create dir %s", dir)
		}
	}
	return nil
}

var DefaultAppConfig = &AppConfig{
	System: SysConfig{
		Appid:          "Cookbook",
		Location:       "UTC",
		Workdir:        "/var/cookbook",
		Debug:          true,
		Workers:        8,
		SeedCategories: true,
		NodeID:         1,
	},
	Web: WebConfig{
		Host:          "0.0.0.0",
		Port:          3000,
		MetricsEnable: true,
	},
	Database: DBConfig{
		Type:     "memory",
		Host:     "127.0.0.1",
		Port:     5432,
		Name:     "cookbook",
		User:     "postgres",
		Passwd:   "",
		MaxConn:  100,
		IdleConn: 10,
	},
	Logger: LogConfig{
		Mode:       "development",
		FileEnable: false,
		Filename:   "/var/cookbook/logs/cookbook.log",
	},
}

// LoadConfig reads the YAML file at cfile over the defaults and applies
// environment overrides. A missing file is not an error.
func LoadConfig(cfile string) (*AppConfig, error) {
	cfg := *DefaultAppConfig
	if cfile != "" {
		data, err := os.ReadFile(cfile)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, errors.Wrapf(err, "parse config %s", cfile)
			}
		case os.IsNotExist(err):
		default:
			return nil, errors.Wrapf(err, "read config %s", cfile)
		}
	}
	applyEnv(&cfg)
	return &cfg, nil
}

func applyEnv(cfg *AppConfig) {
	setEnvValue("COOKBOOK_WORKDIR", &cfg.System.Workdir)
	setEnvValue("COOKBOOK_WEB_HOST", &cfg.Web.Host)
	setEnvInt("COOKBOOK_WEB_PORT", &cfg.Web.Port)
	setEnvValue("COOKBOOK_DB_TYPE", &cfg.Database.Type)
	setEnvValue("COOKBOOK_DB_DSN", &cfg.Database.Dsn)
	setEnvValue("COOKBOOK_LOG_MODE", &cfg.Logger.Mode)
	setEnvBool("COOKBOOK_DEBUG", &cfg.System.Debug)
	setEnvInt("COOKBOOK_WORKERS", &cfg.System.Workers)
}

func setEnvValue(name string, val *string) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		*val = v
	}
}

func setEnvInt(name string, val *int) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		if n, err := cast.ToIntE(v); err == nil {
			*val = n
		}
	}
}

func setEnvBool(name string, val *bool) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		if b, err := cast.ToBoolE(v); err == nil {
			*val = b
		}
	}
}
