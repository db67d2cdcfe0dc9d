package utils

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type StateConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
	Redis   string `mapstructure:"redis"`
	Mongo   string `mapstructure:"mongo"`
	Key     string `mapstructure:"key"`
}

type ArchiverConfig struct {
	URL            string        `mapstructure:"url"`
	AdminName      string        `mapstructure:"admin_name"`
	AdminPassword  string        `mapstructure:"admin_password"`
	TablePrefix    string        `mapstructure:"table_prefix"`
	DefaultLang    string        `mapstructure:"default_lang"`
	OutputDir      string        `mapstructure:"output_dir"`
	Gocr           string        `mapstructure:"gocr"`
	TemporaryTheme string        `mapstructure:"temporary_theme"`
	ExportSmilies  bool          `mapstructure:"export_smilies"`
	RewriteLinks   bool          `mapstructure:"rewrite_links"`
	PhpbbURL       string        `mapstructure:"phpbb_url"`
	RetryWait      time.Duration `mapstructure:"retry_wait"`
	RateLimit      float64       `mapstructure:"rate_limit"`
	Verbose        bool          `mapstructure:"verbose"`
	LogFile        string        `mapstructure:"log_file"`
	State          StateConfig   `mapstructure:"state"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("table_prefix", "phpbb_")
	v.SetDefault("default_lang", "fr")
	v.SetDefault("output_dir", ".")
	v.SetDefault("gocr", "gocr")
	v.SetDefault("export_smilies", true)
	v.SetDefault("rewrite_links", false)
	v.SetDefault("retry_wait", 30*time.Second)
	v.SetDefault("rate_limit", 2.0)
	v.SetDefault("log_file", "debug.log")
	v.SetDefault("state.backend", "file")
	v.SetDefault("state.path", "save.json")
	v.SetDefault("state.key", "lalf")
}

// LoadConfig reads config.yaml from the working directory, or the file at
// path when it is not empty. LALF_* environment variables override it.
func LoadConfig(path string) (*ArchiverConfig, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix("lalf")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	c := &ArchiverConfig{}
	if err := v.Unmarshal(c); err != nil {
		return nil, err
	}
	c.URL = strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(c.URL, "http://"), "https://"), "/")
	c.PhpbbURL = strings.TrimSuffix(c.PhpbbURL, "/")

	return c, nil
}

func (c *ArchiverConfig) Validate() error {
	var errs []error
	missing := func(key, value string) {
		if value == "" {
			errs = append(errs, fmt.Errorf("missing option %q", key))
		}
	}
	missing("url", c.URL)
	missing("admin_name", c.AdminName)
	missing("admin_password", c.AdminPassword)
	if c.RewriteLinks {
		missing("phpbb_url", c.PhpbbURL)
	}
	switch c.State.Backend {
	case "file":
		missing("state.path", c.State.Path)
	case "redis":
		missing("state.redis", c.State.Redis)
	case "mongo":
		missing("state.mongo", c.State.Mongo)
	case "sqlite":
		missing("state.path", c.State.Path)
	default:
		errs = append(errs, fmt.Errorf("unknown state backend %q", c.State.Backend))
	}
	return errors.Join(errs...)
}
