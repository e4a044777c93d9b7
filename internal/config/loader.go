package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Load reads configuration with viper: built-in defaults, then an
// optional config file (explicit path or ~/.config/issuescout/), then
// ISSUESCOUT_* environment variables. Safe to call more than once.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "issuescout"))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("ISSUESCOUT")
	v.AutomaticEnv()
	bindEnvKeys(v)

	// The config file is optional; only an explicitly named file must
	// exist and parse.
	if err := v.ReadInConfig(); err != nil && cfgFile != "" {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, decodeHook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("github.api_base_url", "https://api.github.com")
	v.SetDefault("github.graphql_endpoint", "https://api.github.com/graphql")
	v.SetDefault("github.http_timeout", 10*time.Second)
	v.SetDefault("throttle.spacing", 500*time.Millisecond)
	v.SetDefault("cache.ttl", time.Minute)
	v.SetDefault("search.page_size", 30)
	v.SetDefault("search.labels", []string{"good first issue"})
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8380)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("logging.level", "info")

	if home, err := os.UserHomeDir(); err == nil {
		v.SetDefault("store.path", filepath.Join(home, ".config", "issuescout", "issuescout.db"))
	} else {
		v.SetDefault("store.path", "issuescout.db")
	}
}

// bindEnvKeys makes nested keys reachable through AutomaticEnv, e.g.
// ISSUESCOUT_GITHUB_TOKEN for github.token.
func bindEnvKeys(v *viper.Viper) {
	for _, key := range []string{
		"github.token",
		"github.api_base_url",
		"github.graphql_endpoint",
		"throttle.spacing",
		"cache.ttl",
		"search.page_size",
		"search.language",
		"server.host",
		"server.port",
		"store.path",
		"logging.level",
	} {
		env := "ISSUESCOUT_" + envName(key)
		_ = v.BindEnv(key, env)
	}
}

func envName(key string) string {
	out := make([]byte, 0, len(key))
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case c == '.':
			out = append(out, '_')
		case c >= 'a' && c <= 'z':
			out = append(out, c-'a'+'A')
		default:
			out = append(out, c)
		}
	}
	return string(out)
}
