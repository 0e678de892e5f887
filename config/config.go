package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the process-wide settings. Session-level game settings
// (round duration etc.) live in the session document; the values here are
// only the defaults stamped into newly created sessions.
type Config struct {
	LexiconPath    string
	DefaultLexicon string

	DefaultRoundDuration time.Duration
	DefaultGracePeriod   time.Duration
	DefaultArbiterName   string

	StoreBackend string // "memory" or "redis"
	RedisURL     string
	ListenAddr   string

	Debug bool
}

// DefaultConfig returns a config with sane defaults and no env/file
// overrides applied. Used mostly by tests.
func DefaultConfig() Config {
	return Config{
		LexiconPath:          "./data/lexica",
		DefaultLexicon:       "DISC",
		DefaultRoundDuration: 180 * time.Second,
		DefaultGracePeriod:   10 * time.Second,
		DefaultArbiterName:   "MASTER",
		StoreBackend:         "memory",
		RedisURL:             "redis://localhost:6379",
		ListenAddr:           ":8087",
	}
}

// Load reads configuration from the environment (DUPLICAT_ prefix) and an
// optional duplicat.yaml in the working directory.
func (c *Config) Load() error {
	v := viper.New()
	v.SetEnvPrefix("duplicat")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	defaults := DefaultConfig()
	v.SetDefault("lexicon-path", defaults.LexiconPath)
	v.SetDefault("default-lexicon", defaults.DefaultLexicon)
	v.SetDefault("round-duration", defaults.DefaultRoundDuration)
	v.SetDefault("grace-period", defaults.DefaultGracePeriod)
	v.SetDefault("arbiter-name", defaults.DefaultArbiterName)
	v.SetDefault("store-backend", defaults.StoreBackend)
	v.SetDefault("redis-url", defaults.RedisURL)
	v.SetDefault("listen-addr", defaults.ListenAddr)
	v.SetDefault("debug", false)

	v.SetConfigName("duplicat")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}

	c.LexiconPath = v.GetString("lexicon-path")
	c.DefaultLexicon = v.GetString("default-lexicon")
	c.DefaultRoundDuration = v.GetDuration("round-duration")
	c.DefaultGracePeriod = v.GetDuration("grace-period")
	c.DefaultArbiterName = v.GetString("arbiter-name")
	c.StoreBackend = v.GetString("store-backend")
	c.RedisURL = v.GetString("redis-url")
	c.ListenAddr = v.GetString("listen-addr")
	c.Debug = v.GetBool("debug")
	return nil
}
