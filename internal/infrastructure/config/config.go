package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds all runtime settings, merged from config file, environment
// (TOKENSCOUT_ prefix), and flags. Timing constants deliberately live here
// rather than in code: the right values depend on feed cost and traffic.
type Config struct {
	Server struct {
		Port            int
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		ShutdownTimeout time.Duration
	}

	Redis struct {
		Host        string
		Port        int
		Password    string
		DB          int
		Key         string
		DialTimeout time.Duration
		ReadTimeout time.Duration
	}

	Feed struct {
		URL           string
		Token         string
		BatchSize     int
		Lookback      time.Duration
		Timeout       time.Duration
		RatePerMinute int
	}

	Cache struct {
		TTL              time.Duration
		RefreshThreshold time.Duration
		ProbeInterval    time.Duration
		RefreshTimeout   time.Duration
	}

	Discovery struct {
		TotalSupply         float64
		GraduationThreshold float64
		MarketCapMin        float64
		MarketCapMax        float64
		ResolverWorkers     int
	}

	Metadata struct {
		PrimaryTimeout time.Duration
		GatewayTimeout time.Duration
		Gateways       []string
	}

	Scheduler struct {
		Interval time.Duration
	}

	LogLevel string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TOKENSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config

	cfg.Server.Port = v.GetInt("server.port")
	cfg.Server.ReadTimeout = v.GetDuration("server.read-timeout")
	cfg.Server.WriteTimeout = v.GetDuration("server.write-timeout")
	cfg.Server.ShutdownTimeout = v.GetDuration("server.shutdown-timeout")

	cfg.Redis.Host = v.GetString("redis.host")
	cfg.Redis.Port = v.GetInt("redis.port")
	cfg.Redis.Password = v.GetString("redis.password")
	cfg.Redis.DB = v.GetInt("redis.db")
	cfg.Redis.Key = v.GetString("redis.key")
	cfg.Redis.DialTimeout = v.GetDuration("redis.dial-timeout")
	cfg.Redis.ReadTimeout = v.GetDuration("redis.read-timeout")

	cfg.Feed.URL = v.GetString("feed.url")
	cfg.Feed.Token = v.GetString("feed.token")
	cfg.Feed.BatchSize = v.GetInt("feed.batch-size")
	cfg.Feed.Lookback = v.GetDuration("feed.lookback")
	cfg.Feed.Timeout = v.GetDuration("feed.timeout")
	cfg.Feed.RatePerMinute = v.GetInt("feed.rate-per-minute")

	cfg.Cache.TTL = v.GetDuration("cache.ttl")
	cfg.Cache.RefreshThreshold = v.GetDuration("cache.refresh-threshold")
	cfg.Cache.ProbeInterval = v.GetDuration("cache.probe-interval")
	cfg.Cache.RefreshTimeout = v.GetDuration("cache.refresh-timeout")

	cfg.Discovery.TotalSupply = v.GetFloat64("discovery.total-supply")
	cfg.Discovery.GraduationThreshold = v.GetFloat64("discovery.graduation-threshold")
	cfg.Discovery.MarketCapMin = v.GetFloat64("discovery.market-cap-min")
	cfg.Discovery.MarketCapMax = v.GetFloat64("discovery.market-cap-max")
	cfg.Discovery.ResolverWorkers = v.GetInt("discovery.resolver-workers")

	cfg.Metadata.PrimaryTimeout = v.GetDuration("metadata.primary-timeout")
	cfg.Metadata.GatewayTimeout = v.GetDuration("metadata.gateway-timeout")
	cfg.Metadata.Gateways = v.GetStringSlice("metadata.gateways")

	cfg.Scheduler.Interval = v.GetDuration("scheduler.interval")

	cfg.LogLevel = v.GetString("log-level")

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read-timeout", 10*time.Second)
	v.SetDefault("server.write-timeout", 10*time.Second)
	v.SetDefault("server.shutdown-timeout", 30*time.Second)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key", "tokenscout:snapshot")
	v.SetDefault("redis.dial-timeout", 2*time.Second)
	v.SetDefault("redis.read-timeout", 2*time.Second)

	v.SetDefault("feed.batch-size", 200)
	v.SetDefault("feed.lookback", time.Hour)
	v.SetDefault("feed.timeout", 10*time.Second)
	v.SetDefault("feed.rate-per-minute", 30)

	v.SetDefault("cache.ttl", 15*time.Minute)
	v.SetDefault("cache.refresh-threshold", 2*time.Minute)
	v.SetDefault("cache.probe-interval", 30*time.Second)
	v.SetDefault("cache.refresh-timeout", time.Minute)

	v.SetDefault("discovery.total-supply", 1_000_000_000.0)
	v.SetDefault("discovery.graduation-threshold", 69_000.0)
	v.SetDefault("discovery.market-cap-min", 30_000.0)
	v.SetDefault("discovery.market-cap-max", 68_000.0)
	v.SetDefault("discovery.resolver-workers", 8)

	v.SetDefault("metadata.primary-timeout", 2*time.Second)
	v.SetDefault("metadata.gateway-timeout", 1500*time.Millisecond)

	v.SetDefault("scheduler.interval", 14*time.Minute)

	v.SetDefault("log-level", "info")
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
