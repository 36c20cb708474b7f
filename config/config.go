package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type BattleConfig struct {
	TickInterval            time.Duration `mapstructure:"tick_interval"`
	Speed                   float64       `mapstructure:"speed"`
	Seed                    uint64        `mapstructure:"seed"`
	CatalogPath             string        `mapstructure:"catalog_path"`
	StartingPrivateGold     float64       `mapstructure:"starting_private_gold"`
	StartingPrivateGoldRate float64       `mapstructure:"starting_private_gold_rate"`
	// Stopped battles untouched for IdleTTL are deleted. Zero keeps them forever.
	IdleTTL                 time.Duration `mapstructure:"idle_ttl"`
	ReapInterval            time.Duration `mapstructure:"reap_interval"`
}

type LogConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

type Config struct {
	HTTPAddr string       `mapstructure:"http_addr"`
	APIToken string       `mapstructure:"api_token"`
	Redis    RedisConfig  `mapstructure:"redis"`
	Battle   BattleConfig `mapstructure:"battle"`
	Log      LogConfig    `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_addr", ":8000")
	v.SetDefault("api_token", "")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("battle.tick_interval", "1s")
	v.SetDefault("battle.speed", 1.0)
	v.SetDefault("battle.seed", 0)
	v.SetDefault("battle.catalog_path", "")
	v.SetDefault("battle.starting_private_gold", 0.0)
	v.SetDefault("battle.starting_private_gold_rate", 1.0)
	v.SetDefault("battle.idle_ttl", "0s")
	v.SetDefault("battle.reap_interval", "10m")
	v.SetDefault("log.development", false)
	v.SetDefault("log.level", "info")
}

// Load reads the optional config file at path and overlays environment variables.
// REDIS_ADDR maps to redis.addr, BATTLE_SPEED to battle.speed and so on.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Battle.TickInterval <= 0 {
		cfg.Battle.TickInterval = time.Second
	}
	return &cfg, nil
}
