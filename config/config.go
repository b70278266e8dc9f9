// Package config loads the runtime settings shared by the node, shell,
// ring and visualizer commands from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds the runtime settings of a ring deployment. Identifier
// width is a compile-time constant of the dht package; everything
// operational lives here.
type Config struct {
	// Host is the address nodes bind and advertise.
	Host string `env:"CHORD_HOST" env-default:"localhost" validate:"required"`
	// BasePort is the port of the first node; node i listens on
	// BasePort+i.
	BasePort int `env:"CHORD_BASE_PORT" env-default:"50001" validate:"gte=1,lte=65535"`
	// Interval is the maintenance period.
	Interval time.Duration `env:"CHORD_INTERVAL" env-default:"1s" validate:"gt=0"`
	// RPCTimeout bounds every outbound peer call. Must not exceed half
	// the maintenance interval.
	RPCTimeout time.Duration `env:"CHORD_RPC_TIMEOUT" env-default:"500ms" validate:"gt=0"`
	// Mode selects the routing variant: "finger" or "basic".
	Mode string `env:"CHORD_MODE" env-default:"finger" validate:"oneof=finger basic"`
}

// Load reads configuration from environment variables and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to read env config: %v", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %v", err)
	}

	if cfg.RPCTimeout > cfg.Interval/2 {
		return cfg, fmt.Errorf("rpc timeout %v must not exceed half the maintenance interval %v",
			cfg.RPCTimeout, cfg.Interval)
	}
	return cfg, nil
}
