package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel   string `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort   string `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	SocketPort string `yaml:"socket-port" env:"SOCKET_PORT" env-default:"9091"`
	Redis      Redis  `yaml:"redis"`
	Game       Game   `yaml:"game"`
}

type Redis struct {
	Host string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
}

// Game holds the wagering parameters and the timed choreography of a
// round. The delays exist so tests can shrink them instead of sleeping
// wall-clock seconds.
type Game struct {
	Stake          int64         `yaml:"stake" env:"GAME_STAKE" env-default:"100"`
	AutoStartDelay time.Duration `yaml:"auto-start-delay" env:"GAME_AUTO_START_DELAY" env-default:"2s"`
	FlipDelay      time.Duration `yaml:"flip-delay" env:"GAME_FLIP_DELAY" env-default:"3s"`
	ReplayDelay    time.Duration `yaml:"replay-delay" env:"GAME_REPLAY_DELAY" env-default:"1s"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
