package config

import (
	"time"

	"github.com/spf13/viper"

	pkgconfig "github.com/eldrgeek/frontrow/pkg/config"
	pkglog "github.com/eldrgeek/frontrow/pkg/log"
)

type Config struct {
	Server    ServerConfig
	WebSocket WebSocketConfig
	Show      ShowConfig
	ICE       ICEConfig
	Log       pkglog.Config
}

type ServerConfig struct {
	Host string
	Port int
}

type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
}

type ShowConfig struct {
	SeatCount        int           `mapstructure:"seat_count"`
	TickInterval     time.Duration `mapstructure:"tick_interval"`
	PostShowCooldown time.Duration `mapstructure:"post_show_cooldown"`
	MaxCountdown     int           `mapstructure:"max_countdown"`
}

type ICEConfig struct {
	STUNServers []string `mapstructure:"stun_servers"`
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3001)
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 5242880)
	v.SetDefault("show.seat_count", 9)
	v.SetDefault("show.tick_interval", "1s")
	v.SetDefault("show.post_show_cooldown", "5s")
	v.SetDefault("show.max_countdown", 3600)
	v.SetDefault("ice.stun_servers", []string{"stun:stun.l.google.com:19302"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("log.service_name", "frontrow")

	// Override from environment
	v.BindEnv("server.port", "PORT")
	v.BindEnv("show.seat_count", "SHOW_SEAT_COUNT")
	v.BindEnv("show.post_show_cooldown", "SHOW_POST_SHOW_COOLDOWN")
	v.BindEnv("log.level", "LOG_LEVEL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Parse durations
	cfg.WebSocket.PingInterval = parseDuration(v, "websocket.ping_interval", 30*time.Second)
	cfg.WebSocket.PongWait = parseDuration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = parseDuration(v, "websocket.write_wait", 10*time.Second)
	cfg.Show.TickInterval = parseDuration(v, "show.tick_interval", time.Second)
	cfg.Show.PostShowCooldown = parseDuration(v, "show.post_show_cooldown", 5*time.Second)

	return &cfg, nil
}

func parseDuration(v *viper.Viper, key string, defaultVal time.Duration) time.Duration {
	str := v.GetString(key)
	d, err := time.ParseDuration(str)
	if err != nil {
		return defaultVal
	}
	return d
}
