package watchd_config

import (
	"time"

	"github.com/NordCoder/Watchtower/internal/obs"
	"github.com/NordCoder/Watchtower/internal/repository/snapshot"
)

type LogCfg struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
	Env    string `mapstructure:"env"`
	Ver    string `mapstructure:"ver"`
}

func (c LogCfg) AsLoggerConfig() obs.LogConfig {
	return obs.LogConfig{
		Level:  c.Level,
		Pretty: c.Pretty,
		App:    "watchd",
		Env:    c.Env,
		Ver:    c.Ver,
	}
}

type OTELCfg struct {
	Enable      bool    `mapstructure:"enable"`
	Endpoint    string  `mapstructure:"otlp_endpoint"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

func (c OTELCfg) AsOTELConfig() *obs.OTELConfig {
	return &obs.OTELConfig{
		Enable:      c.Enable,
		Endpoint:    c.Endpoint,
		ServiceName: c.ServiceName,
		SampleRatio: c.SampleRatio,
	}
}

type EngineCfg struct {
	ProbeTimeout  time.Duration `mapstructure:"probe_timeout"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
	MinInterval   time.Duration `mapstructure:"min_interval"`
	MaxInterval   time.Duration `mapstructure:"max_interval"`
	MetricsAddr   string        `mapstructure:"metrics_addr"`
}

type SnapshotCfg struct {
	// Driver is "file" or "postgres".
	Driver string            `mapstructure:"driver"`
	Path   string            `mapstructure:"path"`
	DB     snapshot.PGConfig `mapstructure:"db"`
}

type TelegramCfg struct {
	Token string `mapstructure:"token"`
}

type KafkaCfg struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type NotifyCfg struct {
	// Driver is "log", "telegram" or "kafka".
	Driver   string      `mapstructure:"driver"`
	Telegram TelegramCfg `mapstructure:"telegram"`
	Kafka    KafkaCfg    `mapstructure:"kafka"`
}

type TwitchCfg struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
}

type ProbeCfg struct {
	UserAgent string    `mapstructure:"user_agent"`
	Twitch    TwitchCfg `mapstructure:"twitch"`
}

type Config struct {
	Log      LogCfg      `mapstructure:"log"`
	OTEL     OTELCfg     `mapstructure:"otel"`
	Engine   EngineCfg   `mapstructure:"engine"`
	Snapshot SnapshotCfg `mapstructure:"snapshot"`
	Notify   NotifyCfg   `mapstructure:"notify"`
	Probe    ProbeCfg    `mapstructure:"probe"`
}
