package config

import (
	"log"

	"github.com/spf13/viper"
)

type SchedulerConfig struct {
	CronSchedule   string `mapstructure:"cron_schedule"`
	AssessLateFees bool   `mapstructure:"assess_late_fees"`
	InviteTTLHours int    `mapstructure:"invite_ttl_hours"`
	ResetTTLHours  int    `mapstructure:"reset_ttl_hours"`
}

type TemporalConfig struct {
	HostPort string `mapstructure:"host_port"`
}

type Config struct {
	DatabaseURL string          `mapstructure:"database_url"`
	ServerPort  string          `mapstructure:"server_port"`
	JWTSecret   string          `mapstructure:"jwt_secret"`
	Scheduler   SchedulerConfig `mapstructure:"scheduler"`
	Temporal    TemporalConfig  `mapstructure:"temporal"`
	Email       EmailConfig     `mapstructure:"email"`
}

type EmailConfig struct {
	From              string `mapstructure:"from"`
	SMTPHost          string `mapstructure:"smtp_host"`
	SMTPPort          int    `mapstructure:"smtp_port"`
	Username          string `mapstructure:"username"`
	Password          string `mapstructure:"password"`
	InviteURLTemplate string `mapstructure:"invite_url_template"`
	ResetURLTemplate  string `mapstructure:"reset_url_template"`
}

// Load reads the configuration from a YAML file and returns a Config instance.
func Load() *Config {
	v := viper.New()

	// Look for config in the current directory and ./config
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.AddConfigPath("./config")
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("Error reading config file: %v", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		log.Fatalf("Error unmarshalling config: %v", err)
	}

	// Fallback defaults
	if config.ServerPort == "" {
		config.ServerPort = "8080"
	}

	if config.JWTSecret == "" {
		log.Fatal("JWT secret must be set in the config file")
	}

	if config.Scheduler.CronSchedule == "" {
		config.Scheduler.CronSchedule = "0 8 * * *"
	}
	if config.Scheduler.InviteTTLHours == 0 {
		config.Scheduler.InviteTTLHours = 48
	}
	if config.Scheduler.ResetTTLHours == 0 {
		config.Scheduler.ResetTTLHours = 1
	}
	if config.Temporal.HostPort == "" {
		config.Temporal.HostPort = "localhost:7233"
	}

	if config.Email.SMTPPort == 0 {
		config.Email.SMTPPort = 587
	}
	if config.Email.InviteURLTemplate == "" {
		config.Email.InviteURLTemplate = "https://app.mypropai.com/portal/activate?token=%s"
	}
	if config.Email.ResetURLTemplate == "" {
		config.Email.ResetURLTemplate = "https://app.mypropai.com/portal/reset?token=%s"
	}

	return &config
}
