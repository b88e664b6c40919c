// Package config reads the collector's settings from the environment
// into one immutable value built at startup. Nothing downstream of this
// package touches the environment.
package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the collector process.
type Config struct {
	Inverter InverterConfig
	Influx   InfluxConfig

	SampleTime    time.Duration // polling interval
	FetchTimeout  time.Duration // per-request budget towards the inverter
	WriteTimeout  time.Duration // per-request budget towards the store
	RetryAttempts int           // attempts per fetch/write within a cycle

	StatusAddr string // status/metrics listen address; empty disables
	Debug      bool
}

// InverterConfig identifies the device and its web interface credentials.
type InverterConfig struct {
	IP       string
	User     string
	Password string
}

// InfluxConfig identifies the store and the target database.
type InfluxConfig struct {
	IP       string
	Port     int
	User     string
	Password string
	Database string
}

// URL renders the store's base URL.
func (c InfluxConfig) URL() string {
	return "http://" + net.JoinHostPort(c.IP, strconv.Itoa(c.Port))
}

var envKeys = []string{
	"INVERTER_IP", "INVERTER_USER", "INVERTER_PASSWD",
	"INFLUX_IP", "INFLUX_PORT", "INFLUX_USER", "INFLUX_PASSWD",
	"DB_NAME", "SAMPLE_TIME", "DEBUG",
	"FETCH_TIMEOUT", "WRITE_TIMEOUT", "RETRY_ATTEMPTS", "STATUS_ADDR",
}

var requiredKeys = []string{"INVERTER_IP", "INVERTER_USER", "INVERTER_PASSWD"}

// Load reads configuration from the environment, applies defaults, and
// validates the result.
func Load() (*Config, error) {
	v := viper.New()
	// An empty value must count as set: STATUS_ADDR="" disables the
	// status server rather than falling back to the default address.
	v.AllowEmptyEnv(true)
	for _, key := range envKeys {
		v.MustBindEnv(key)
	}
	setDefaults(v)

	for _, key := range requiredKeys {
		if v.GetString(key) == "" {
			return nil, fmt.Errorf("required setting %s is not set", key)
		}
	}

	config := &Config{
		Inverter: InverterConfig{
			IP:       v.GetString("INVERTER_IP"),
			User:     v.GetString("INVERTER_USER"),
			Password: v.GetString("INVERTER_PASSWD"),
		},
		Influx: InfluxConfig{
			IP:       v.GetString("INFLUX_IP"),
			Port:     v.GetInt("INFLUX_PORT"),
			User:     v.GetString("INFLUX_USER"),
			Password: v.GetString("INFLUX_PASSWD"),
			Database: v.GetString("DB_NAME"),
		},
		SampleTime:    time.Duration(v.GetInt("SAMPLE_TIME")) * time.Second,
		FetchTimeout:  time.Duration(v.GetInt("FETCH_TIMEOUT")) * time.Second,
		WriteTimeout:  time.Duration(v.GetInt("WRITE_TIMEOUT")) * time.Second,
		RetryAttempts: v.GetInt("RETRY_ATTEMPTS"),
		StatusAddr:    v.GetString("STATUS_ADDR"),
		Debug:         v.GetBool("DEBUG"),
	}

	if config.SampleTime <= 0 {
		return nil, fmt.Errorf("SAMPLE_TIME must be a positive number of seconds, got %q", v.GetString("SAMPLE_TIME"))
	}
	if config.FetchTimeout <= 0 || config.WriteTimeout <= 0 {
		return nil, fmt.Errorf("timeouts must be positive numbers of seconds")
	}
	if config.RetryAttempts < 1 {
		return nil, fmt.Errorf("RETRY_ATTEMPTS must be at least 1, got %q", v.GetString("RETRY_ATTEMPTS"))
	}
	if config.Influx.Port < 1 || config.Influx.Port > 65535 {
		return nil, fmt.Errorf("INFLUX_PORT out of range: %q", v.GetString("INFLUX_PORT"))
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("INFLUX_IP", "127.0.0.1")
	v.SetDefault("INFLUX_PORT", 8086)
	v.SetDefault("INFLUX_USER", "root")
	v.SetDefault("INFLUX_PASSWD", "root")
	v.SetDefault("DB_NAME", "solarpower")

	v.SetDefault("SAMPLE_TIME", 60)
	v.SetDefault("FETCH_TIMEOUT", 5)
	v.SetDefault("WRITE_TIMEOUT", 10)
	v.SetDefault("RETRY_ATTEMPTS", 3)

	v.SetDefault("STATUS_ADDR", ":9090")
	v.SetDefault("DEBUG", false)
}
