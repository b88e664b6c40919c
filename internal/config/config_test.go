package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("INVERTER_IP", "192.168.1.40")
	t.Setenv("INVERTER_USER", "admin")
	t.Setenv("INVERTER_PASSWD", "admin")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	config, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "192.168.1.40", config.Inverter.IP)
	assert.Equal(t, "admin", config.Inverter.User)

	assert.Equal(t, "127.0.0.1", config.Influx.IP)
	assert.Equal(t, 8086, config.Influx.Port)
	assert.Equal(t, "root", config.Influx.User)
	assert.Equal(t, "root", config.Influx.Password)
	assert.Equal(t, "solarpower", config.Influx.Database)

	assert.Equal(t, 60*time.Second, config.SampleTime)
	assert.Equal(t, 5*time.Second, config.FetchTimeout)
	assert.Equal(t, 10*time.Second, config.WriteTimeout)
	assert.Equal(t, 3, config.RetryAttempts)
	assert.Equal(t, ":9090", config.StatusAddr)
	assert.False(t, config.Debug)
}

func TestLoadMissingRequired(t *testing.T) {
	tests := []string{"INVERTER_IP", "INVERTER_USER", "INVERTER_PASSWD"}

	for _, missing := range tests {
		t.Run(missing, func(t *testing.T) {
			setRequired(t)
			t.Setenv(missing, "")

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), missing)
		})
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("INFLUX_IP", "influx.lan")
	t.Setenv("INFLUX_PORT", "18086")
	t.Setenv("DB_NAME", "telemetry")
	t.Setenv("SAMPLE_TIME", "10")
	t.Setenv("RETRY_ATTEMPTS", "5")
	t.Setenv("STATUS_ADDR", "")
	t.Setenv("DEBUG", "true")

	config, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "influx.lan", config.Influx.IP)
	assert.Equal(t, 18086, config.Influx.Port)
	assert.Equal(t, "telemetry", config.Influx.Database)
	assert.Equal(t, 10*time.Second, config.SampleTime)
	assert.Equal(t, 5, config.RetryAttempts)
	assert.Empty(t, config.StatusAddr, "empty STATUS_ADDR disables the status server")
	assert.True(t, config.Debug)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"zero sample time", "SAMPLE_TIME", "0"},
		{"non-numeric sample time", "SAMPLE_TIME", "soon"},
		{"zero retry attempts", "RETRY_ATTEMPTS", "0"},
		{"port out of range", "INFLUX_PORT", "70000"},
		{"zero fetch timeout", "FETCH_TIMEOUT", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestInfluxURL(t *testing.T) {
	c := InfluxConfig{IP: "127.0.0.1", Port: 8086}
	assert.Equal(t, "http://127.0.0.1:8086", c.URL())
}
