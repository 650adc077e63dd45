package clickhouse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "native with settings",
			cfg: Config{
				Host:         "ch",
				Port:         9000,
				Database:     "fusion",
				User:         "default",
				Password:     "pw",
				DialTimeout:  5 * time.Second,
				ReadTimeout:  30 * time.Second,
				MaxExecTime:  time.Minute,
				AsyncInsert:  true,
				WaitForAsync: true,
			},
			want: "clickhouse://default:pw@ch:9000/fusion?async_insert=1&dial_timeout=5s&max_execution_time=60&read_timeout=30s&wait_for_async_insert=1",
		},
		{
			name: "http without settings",
			cfg: Config{
				Host:     "localhost",
				Port:     8123,
				Database: "default",
				User:     "u",
				Password: "p",
				UseHTTP:  true,
			},
			want: "http://u:p@localhost:8123/default",
		},
		{
			name: "async without wait",
			cfg: Config{
				Host:        "ch",
				Port:        9000,
				Database:    "db",
				User:        "u",
				Password:    "p",
				AsyncInsert: true,
			},
			want: "clickhouse://u:p@ch:9000/db?async_insert=1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildDSN(tt.cfg))
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{Host: "ch", MaxOpenConns: 20}.withDefaults()

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "default", cfg.Database)
	assert.Equal(t, "default", cfg.User)
	assert.Equal(t, 5*time.Second, cfg.DialTimeout)
	assert.Equal(t, 20, cfg.MaxOpenConns, "explicit value kept")
	assert.Equal(t, 5, cfg.MaxIdleConns)
}

func TestNewClientRequiresHost(t *testing.T) {
	_, err := NewClient(Config{})
	assert.EqualError(t, err, "host is required")
}
