package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sdrlink.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
transport:
  default_timeout_ms: 1500
radios:
  - name: rx1
    model: NDR308
    mode: tcp
    host: 192.168.0.10
    port: -1
    auto_connect: true
  - name: tx1
    model: ndr651
    host: 192.168.0.11
    port: 8617
    timeout_ms: 4000
database:
  path: "/tmp/sdrlink.db"
mqtt:
  broker:
    host: "broker.local"
  qos: 1
api:
  port: 9000
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.Radios) != 2 {
		t.Fatalf("len(Radios) = %d, want 2", len(cfg.Radios))
	}
	if cfg.Radios[0].Name != "rx1" || !cfg.Radios[0].AutoConnect {
		t.Errorf("Radios[0] = %+v", cfg.Radios[0])
	}
	if got := cfg.Timeout(cfg.Radios[0]); got != 1500*time.Millisecond {
		t.Errorf("Timeout(rx1) = %v, want 1.5s", got)
	}
	if got := cfg.Timeout(cfg.Radios[1]); got != 4*time.Second {
		t.Errorf("Timeout(tx1) = %v, want 4s", got)
	}
	if cfg.MQTT.Broker.Host != "broker.local" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "broker.local")
	}
	if cfg.MQTT.TopicPrefix != "sdrlink" {
		t.Errorf("MQTT.TopicPrefix = %q, want default %q", cfg.MQTT.TopicPrefix, "sdrlink")
	}
	if cfg.API.Port != 9000 {
		t.Errorf("API.Port = %d, want 9000", cfg.API.Port)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/sdrlink.yaml"); err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "invalid: [yaml: content")); err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults valid",
			mutate: func(*Config) {},
		},
		{
			name: "unknown model",
			mutate: func(c *Config) {
				c.Radios = []RadioConfig{{Name: "a", Model: "NDR999", Host: "h", Port: -1}}
			},
			wantErr: `model "NDR999" is not supported`,
		},
		{
			name: "duplicate names",
			mutate: func(c *Config) {
				c.Radios = []RadioConfig{
					{Name: "a", Model: "NDR308", Host: "h", Port: -1},
					{Name: "a", Model: "NDR308", Host: "h", Port: -1},
				}
			},
			wantErr: "is duplicated",
		},
		{
			name: "bad mode",
			mutate: func(c *Config) {
				c.Radios = []RadioConfig{{Name: "a", Model: "NDR308", Mode: "ftp", Host: "h", Port: -1}}
			},
			wantErr: "must be tcp, udp, tty or https",
		},
		{
			name: "missing host and zero port",
			mutate: func(c *Config) {
				c.Radios = []RadioConfig{{Name: "a", Model: "NDR308"}}
			},
			wantErr: "host is required",
		},
		{
			name:    "bad qos",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: "mqtt.qos",
		},
		{
			name:    "auth without secret",
			mutate:  func(c *Config) { c.API.AuthRequired = true },
			wantErr: "security.jwt.secret is required",
		},
		{
			name: "short secret",
			mutate: func(c *Config) {
				c.API.AuthRequired = true
				c.Security.JWT.Secret = "short"
			},
			wantErr: "at least 32 characters",
		},
		{
			name: "influx without url",
			mutate: func(c *Config) {
				c.InfluxDB.Enabled = true
			},
			wantErr: "influxdb.url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SDRLINK_DATABASE_PATH", "/var/lib/sdrlink/journal.db")
	t.Setenv("SDRLINK_MQTT_PASSWORD", "hunter2")
	t.Setenv("SDRLINK_API_PORT", "9100")
	t.Setenv("SDRLINK_LOG_LEVEL", "debug")
	t.Setenv("SDRLINK_JWT_SECRET", "0123456789abcdef0123456789abcdef")

	cfg, err := Load(writeConfig(t, "api:\n  auth_required: true\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Path != "/var/lib/sdrlink/journal.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.MQTT.Auth.Password != "hunter2" {
		t.Errorf("MQTT.Auth.Password = %q", cfg.MQTT.Auth.Password)
	}
	if cfg.API.Port != 9100 {
		t.Errorf("API.Port = %d, want 9100", cfg.API.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}
