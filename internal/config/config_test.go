package config

import (
	"log/slog"
	"reflect"
	"testing"
	"time"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(lookupFrom(nil), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.ListenAddr != DefaultListenAddr {
		t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr, DefaultListenAddr)
	}
	if cfg.Mode != ModeDev {
		t.Errorf("Mode = %q, want dev", cfg.Mode)
	}
	if cfg.LogFormat != LogFormatText {
		t.Errorf("LogFormat = %q, want text (dev default)", cfg.LogFormat)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want debug (dev default)", cfg.LogLevel)
	}
	if cfg.WSIdleTimeout != DefaultWSIdleTimeout {
		t.Errorf("WSIdleTimeout = %v, want %v", cfg.WSIdleTimeout, DefaultWSIdleTimeout)
	}
	if cfg.WSPingInterval != DefaultWSPingInterval {
		t.Errorf("WSPingInterval = %v, want %v", cfg.WSPingInterval, DefaultWSPingInterval)
	}
	if cfg.MaxMessageBytes != DefaultMaxMessageBytes {
		t.Errorf("MaxMessageBytes = %d, want %d", cfg.MaxMessageBytes, DefaultMaxMessageBytes)
	}
	if cfg.OutboundQueueLength != DefaultOutboundQueueLength {
		t.Errorf("OutboundQueueLength = %d, want %d", cfg.OutboundQueueLength, DefaultOutboundQueueLength)
	}
	if cfg.MaxClientsPerRoom != 0 {
		t.Errorf("MaxClientsPerRoom = %d, want 0 (unlimited)", cfg.MaxClientsPerRoom)
	}
	if cfg.AllowedOrigins != nil {
		t.Errorf("AllowedOrigins = %v, want nil", cfg.AllowedOrigins)
	}
}

func TestLoad_ProdModeDefaults(t *testing.T) {
	cfg, err := load(lookupFrom(map[string]string{
		"VOICEMESH_SIGNAL_RELAY_MODE": "prod",
	}), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogFormat != LogFormatJSON {
		t.Errorf("LogFormat = %q, want json (prod default)", cfg.LogFormat)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want info (prod default)", cfg.LogLevel)
	}
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := load(lookupFrom(map[string]string{
		"VOICEMESH_SIGNAL_RELAY_LISTEN_ADDR": "0.0.0.0:9000",
		"ALLOWED_ORIGINS":                    "https://App.Example.com, http://localhost:3000",
		"SIGNALING_WS_IDLE_TIMEOUT":          "30s",
		"SIGNALING_WS_PING_INTERVAL":         "5s",
		"MAX_SIGNALING_MESSAGE_BYTES":        "1024",
		"MAX_SIGNALING_MESSAGES_PER_SECOND":  "10",
		"OUTBOUND_QUEUE_LENGTH":              "8",
		"MAX_CLIENTS_PER_ROOM":               "4",
	}), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.ListenAddr != "0.0.0.0:9000" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	wantOrigins := []string{"https://app.example.com", "http://localhost:3000"}
	if !reflect.DeepEqual(cfg.AllowedOrigins, wantOrigins) {
		t.Errorf("AllowedOrigins = %v, want %v", cfg.AllowedOrigins, wantOrigins)
	}
	if cfg.WSIdleTimeout != 30*time.Second || cfg.WSPingInterval != 5*time.Second {
		t.Errorf("timeouts = %v/%v", cfg.WSIdleTimeout, cfg.WSPingInterval)
	}
	if cfg.MaxMessageBytes != 1024 {
		t.Errorf("MaxMessageBytes = %d", cfg.MaxMessageBytes)
	}
	if cfg.MaxMessagesPerSecond != 10 {
		t.Errorf("MaxMessagesPerSecond = %d", cfg.MaxMessagesPerSecond)
	}
	if cfg.OutboundQueueLength != 8 {
		t.Errorf("OutboundQueueLength = %d", cfg.OutboundQueueLength)
	}
	if cfg.MaxClientsPerRoom != 4 {
		t.Errorf("MaxClientsPerRoom = %d", cfg.MaxClientsPerRoom)
	}
}

func TestLoad_FlagOverridesEnv(t *testing.T) {
	cfg, err := load(lookupFrom(map[string]string{
		"VOICEMESH_SIGNAL_RELAY_LISTEN_ADDR": "127.0.0.1:8080",
	}), []string{"-listen-addr", "127.0.0.1:9999"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:9999" {
		t.Errorf("ListenAddr = %q, want flag value", cfg.ListenAddr)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "bad mode", env: map[string]string{"VOICEMESH_SIGNAL_RELAY_MODE": "staging"}},
		{name: "bad log format", env: map[string]string{"VOICEMESH_SIGNAL_RELAY_LOG_FORMAT": "xml"}},
		{name: "bad log level", env: map[string]string{"VOICEMESH_SIGNAL_RELAY_LOG_LEVEL": "loud"}},
		{name: "bad origin", env: map[string]string{"ALLOWED_ORIGINS": "not an origin"}},
		{name: "bad duration", env: map[string]string{"SIGNALING_WS_IDLE_TIMEOUT": "soon"}},
		{name: "negative duration", env: map[string]string{"SIGNALING_WS_IDLE_TIMEOUT": "-1s"}},
		{name: "ping not below idle", env: map[string]string{
			"SIGNALING_WS_IDLE_TIMEOUT":  "10s",
			"SIGNALING_WS_PING_INTERVAL": "10s",
		}},
		{name: "bad int", env: map[string]string{"MAX_SIGNALING_MESSAGE_BYTES": "lots"}},
		{name: "non-positive message bytes", env: map[string]string{"MAX_SIGNALING_MESSAGE_BYTES": "0"}},
		{name: "non-positive queue length", env: map[string]string{"OUTBOUND_QUEUE_LENGTH": "-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := load(lookupFrom(tt.env), nil); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	for _, format := range []LogFormat{LogFormatText, LogFormatJSON} {
		logger, err := NewLogger(Config{LogFormat: format, LogLevel: slog.LevelInfo})
		if err != nil {
			t.Fatalf("NewLogger(%q): %v", format, err)
		}
		if logger == nil {
			t.Fatalf("NewLogger(%q) returned nil", format)
		}
	}

	if _, err := NewLogger(Config{LogFormat: "yaml"}); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
}
