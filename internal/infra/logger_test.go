package infra

import "testing"

func TestNewLogger(t *testing.T) {
	tests := []struct {
		cfg     LoggerConfig
		wantErr bool
	}{
		{LoggerConfig{Level: "info", Format: "json"}, false},
		{LoggerConfig{Level: "debug", Format: "console"}, false},
		{LoggerConfig{Level: "loud", Format: "json"}, true},
		{LoggerConfig{Level: "info", Format: "xml"}, true},
	}
	for _, tt := range tests {
		l, err := NewLogger(tt.cfg)
		if (err != nil) != tt.wantErr {
			t.Fatalf("NewLogger(%+v) error = %v, wantErr %v", tt.cfg, err, tt.wantErr)
		}
		if l != nil {
			_ = l.Sync()
		}
	}
}
