package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name        string
		development bool
		level       string
		wantErr     bool
	}{
		{name: "development default level", development: true},
		{name: "production debug", level: "debug"},
		{name: "unknown level", level: "verbose", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := NewLogger(tt.development, tt.level)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewLogger() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && l == nil {
				t.Error("NewLogger() = nil")
			}
		})
	}
}

func TestLogger_NamedWithFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := New(zap.New(core)).Named("oasis").Named("query").WithFields(zap.String("client", "oasis-lookup"))

	l.Warn("Fetch failed")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("logged %d entries, want 1", len(entries))
	}
	if got := entries[0].LoggerName; got != "oasis.query" {
		t.Errorf("LoggerName = %v, want oasis.query", got)
	}
	if got := entries[0].ContextMap()["client"]; got != "oasis-lookup" {
		t.Errorf("client field = %v, want oasis-lookup", got)
	}
}
