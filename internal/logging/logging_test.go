package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		level, format string
		wantErr       bool
		wantEnabled   zapcore.Level
	}{
		{level: "info", format: "json", wantEnabled: zapcore.InfoLevel},
		{level: "debug", format: "console", wantEnabled: zapcore.DebugLevel},
		{level: "warn", format: "", wantEnabled: zapcore.WarnLevel},
		{level: "loud", format: "json", wantErr: true},
		{level: "info", format: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.level+"/"+tt.format, func(t *testing.T) {
			logger, err := New(tt.level, tt.format)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if !logger.Core().Enabled(tt.wantEnabled) {
				t.Errorf("level %s not enabled", tt.wantEnabled)
			}
			if tt.wantEnabled > zapcore.DebugLevel && logger.Core().Enabled(tt.wantEnabled-1) {
				t.Errorf("level below %s enabled", tt.wantEnabled)
			}
		})
	}
}
