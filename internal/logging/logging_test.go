package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	cases := []struct {
		name   string
		level  string
		format string
		want   zapcore.Level
	}{
		{name: "json debug", level: "debug", format: "json", want: zapcore.DebugLevel},
		{name: "console warn", level: "warn", format: "console", want: zapcore.WarnLevel},
		{name: "bad level", level: "loud", format: "", want: zapcore.InfoLevel},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			logger, err := New(tc.level, tc.format)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if !logger.Core().Enabled(tc.want) {
				t.Fatalf("expected level %v enabled", tc.want)
			}
			if tc.want > zapcore.DebugLevel && logger.Core().Enabled(tc.want-1) {
				t.Fatalf("expected level below %v disabled", tc.want)
			}
		})
	}
}
