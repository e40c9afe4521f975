package logging

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestProfileDefaults(t *testing.T) {
	runtime := New("myrmex", ProfileRuntime)
	if runtime.GetLevel() != zerolog.InfoLevel {
		t.Fatalf("runtime profile level = %s, want info", runtime.GetLevel())
	}

	test := New("myrmex", ProfileTest)
	if test.GetLevel() != zerolog.DebugLevel {
		t.Fatalf("test profile level = %s, want debug", test.GetLevel())
	}
}

func TestLevelOverride(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")
	logger := New("myrmex", ProfileRuntime)
	if logger.GetLevel() != zerolog.ErrorLevel {
		t.Fatalf("overridden level = %s, want error", logger.GetLevel())
	}
}

func TestLevelOverrideUnknownIgnored(t *testing.T) {
	t.Setenv(EnvLogLevel, "chatty")
	logger := New("myrmex", ProfileRuntime)
	if logger.GetLevel() != zerolog.InfoLevel {
		t.Fatalf("level = %s, want info for unknown override", logger.GetLevel())
	}
}
