package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestToZapLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		InfoLevel:  zapcore.InfoLevel,
		WarnLevel:  zapcore.WarnLevel,
		ErrorLevel: zapcore.ErrorLevel,
		DebugLevel: zapcore.DebugLevel,
		"bogus":    zapcore.DebugLevel,
	}
	for in, want := range cases {
		if got := toZapLevel(in); got != want {
			t.Fatalf("toZapLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) != Nop() {
		t.Fatalf("OrNop(nil) should return the no-op logger")
	}
	l := newZapLogger(ErrorLevel)
	if OrNop(l) != l {
		t.Fatalf("OrNop(l) should return l")
	}
	if l.Named("device") == nil {
		t.Fatalf("Named returned nil")
	}
}
