package logger

import (
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMetricsCoreCapturesWarnings(t *testing.T) {
	base, logs := observer.New(zapcore.DebugLevel)
	buf := NewLogBuffer(10)
	log := zap.New(NewMetricsCore(base, buf)).With(zap.String("component", "test"))

	log.Info("ignored")
	log.Warn("disk slow", zap.Int("ms", 120))
	log.Error("write failed")
	buf.Close()

	if logs.Len() != 3 {
		t.Errorf("underlying core saw %d entries, want 3", logs.Len())
	}
	recent := buf.Recent(0)
	if len(recent) != 2 {
		t.Fatalf("buffered %d entries, want 2", len(recent))
	}
	if recent[0].Message != "write failed" || recent[1].Message != "disk slow" {
		t.Errorf("order = %q, %q", recent[0].Message, recent[1].Message)
	}
	if recent[1].Fields["ms"] != int64(120) {
		t.Errorf("fields = %+v", recent[1].Fields)
	}
}

func TestLogBufferWrapsAround(t *testing.T) {
	buf := NewLogBuffer(3)
	for i := 0; i < 5; i++ {
		buf.Add(LogEntry{Time: time.Now(), Message: fmt.Sprint(i)})
	}
	buf.Close()

	recent := buf.Recent(10)
	if len(recent) != 3 {
		t.Fatalf("len = %d, want 3", len(recent))
	}
	for i, want := range []string{"4", "3", "2"} {
		if recent[i].Message != want {
			t.Errorf("recent[%d] = %s, want %s", i, recent[i].Message, want)
		}
	}
	if got := buf.Recent(1); len(got) != 1 || got[0].Message != "4" {
		t.Errorf("Recent(1) = %+v", got)
	}
}
