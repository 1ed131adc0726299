package testutil

import (
	"fmt"
	"sync"
)

// RecordingLogger keeps every message it receives, prefixed with its level.
type RecordingLogger struct {
	mu       sync.Mutex
	Messages []string
}

func (l *RecordingLogger) record(level, msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Messages = append(l.Messages, fmt.Sprint(level, " ", msg, args))
}

func (l *RecordingLogger) Debug(msg string, args ...any) { l.record("DEBUG", msg, args...) }
func (l *RecordingLogger) Info(msg string, args ...any)  { l.record("INFO", msg, args...) }
func (l *RecordingLogger) Warn(msg string, args ...any)  { l.record("WARN", msg, args...) }
func (l *RecordingLogger) Error(msg string, args ...any) { l.record("ERROR", msg, args...) }

// Count returns how many messages were logged at level.
func (l *RecordingLogger) Count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, m := range l.Messages {
		if len(m) > len(level) && m[:len(level)+1] == level+" " {
			n++
		}
	}
	return n
}
