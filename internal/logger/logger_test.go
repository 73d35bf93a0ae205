package logger

import (
	"bytes"
	"fmt"
	"os"
	"runtime"
	"testing"
	"time"

	"github.com/PoluyanbIch/TerduQuizBot/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	formatter := &LogFormatter{Prefix: "TEST"}

	levels := []logrus.Level{
		logrus.DebugLevel,
		logrus.InfoLevel,
		logrus.WarnLevel,
		logrus.ErrorLevel,
	}

	for _, level := range levels {
		t.Run(fmt.Sprintf("level-%s", level.String()), func(t *testing.T) {
			entry := &logrus.Entry{
				Level:   level,
				Message: "Test message",
				Time:    time.Now(),
				Data:    logrus.Fields{"chat_id": 42, "category_id": 7},
			}

			result, err := formatter.Format(entry)
			require.NoError(t, err)
			out := string(result)
			assert.Contains(t, out, "[TEST]")
			assert.Contains(t, out, "Test message")
			assert.Contains(t, out, level.String())
			assert.Contains(t, out, "category_id=7 chat_id=42")
		})
	}

	t.Run("with caller", func(t *testing.T) {
		logger := logrus.New()
		logger.SetReportCaller(true)
		entry := logger.WithFields(logrus.Fields{})
		entry.Time = time.Now()
		entry.Level = logrus.InfoLevel
		entry.Message = "Test with caller"
		entry.Caller = &runtime.Frame{
			Function: "testFunction",
			File:     "/path/to/file.go",
			Line:     123,
		}
		result, err := formatter.Format(entry)
		require.NoError(t, err)
		assert.Contains(t, string(result), "Test with caller")
		assert.Contains(t, string(result), "testFunction")
		assert.Contains(t, string(result), "file.go:123")
	})
}

func TestNew(t *testing.T) {
	t.Run("valid level", func(t *testing.T) {
		log := New(config.Logger{Level: "warn", ShowLine: true})
		assert.Equal(t, logrus.WarnLevel, log.GetLevel())
		assert.True(t, log.ReportCaller)
	})

	t.Run("invalid level falls back to debug", func(t *testing.T) {
		oldStdout := os.Stdout
		r, w, _ := os.Pipe()
		os.Stdout = w

		log := New(config.Logger{Level: "loud"})

		w.Close()
		os.Stdout = oldStdout

		var buf bytes.Buffer
		buf.ReadFrom(r)

		assert.Contains(t, buf.String(), "invalid log level")
		assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	})
}
