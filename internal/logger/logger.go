package logger

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/PoluyanbIch/TerduQuizBot/internal/config"
	"github.com/sirupsen/logrus"
)

// LogFormatter печатает записи в одну строку:
// [prefix] 2006-01-02 15:04:05 [level] file:line func message key=value...
type LogFormatter struct {
	Prefix string
}

func (f *LogFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b *bytes.Buffer
	if entry.Buffer != nil {
		b = entry.Buffer
	} else {
		b = &bytes.Buffer{}
	}

	timestamp := entry.Time.Format("2006-01-02 15:04:05")
	if f.Prefix != "" {
		fmt.Fprintf(b, "[%s] ", f.Prefix)
	}
	fmt.Fprintf(b, "%s [%s]", timestamp, entry.Level.String())

	if entry.HasCaller() {
		fmt.Fprintf(b, " %s:%d %s", filepath.Base(entry.Caller.File), entry.Caller.Line, entry.Caller.Function)
	}
	fmt.Fprintf(b, " %s", entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, " %s=%v", k, entry.Data[k])
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}

// New создаёт логгер по настройкам. При неверном уровне используется debug.
func New(cfg config.Logger) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	log.SetReportCaller(cfg.ShowLine)
	log.SetFormatter(&LogFormatter{Prefix: cfg.Prefix})

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		fmt.Fprintf(os.Stdout, "invalid log level %q, using debug\n", cfg.Level)
		level = logrus.DebugLevel
	}
	log.SetLevel(level)
	return log
}
