// Package logging configures the shared logrus logger: line format, output destination and
// request IDs carried through context.Context.
package logging

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/flistgo/flistapi/internal/config"
	"github.com/flistgo/flistapi/internal/util"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	setupOnce sync.Once
	writerMu  sync.Mutex
	logWriter *lumberjack.Logger
)

// LogFormatter renders entries as
// [2025-12-23 20:14:04] [a1b2c3d4] [debug] [client.go:120] request sent endpoint=character-get
type LogFormatter struct{}

// logFieldOrder defines which fields are printed and in which order.
var logFieldOrder = []string{"endpoint", "account", "status", "ticket", "valid_until", "form", "error"}

// Format renders a single log entry.
func (m *LogFormatter) Format(entry *log.Entry) ([]byte, error) {
	buffer := entry.Buffer
	if buffer == nil {
		buffer = &bytes.Buffer{}
	}

	timestamp := entry.Time.Format("2006-01-02 15:04:05")
	message := strings.TrimRight(entry.Message, "\r\n")

	reqID := "--------"
	if id, ok := entry.Data["request_id"].(string); ok && id != "" {
		reqID = id
	}

	level := entry.Level.String()
	if level == "warning" {
		level = "warn"
	}
	levelStr := fmt.Sprintf("%-5s", level)

	var fieldsStr string
	if len(entry.Data) > 0 {
		var fields []string
		for _, k := range logFieldOrder {
			if v, ok := entry.Data[k]; ok {
				fields = append(fields, fmt.Sprintf("%s=%v", k, v))
			}
		}
		if len(fields) > 0 {
			fieldsStr = " " + strings.Join(fields, " ")
		}
	}

	if entry.Caller != nil {
		fmt.Fprintf(buffer, "[%s] [%s] [%s] [%s:%d] %s%s\n", timestamp, reqID, levelStr, filepath.Base(entry.Caller.File), entry.Caller.Line, message, fieldsStr)
	} else {
		fmt.Fprintf(buffer, "[%s] [%s] [%s] %s%s\n", timestamp, reqID, levelStr, message, fieldsStr)
	}
	return buffer.Bytes(), nil
}

// SetupBaseLogger configures the shared logrus instance.
// It is safe to call multiple times; initialization happens only once.
func SetupBaseLogger() {
	setupOnce.Do(func() {
		log.SetOutput(os.Stdout)
		log.SetReportCaller(true)
		log.SetFormatter(&LogFormatter{})
		log.RegisterExitHandler(closeLogOutputs)
	})
}

// ResolveLogDirectory determines the directory used for log files. WRITABLE_PATH wins over
// the configured directory.
func ResolveLogDirectory(cfg *config.Config) string {
	if base := util.WritablePath(); base != "" {
		return filepath.Join(base, "logs")
	}
	if cfg == nil || strings.TrimSpace(cfg.LogDir) == "" {
		return "logs"
	}
	return filepath.Clean(cfg.LogDir)
}

// ConfigureLogOutput switches the global log destination between a rotating file and stdout,
// and applies the configured log level.
func ConfigureLogOutput(cfg *config.Config) error {
	SetupBaseLogger()
	util.SetLogLevel(cfg)

	writerMu.Lock()
	defer writerMu.Unlock()

	if cfg != nil && cfg.LoggingToFile {
		logDir := ResolveLogDirectory(cfg)
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return fmt.Errorf("logging: failed to create log directory: %w", err)
		}
		if logWriter != nil {
			_ = logWriter.Close()
		}
		logWriter = &lumberjack.Logger{
			Filename:   filepath.Join(logDir, "flist.log"),
			MaxSize:    10,
			MaxBackups: cfg.LogsMaxBackups,
			MaxAge:     cfg.LogsMaxAgeDays,
			Compress:   false,
		}
		log.SetOutput(logWriter)
		return nil
	}

	if logWriter != nil {
		_ = logWriter.Close()
		logWriter = nil
	}
	log.SetOutput(os.Stdout)
	return nil
}

func closeLogOutputs() {
	writerMu.Lock()
	defer writerMu.Unlock()

	if logWriter != nil {
		_ = logWriter.Close()
		logWriter = nil
	}
}
