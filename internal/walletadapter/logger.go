package walletadapter

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

var logLevel slog.LevelVar

func parseLogLevel(level string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, true
	case "", "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// InitLogger installs the process logger. Calling it again only moves the
// level, so reloads do not replace handlers that other goroutines hold.
func InitLogger(cfg LoggingConfig) {
	lvl, ok := parseLogLevel(cfg.Level)
	if !ok {
		lvl = slog.LevelInfo
	}
	logLevel.Set(lvl)
	installLogger.Do(func() {
		slog.SetDefault(slog.New(newLogHandler(os.Stdout)))
	})
	slog.Info("log level set", "level", strings.ToUpper(lvl.String()))
}

var installLogger sync.Once

func newLogHandler(w io.Writer) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: &logLevel,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			switch a.Key {
			case slog.TimeKey:
				return slog.String(slog.TimeKey, a.Value.Time().Format(time.TimeOnly))
			case slog.LevelKey:
				// slog may pass the level as a string or a slog.Level depending on the handler path.
				switch v := a.Value.Any().(type) {
				case slog.Level:
					return slog.String(slog.LevelKey, strings.ToUpper(v.String()))
				case slog.Leveler:
					return slog.String(slog.LevelKey, strings.ToUpper(v.Level().String()))
				case string:
					return slog.String(slog.LevelKey, strings.ToUpper(v))
				default:
					return slog.String(slog.LevelKey, strings.ToUpper(a.Value.String()))
				}
			default:
				return a
			}
		},
	})
}

// walletLogger tags every record with the currency an adapter serves.
func walletLogger(symbol, backend string) *slog.Logger {
	return slog.Default().With("currency", symbol, "backend", backend)
}
