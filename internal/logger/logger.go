// Package logger configures slog for the sync service: JSON in production and a
// compact colored line format for operators at a terminal. API token secrets
// and Authorization headers are masked in every output format.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"
)

const (
	// Format types for logging.
	formatJSON   = "json"
	formatPretty = "pretty"

	redacted = "[REDACTED]"

	// Attributes the pretty format lifts out of the key=value list.
	runKey   = "run_id"
	errorKey = "error"
)

// ANSI color codes.
const (
	colorReset   = "\033[0m"
	colorRed     = "\033[31m"
	colorGreen   = "\033[32m"
	colorYellow  = "\033[33m"
	colorMagenta = "\033[35m"
	colorCyan    = "\033[36m"
	colorGray    = "\033[37m"
	colorBold    = "\033[1m"
	colorDim     = "\033[2m"
)

// sensitiveKeys are attribute keys whose values never reach the output.
var sensitiveKeys = []string{"secret", "authorization", "password"}

// Logger wraps slog.Logger with additional functionality.
type Logger struct {
	*slog.Logger
}

// Config holds logger configuration.
type Config struct {
	Writer      io.Writer
	Format      string
	Environment string
	Level       slog.Level
	AddSource   bool
	// Color forces ANSI colors on or off in the pretty format. Nil colors
	// only when Writer is a terminal.
	Color *bool
}

// New creates a new logger with the given configuration.
func New(cfg Config) *Logger {
	if cfg.Writer == nil {
		cfg.Writer = os.Stderr
	}

	// Auto-detect format based on environment if not specified.
	if cfg.Format == "" {
		if cfg.Environment == "production" {
			cfg.Format = formatJSON
		} else {
			cfg.Format = formatPretty
		}
	}

	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			// Shorten source file paths.
			if a.Key == slog.SourceKey {
				if source, ok := a.Value.Any().(*slog.Source); ok {
					source.File = filepath.Base(source.File)
				}
			}
			return Redact(a)
		},
	}

	var handler slog.Handler
	if cfg.Format == formatJSON {
		handler = slog.NewJSONHandler(cfg.Writer, opts)
	} else {
		ph := NewPrettyHandler(cfg.Writer, opts)
		if cfg.Color != nil {
			ph.color = *cfg.Color
		}
		handler = ph
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// Redact masks the value of attributes that carry credentials.
func Redact(a slog.Attr) slog.Attr {
	key := strings.ToLower(a.Key)
	for _, s := range sensitiveKeys {
		if strings.Contains(key, s) {
			return slog.String(a.Key, redacted)
		}
	}
	return a
}

// ParseLevel converts a string to slog.Level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// PrettyHandler writes one line per record:
//
//	15:04:05 INF [run-V1StGXR8] page created source_id=101 dest_id=904
//
// The run id of a sync is shown as a tag and any error is printed last.
type PrettyHandler struct {
	opts   *slog.HandlerOptions
	writer io.Writer
	color  bool
	attrs  []slog.Attr
	groups []string
}

// NewPrettyHandler creates a pretty handler that colors its output when w is a terminal.
func NewPrettyHandler(w io.Writer, opts *slog.HandlerOptions) *PrettyHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return &PrettyHandler{
		opts:   opts,
		writer: w,
		color:  isTerminal(w),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Enabled reports whether the handler handles records at the given level.
func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

// Handle formats and writes the log record.
func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	buf := make([]byte, 0, 256)

	buf = h.paint(buf, colorDim, r.Time.Format("15:04:05"))
	buf = append(buf, ' ')

	levelStr, levelColor := formatLevel(r.Level)
	buf = h.paint(buf, levelColor, levelStr)
	buf = append(buf, ' ')

	if h.opts.AddSource && r.PC != 0 {
		fs := runtime.CallersFrames([]uintptr{r.PC})
		f, _ := fs.Next()
		buf = h.paint(buf, colorDim, filepath.Base(f.File)+":"+strconv.Itoa(f.Line))
		buf = append(buf, ' ')
	}

	attrs := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
	attrs = append(attrs, h.attrs...)
	prefix := h.groupPrefix()
	r.Attrs(func(a slog.Attr) bool {
		a.Key = prefix + a.Key
		attrs = append(attrs, h.replace(a))
		return true
	})

	var runID string
	var errs []slog.Attr
	fields := make([]slog.Attr, 0, len(attrs))
	for _, a := range attrs {
		switch a.Key {
		case runKey:
			runID = a.Value.String()
		case errorKey:
			errs = append(errs, a)
		default:
			fields = append(fields, a)
		}
	}

	if runID != "" {
		buf = h.paint(buf, colorMagenta, "["+runID+"]")
		buf = append(buf, ' ')
	}
	buf = h.paint(buf, colorBold, r.Message)

	for _, a := range fields {
		buf = append(buf, ' ')
		buf = h.paint(buf, colorCyan, a.Key+"="+formatValue(a.Value))
	}
	for _, a := range errs {
		buf = append(buf, ' ')
		buf = h.paint(buf, colorRed, a.Key+"="+formatValue(a.Value))
	}

	buf = append(buf, '\n')
	_, err := h.writer.Write(buf)
	return err
}

// paint appends s, wrapped in color codes when the handler colors its output.
func (h *PrettyHandler) paint(buf []byte, color, s string) []byte {
	if !h.color {
		return append(buf, s...)
	}
	buf = append(buf, color...)
	buf = append(buf, s...)
	return append(buf, colorReset...)
}

// WithAttrs returns a new handler with additional attributes.
func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	prefix := h.groupPrefix()
	newAttrs := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	newAttrs = append(newAttrs, h.attrs...)
	for _, a := range attrs {
		a.Key = prefix + a.Key
		newAttrs = append(newAttrs, h.replace(a))
	}

	return &PrettyHandler{
		opts:   h.opts,
		writer: h.writer,
		color:  h.color,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

// WithGroup returns a new handler whose subsequent attribute keys are qualified by name.
func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	newGroups := make([]string, len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups[len(h.groups)] = name

	return &PrettyHandler{
		opts:   h.opts,
		writer: h.writer,
		color:  h.color,
		attrs:  h.attrs,
		groups: newGroups,
	}
}

func (h *PrettyHandler) groupPrefix() string {
	if len(h.groups) == 0 {
		return ""
	}
	return strings.Join(h.groups, ".") + "."
}

func (h *PrettyHandler) replace(a slog.Attr) slog.Attr {
	if h.opts.ReplaceAttr == nil {
		return a
	}
	return h.opts.ReplaceAttr(h.groups, a)
}

// formatLevel returns the formatted level string with color.
func formatLevel(level slog.Level) (levelStr, levelColor string) {
	switch level {
	case slog.LevelDebug:
		return "DBG", colorMagenta
	case slog.LevelInfo:
		return "INF", colorGreen
	case slog.LevelWarn:
		return "WRN", colorYellow
	case slog.LevelError:
		return "ERR", colorRed
	default:
		return level.String(), colorGray
	}
}

// formatValue formats a slog.Value for pretty printing. Strings with spaces
// or quotes are quoted so page and book names stay readable as one value.
func formatValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	case slog.KindDuration:
		return v.Duration().String()
	default:
		s := v.String()
		if strings.ContainsAny(s, " \t\n\"=") {
			return strconv.Quote(s)
		}
		return s
	}
}

// WithError adds an error attribute to the logger.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{
		Logger: l.With(slog.String("error", err.Error())),
	}
}

// WithRun scopes the logger to a sync run.
func (l *Logger) WithRun(runID string, sourceBookID int64) *Logger {
	return &Logger{
		Logger: l.With(slog.String("run_id", runID), slog.Int64("source_book_id", sourceBookID)),
	}
}
