package common

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"
)

const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiBlue   = "\033[34m"
	ansiCyan   = "\033[36m"
	ansiGray   = "\033[90m"
)

// ColorHandler is a slog.Handler writing one human readable line per record.
// The component, migration and direction attributes are pulled to the front.
type ColorHandler struct {
	w        io.Writer
	level    slog.Leveler
	attrs    []slog.Attr
	masker   *Masker
	useColor bool
}

var _ slog.Handler = (*ColorHandler)(nil)

func NewColorHandler(w io.Writer, level slog.Leveler, useColor bool) *ColorHandler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &ColorHandler{w: w, level: level, masker: globalMasker, useColor: useColor}
}

// IsTerminal reports whether w is a character device on a platform where ANSI
// colors are expected to work.
func IsTerminal(w io.Writer) bool {
	if runtime.GOOS == "windows" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	st, err := f.Stat()
	if err != nil {
		return false
	}
	return st.Mode()&os.ModeCharDevice != 0
}

func (h *ColorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *ColorHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	if !r.Time.IsZero() {
		b.WriteString(h.paint(ansiGray, r.Time.Format(time.RFC3339)))
		b.WriteByte(' ')
	}
	b.WriteString(h.levelTag(r.Level))

	attrs := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
	attrs = append(attrs, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, a)
		return true
	})

	var rest []slog.Attr
	for _, a := range attrs {
		switch a.Key {
		case "component":
			b.WriteString(" " + h.paint(ansiCyan, "["+a.Value.String()+"]"))
		case "migration":
			b.WriteString(" " + h.paint(ansiBlue, a.Value.String()))
		case "direction":
			b.WriteString(" " + h.paint(ansiBlue, a.Value.String()))
		default:
			rest = append(rest, a)
		}
	}
	b.WriteByte(' ')
	b.WriteString(r.Message)
	for _, a := range rest {
		b.WriteByte(' ')
		b.WriteString(h.paint(ansiCyan, a.Key))
		b.WriteByte('=')
		b.WriteString(h.value(a))
	}
	b.WriteByte('\n')
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *ColorHandler) levelTag(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return h.paint(ansiRed, "ERROR")
	case level >= slog.LevelWarn:
		return h.paint(ansiYellow, "WARN ")
	case level >= slog.LevelInfo:
		return h.paint(ansiGreen, "INFO ")
	default:
		return h.paint(ansiGray, "DEBUG")
	}
}

func (h *ColorHandler) value(a slog.Attr) string {
	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindString:
		s := h.masker.MaskValue(a.Key, v.String())
		if a.Key == "error" {
			return h.paint(ansiRed, fmt.Sprintf("%q", s))
		}
		return fmt.Sprintf("%q", s)
	case slog.KindDuration:
		return h.paint(ansiYellow, v.Duration().String())
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return h.paint(ansiRed, fmt.Sprintf("%q", h.masker.MaskString(err.Error())))
		}
	}
	return v.String()
}

func (h *ColorHandler) paint(color, text string) string {
	if !h.useColor {
		return text
	}
	return color + text + ansiReset
}

func (h *ColorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &c
}

// WithGroup is not supported; group names are dropped and attributes stay flat.
func (h *ColorHandler) WithGroup(string) slog.Handler {
	return h
}
