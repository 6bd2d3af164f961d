package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

const timestampLayout = "2006-01-02 15:04:05"

// levelStyles pairs each level label with its terminal color.
var levelStyles = []struct {
	min   slog.Level
	label string
	color string
}{
	{slog.LevelError, "ERROR", "\x1b[31m"},
	{slog.LevelWarn, "WARN", "\x1b[33m"},
	{slog.LevelInfo, "INFO", "\x1b[36m"},
	{slog.LevelDebug - 100, "DEBUG", "\x1b[90m"},
}

const ansiReset = "\x1b[0m"

// field is one flattened attribute. Group names are folded into key with dots.
type field struct {
	key string
	val slog.Value
}

// consoleHandler writes one human-oriented line per record:
//
//	2024-05-01 10:00:00 INFO  api-server [#42 bios]: stage updated status=PASS
//
// The component, provision id and stage attributes are lifted into the
// header; everything else trails as key=value pairs.
type consoleHandler struct {
	out       *syncWriter
	level     slog.Leveler
	fields    []field
	prefix    string
	addSource bool
	color     bool
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) write(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.w.Write(p)
	return err
}

func newConsoleHandler(w io.Writer, lvl slog.Leveler, addSource bool) slog.Handler {
	return &consoleHandler{
		out:       &syncWriter{w: w},
		level:     lvl,
		addSource: addSource,
		color:     isTerminal(w),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.fields = append(append([]field(nil), h.fields...), flatten(h.prefix, attrs)...)
	return &next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	fields := append([]field(nil), h.fields...)
	r.Attrs(func(a slog.Attr) bool {
		fields = append(fields, flatten(h.prefix, []slog.Attr{a})...)
		return true
	})
	component := take(&fields, FieldComponent)
	subject := subjectTag(take(&fields, FieldProvisionID), take(&fields, FieldStage))

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	var b strings.Builder
	b.WriteString(ts.UTC().Format(timestampLayout))
	b.WriteByte(' ')
	h.writeLevel(&b, r.Level)
	b.WriteByte(' ')
	if head := strings.TrimSpace(component + " " + subject); head != "" {
		b.WriteString(head)
		b.WriteString(": ")
	}
	msg := strings.TrimSpace(r.Message)
	if msg == "" {
		msg = "(no message)"
	}
	b.WriteString(msg)
	if h.addSource && r.PC != 0 {
		if src := r.Source(); src != nil && src.File != "" {
			fmt.Fprintf(&b, " [%s:%d]", filepath.Base(src.File), src.Line)
		}
	}
	for _, f := range fields {
		if f.key != "" {
			b.WriteByte(' ')
			b.WriteString(f.key)
			b.WriteByte('=')
			b.WriteString(render(f.val, true))
		}
	}
	b.WriteByte('\n')
	return h.out.write([]byte(b.String()))
}

func (h *consoleHandler) writeLevel(b *strings.Builder, level slog.Level) {
	for _, style := range levelStyles {
		if level < style.min {
			continue
		}
		label := fmt.Sprintf("%-5s", style.label)
		if h.color {
			label = style.color + label + ansiReset
		}
		b.WriteString(label)
		return
	}
}

// take removes the first field named key and returns its unquoted value.
func take(fields *[]field, key string) string {
	for i, f := range *fields {
		if f.key == key {
			*fields = append((*fields)[:i], (*fields)[i+1:]...)
			return render(f.val, false)
		}
	}
	return ""
}

func subjectTag(provisionID, stage string) string {
	switch {
	case provisionID != "" && stage != "":
		return "[#" + provisionID + " " + stage + "]"
	case provisionID != "":
		return "[#" + provisionID + "]"
	case stage != "":
		return "[" + stage + "]"
	}
	return ""
}

func flatten(prefix string, attrs []slog.Attr) []field {
	var out []field
	for _, a := range attrs {
		if a.Equal(slog.Attr{}) {
			continue
		}
		v := a.Value.Resolve()
		if v.Kind() == slog.KindGroup {
			inner := prefix
			if a.Key != "" {
				inner += a.Key + "."
			}
			out = append(out, flatten(inner, v.Group())...)
			continue
		}
		out = append(out, field{key: prefix + a.Key, val: v})
	}
	return out
}

// render formats v for the console. With quote set, values containing
// spaces, '=' or quotes are Go-quoted so the line stays splittable.
func render(v slog.Value, quote bool) string {
	var s string
	switch v.Kind() {
	case slog.KindTime:
		return v.Time().UTC().Format(timestampLayout)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			s = err.Error()
		} else {
			s = fmt.Sprint(v.Any())
		}
	default:
		s = v.String()
	}
	if quote && (s == "" || strings.ContainsFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' })) {
		return strconv.Quote(s)
	}
	return s
}
