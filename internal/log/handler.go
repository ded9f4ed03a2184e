package log

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/ownmine/ownmine/internal/execmode"
)

// Timestamp layout of leveled lines.
const timeLayout = "2006-01-02 15:04:05"

// Permission mode of log files.
const fileMode os.FileMode = 0644

var tagColors = map[Level]lipgloss.Color{
	LevelDebug:   lipgloss.Color("245"), // gray
	LevelInfo:    lipgloss.Color("39"),  // blue
	LevelWarning: lipgloss.Color("214"), // orange
	LevelError:   lipgloss.Color("196"), // red
	LevelFatal:   lipgloss.Color("196"),
}

// Settings of one sink.
type Options struct {
	Enabled  bool          // Whether records are written at all outside debug mode.
	MinLevel Level         // Records below this level are dropped outside debug mode.
	File     string        // Appended to by the leveled sink. Empty for screen only.
	Mode     execmode.Mode // Debug mode bypasses both gates.
	Stream   io.Writer     // Screen output. Defaults to os.Stderr.
	Color    bool          // Whether level tags are colored.
}

// Output shared by a handler and every handler derived from it.
type output struct {
	mu     sync.Mutex
	stream io.Writer
	file   string
	style  func(Level, string) string
}

// Writes one line to the stream and, when path is set, appends it to the
// file. File errors are dropped; logging never fails a request.
func (o *output) write(line []byte, toFile bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.stream.Write(line)

	if !toFile || o.file == "" {
		return
	}
	f, err := os.OpenFile(o.file, os.O_CREATE|os.O_APPEND|os.O_WRONLY, fileMode)
	if err != nil {
		return
	}
	f.Write(line)
	f.Close()
}

// A [slog.Handler] that gates records by execution mode and writes them in
// the ownmine line format.
type Handler struct {
	enabled bool
	min     slog.Level
	mode    execmode.Mode
	simple  bool
	out     *output
	now     func() time.Time
	attrs   []slog.Attr
	groups  []string
}

// Creates a leveled handler.
func NewHandler(opts Options) *Handler {
	return newHandler(opts, false)
}

// Creates a simple handler. It writes the message and attributes without a
// timestamp or tag, and never to the file.
func NewSimpleHandler(opts Options) *Handler {
	return newHandler(opts, true)
}

func newHandler(opts Options, simple bool) *Handler {
	stream := opts.Stream
	if stream == nil {
		stream = os.Stderr
	}

	out := &output{stream: stream, file: opts.File, style: plainTag}
	if opts.Color {
		r := lipgloss.NewRenderer(stream)
		out.style = func(l Level, tag string) string {
			c, ok := tagColors[l]
			if !ok {
				return tag
			}
			return r.NewStyle().Foreground(c).Render(tag)
		}
	}

	return &Handler{
		enabled: opts.Enabled,
		min:     opts.MinLevel.Slog(),
		mode:    opts.Mode,
		simple:  simple,
		out:     out,
		now:     time.Now,
	}
}

func plainTag(_ Level, tag string) string {
	return tag
}

// Reports whether a record at level would be written.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	if h.mode.IsDebug() {
		return true
	}
	return h.enabled && level >= h.min
}

// Formats and writes a record.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer

	if !h.simple {
		ts := r.Time
		if ts.IsZero() {
			ts = h.now()
		}
		buf.WriteByte('[')
		buf.WriteString(ts.Format(timeLayout))
		buf.WriteString("] ")

		level := fromSlog(r.Level)
		if tag := level.Tag(); tag != "" {
			buf.WriteString(h.out.style(level, tag))
			buf.WriteByte(' ')
		}
	}

	buf.WriteString(r.Message)

	prefix := groupPrefix(h.groups)
	for _, a := range h.attrs {
		appendAttr(&buf, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(&buf, prefix, a)
		return true
	})
	buf.WriteByte('\n')

	h.out.write(buf.Bytes(), !h.simple)
	return nil
}

// Returns a handler that adds attrs to every record.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	c := h.clone()
	prefix := groupPrefix(h.groups)
	for _, a := range attrs {
		a.Key = prefix + a.Key
		c.attrs = append(c.attrs, a)
	}
	return c
}

// Returns a handler that qualifies later attribute keys with name.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := h.clone()
	c.groups = append(c.groups, name)
	return c
}

func (h *Handler) clone() *Handler {
	c := *h
	c.attrs = append([]slog.Attr(nil), h.attrs...)
	c.groups = append([]string(nil), h.groups...)
	return &c
}

func groupPrefix(groups []string) string {
	if len(groups) == 0 {
		return ""
	}
	return strings.Join(groups, ".") + "."
}

// Appends " key=value", flattening groups and quoting values with spaces.
func appendAttr(buf *bytes.Buffer, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			appendAttr(buf, p, ga)
		}
		return
	}

	v := a.Value.String()
	if a.Value.Kind() == slog.KindTime {
		v = a.Value.Time().Format(timeLayout)
	}
	if v == "" || strings.ContainsAny(v, " \t\n\"=") {
		v = strconv.Quote(v)
	}
	fmt.Fprintf(buf, " %s%s=%s", prefix, a.Key, v)
}
