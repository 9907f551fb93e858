package lgr

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"

	"github.com/fatih/color"
)

const timeFormat = "[15:04:05.000]"

// PrettyHandler renders one colorized line per record followed by the
// record attributes as indented JSON.
type PrettyHandler struct {
	h   slog.Handler
	b   *bytes.Buffer
	m   *sync.Mutex
	out io.Writer
}

func NewPrettyHandler(out io.Writer, opts *slog.HandlerOptions) *PrettyHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}

	b := &bytes.Buffer{}
	return &PrettyHandler{
		b:   b,
		out: out,
		m:   &sync.Mutex{},
		h: slog.NewJSONHandler(b, &slog.HandlerOptions{
			Level:       opts.Level,
			AddSource:   opts.AddSource,
			ReplaceAttr: suppressDefaults(opts.ReplaceAttr),
		}),
	}
}

func (h *PrettyHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.h.Enabled(ctx, level)
}

func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &PrettyHandler{h: h.h.WithAttrs(attrs), b: h.b, m: h.m, out: h.out}
}

func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	return &PrettyHandler{h: h.h.WithGroup(name), b: h.b, m: h.m, out: h.out}
}

func (h *PrettyHandler) Handle(ctx context.Context, r slog.Record) error {
	level := r.Level.String() + ":"

	switch r.Level {
	case slog.LevelDebug:
		level = color.MagentaString(level)
	case slog.LevelInfo:
		level = color.BlueString(level)
	case slog.LevelWarn:
		level = color.YellowString(level)
	case slog.LevelError:
		level = color.RedString(level)
	}

	attrs, err := h.computeAttrs(ctx, r)
	if err != nil {
		return err
	}

	var body []byte
	if len(attrs) > 0 {
		body, err = json.MarshalIndent(attrs, "", "  ")
		if err != nil {
			return err
		}
	}

	line := bytes.Buffer{}
	line.WriteString(color.HiBlackString(r.Time.Format(timeFormat)))
	line.WriteByte(' ')
	line.WriteString(level)
	line.WriteByte(' ')
	line.WriteString(color.CyanString(r.Message))
	if len(body) > 0 {
		line.WriteByte(' ')
		line.WriteString(color.WhiteString(string(body)))
	}
	line.WriteByte('\n')

	h.m.Lock()
	defer h.m.Unlock()
	_, err = h.out.Write(line.Bytes())
	return err
}

func (h *PrettyHandler) computeAttrs(ctx context.Context, r slog.Record) (map[string]any, error) {
	h.m.Lock()
	defer func() {
		h.b.Reset()
		h.m.Unlock()
	}()

	if err := h.h.Handle(ctx, r); err != nil {
		return nil, err
	}

	var attrs map[string]any
	if err := json.Unmarshal(h.b.Bytes(), &attrs); err != nil {
		return nil, err
	}
	return attrs, nil
}

// suppressDefaults drops time, level and message from the inner JSON handler
// because Handle prints them itself.
func suppressDefaults(next func([]string, slog.Attr) slog.Attr) func([]string, slog.Attr) slog.Attr {
	return func(groups []string, a slog.Attr) slog.Attr {
		if len(groups) == 0 && (a.Key == slog.TimeKey || a.Key == slog.LevelKey || a.Key == slog.MessageKey) {
			return slog.Attr{}
		}
		if next == nil {
			return a
		}
		return next(groups, a)
	}
}
