package trace

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Mode picks where a Recorder keeps events.
type Mode uint8

const (
	// ModeStream writes each event as it arrives.
	ModeStream Mode = iota + 1
	// ModeRing keeps the last RingSize events and writes them on Close.
	ModeRing
)

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "stream":
		return ModeStream, nil
	case "ring":
		return ModeRing, nil
	}
	return 0, fmt.Errorf("unknown trace mode %q (stream|ring)", s)
}

// Format is the encoding of written events.
type Format uint8

const (
	FormatAuto Format = iota
	FormatText
	FormatNDJSON
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return FormatAuto, nil
	case "text":
		return FormatText, nil
	case "ndjson", "json":
		return FormatNDJSON, nil
	}
	return 0, fmt.Errorf("unknown trace format %q (auto|text|ndjson)", s)
}

// Config describes a Recorder.
type Config struct {
	Level    Level
	Mode     Mode
	Format   Format
	Output   io.Writer // wins over Path
	Path     string    // "-" or empty is stderr
	RingSize int
}

// Recorder is the Tracer behind the --trace flags.
type Recorder struct {
	level  Level
	mode   Mode
	format Format
	origin time.Time

	mu     sync.Mutex
	seq    uint64
	w      io.Writer
	closer io.Closer
	werr   error
	ring   []Event
	head   int
	full   bool
}

// New opens the output of cfg and returns a recorder writing to it.
func New(cfg Config) (*Recorder, error) {
	if cfg.Mode == 0 {
		cfg.Mode = ModeStream
	}
	if cfg.RingSize <= 0 {
		cfg.RingSize = 4096
	}
	r := &Recorder{level: cfg.Level, mode: cfg.Mode, format: cfg.Format, origin: time.Now(), w: cfg.Output}
	if r.format == FormatAuto {
		r.format = FormatText
		if strings.HasSuffix(cfg.Path, ".ndjson") || strings.HasSuffix(cfg.Path, ".json") {
			r.format = FormatNDJSON
		}
	}
	if r.w == nil {
		if cfg.Path == "" || cfg.Path == "-" {
			r.w = os.Stderr
		} else {
			f, err := os.Create(cfg.Path)
			if err != nil {
				return nil, fmt.Errorf("open trace output: %w", err)
			}
			r.w, r.closer = f, f
		}
	}
	if r.mode == ModeRing {
		r.ring = make([]Event, cfg.RingSize)
	}
	return r, nil
}

func (r *Recorder) Level() Level { return r.level }

// Emit stamps ev with the next sequence number and stores or writes it.
func (r *Recorder) Emit(ev Event) {
	if ev.Kind != KindHeartbeat && !r.level.Admits(ev.Scope) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	ev.Seq = r.seq
	if r.mode == ModeRing {
		r.ring[r.head] = ev
		r.head = (r.head + 1) % len(r.ring)
		if r.head == 0 {
			r.full = true
		}
		return
	}
	r.write(ev)
}

// write disables the stream after the first write error; tracing never
// fails a build.
func (r *Recorder) write(ev Event) {
	if r.werr != nil {
		return
	}
	if _, err := r.w.Write(r.encode(ev)); err != nil {
		r.werr = err
	}
}

// Snapshot returns the events kept in ring mode, oldest first.
func (r *Recorder) Snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot()
}

func (r *Recorder) snapshot() []Event {
	if !r.full {
		return append([]Event(nil), r.ring[:r.head]...)
	}
	out := make([]Event, 0, len(r.ring))
	out = append(out, r.ring[r.head:]...)
	return append(out, r.ring[:r.head]...)
}

// Close writes the ring contents and closes an output file it opened.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mode == ModeRing {
		for _, ev := range r.snapshot() {
			r.write(ev)
		}
		r.head, r.full = 0, false
	}
	var err error
	if r.closer != nil {
		err = r.closer.Close()
		r.closer = nil
	}
	return errors.Join(r.werr, err)
}

func (r *Recorder) encode(ev Event) []byte {
	if r.format == FormatNDJSON {
		return encodeJSON(ev)
	}
	return encodeText(ev, r.origin)
}

type jsonEvent struct {
	Seq     uint64            `json:"seq"`
	Time    string            `json:"time"`
	Kind    string            `json:"kind"`
	Scope   string            `json:"scope"`
	Span    uint64            `json:"span,omitempty"`
	Parent  uint64            `json:"parent,omitempty"`
	Name    string            `json:"name"`
	Detail  string            `json:"detail,omitempty"`
	Elapsed int64             `json:"elapsed_us,omitempty"`
	Attrs   map[string]string `json:"attrs,omitempty"`
}

func encodeJSON(ev Event) []byte {
	j := jsonEvent{
		Seq:     ev.Seq,
		Time:    ev.Time.UTC().Format(time.RFC3339Nano),
		Kind:    ev.Kind.String(),
		Scope:   ev.Scope.String(),
		Span:    ev.Span,
		Parent:  ev.Parent,
		Name:    ev.Name,
		Detail:  ev.Detail,
		Elapsed: ev.Elapsed.Microseconds(),
	}
	if len(ev.Attrs) > 0 {
		j.Attrs = make(map[string]string, len(ev.Attrs))
		for _, a := range ev.Attrs {
			j.Attrs[a.Key] = a.Value
		}
	}
	data, err := json.Marshal(j)
	if err != nil {
		return nil
	}
	return append(data, '\n')
}

// encodeText renders "[+ms] <indent>marker name (detail) k=v [took]".
func encodeText(ev Event, origin time.Time) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%10.3fms] ", float64(ev.Time.Sub(origin).Microseconds())/1000)
	if ev.Scope > ScopeUnit {
		sb.WriteString(strings.Repeat("  ", int(ev.Scope-ScopeUnit)))
	}
	switch ev.Kind {
	case KindBegin:
		sb.WriteString("> ")
	case KindEnd:
		sb.WriteString("< ")
	case KindPoint:
		sb.WriteString(". ")
	case KindHeartbeat:
		sb.WriteString("~ ")
	}
	sb.WriteString(ev.Name)
	if ev.Detail != "" {
		fmt.Fprintf(&sb, " (%s)", ev.Detail)
	}
	for _, a := range ev.Attrs {
		fmt.Fprintf(&sb, " %s=%s", a.Key, a.Value)
	}
	if ev.Kind == KindEnd {
		fmt.Fprintf(&sb, " [%s]", ev.Elapsed.Round(time.Microsecond))
	}
	sb.WriteByte('\n')
	return []byte(sb.String())
}
