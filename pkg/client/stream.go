package client

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/rhuss/respkit/pkg/api"
	"github.com/rhuss/respkit/pkg/debug"
	"github.com/rhuss/respkit/pkg/observability"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const maxFrameSize = 16 << 20

// Stream reads server-sent events of a streaming response.
//
//	for stream.Next() {
//		switch ev := stream.Event().(type) {
//		case *api.OutputTextDeltaEvent:
//			fmt.Print(ev.Delta)
//		}
//	}
//	if err := stream.Err(); err != nil { ... }
type Stream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner

	event api.StreamEvent
	err   error
	done  bool

	closeOnce sync.Once
}

func newStream(body io.ReadCloser) *Stream {
	sc := bufio.NewScanner(body)
	sc.Buffer(make([]byte, 0, 64<<10), maxFrameSize)
	return &Stream{body: body, scanner: sc}
}

// Next advances to the next event. It returns false at the end of the
// stream or on error; Err tells the two apart.
func (s *Stream) Next() bool {
	if s.done || s.err != nil {
		return false
	}
	for {
		name, data, ok := s.readFrame()
		if !ok {
			s.finish()
			return false
		}
		if data == "" {
			continue
		}
		if data == "[DONE]" {
			s.finish()
			return false
		}

		ev, err := decodeFrame(name, data)
		if err != nil {
			s.err = err
			s.finish()
			return false
		}
		observability.StreamEventsTotal.WithLabelValues(strconv.FormatBool(api.KnownStreamEvent(ev.EventType()))).Inc()
		debug.Log("client", "stream event", "type", ev.EventType(), "sequence_number", ev.Base().SequenceNumber)
		s.event = ev
		return true
	}
}

// Event returns the event read by the last successful Next.
func (s *Stream) Event() api.StreamEvent { return s.event }

// Err returns the first error met while reading, or nil after a clean end.
func (s *Stream) Err() error { return s.err }

// Close releases the connection. It is safe to call more than once.
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.done = true
		err = s.body.Close()
	})
	return err
}

func (s *Stream) finish() {
	s.done = true
	if err := s.scanner.Err(); err != nil && s.err == nil {
		s.err = fmt.Errorf("respkit: reading event stream: %w", err)
	}
	s.Close()
}

// readFrame collects lines up to the next blank line. Multiple data lines are
// joined with newlines and comment lines are skipped.
func (s *Stream) readFrame() (name, data string, ok bool) {
	var lines []string
	seen := false
	for s.scanner.Scan() {
		line := strings.TrimSuffix(s.scanner.Text(), "\r")
		if line == "" {
			if seen {
				return name, strings.Join(lines, "\n"), true
			}
			continue
		}
		seen = true
		if strings.HasPrefix(line, ":") {
			continue
		}
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			name = value
		case "data":
			lines = append(lines, value)
		}
	}
	if seen {
		return name, strings.Join(lines, "\n"), true
	}
	return "", "", false
}

var errNullEvent = errors.New("respkit: event stream carried a null event")

// decodeFrame decodes one data payload. A payload without a type takes the
// frame's event name.
func decodeFrame(name, data string) (api.StreamEvent, error) {
	if !gjson.Valid(data) {
		return nil, errors.New("respkit: event stream carried invalid JSON")
	}
	if gjson.Parse(data).Type == gjson.Null {
		return nil, errNullEvent
	}
	if name != "" && !gjson.Get(data, "type").Exists() {
		patched, err := sjson.Set(data, "type", name)
		if err != nil {
			return nil, fmt.Errorf("respkit: event %q: %w", name, err)
		}
		data = patched
	}
	if debug.Tracing("client") {
		debug.Raw("client", data)
	}
	ev, err := api.DecodeStreamEvent([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("respkit: decoding stream event: %w", err)
	}
	if ev == nil {
		return nil, errNullEvent
	}
	return ev, nil
}
