// Package stream frames query events for incremental transport. Each
// event travels as one line of the form "data: <json>" followed by a
// blank line, in emission order.
package stream

import (
	"bufio"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/flarexio/ragblade"
)

// Encoder serializes events onto a writer. Exactly one terminal event
// closes the stream; events after it are rejected so none can be emitted
// twice or out of order.
type Encoder struct {
	w          io.Writer
	flusher    http.Flusher
	terminated bool
}

func NewEncoder(w io.Writer) *Encoder {
	flusher, _ := w.(http.Flusher)

	return &Encoder{
		w:       w,
		flusher: flusher,
	}
}

func (e *Encoder) Encode(event ragblade.Event) error {
	if e.terminated {
		return ragblade.ErrStreamTerminated
	}

	data, err := json.Marshal(&event)
	if err != nil {
		return err
	}

	if _, err := io.WriteString(e.w, "data: "+string(data)+"\n\n"); err != nil {
		return err
	}

	if e.flusher != nil {
		e.flusher.Flush()
	}

	if event.Terminal() {
		e.terminated = true
	}

	return nil
}

// Finish closes the stream. If no terminal event was written, an error
// event is synthesized so the consumer always sees a terminated stream.
func (e *Encoder) Finish() error {
	if e.terminated {
		return nil
	}

	return e.Encode(ragblade.Event{
		Type:    ragblade.EventError,
		Content: "stream interrupted",
	})
}

// Decoder reads framed events back from a reader. A line is parsed only
// once its newline arrives, so a partial trailing line is buffered until
// completed. Malformed lines are logged and skipped, never fatal.
type Decoder struct {
	r   *bufio.Reader
	log *zap.Logger
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		r: bufio.NewReader(r),
		log: zap.L().With(
			zap.String("codec", "stream"),
		),
	}
}

// Next returns the next decoded event, or io.EOF when the stream ends.
func (d *Decoder) Next() (ragblade.Event, error) {
	for {
		line, err := d.r.ReadString('\n')
		if err != nil {
			if err == io.EOF && strings.TrimSpace(line) != "" {
				// An unterminated trailing line is incomplete data,
				// not an event.
				d.log.Warn("discarding partial trailing line")
			}

			return ragblade.Event{}, err
		}

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}

		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			d.log.Warn("skipping unframed line")
			continue
		}

		var event ragblade.Event
		if err := json.Unmarshal([]byte(strings.TrimSpace(data)), &event); err != nil {
			d.log.Warn("skipping malformed event", zap.Error(err))
			continue
		}

		return event, nil
	}
}
