package stream

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flarexio/ragblade"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	var buf bytes.Buffer

	enc := NewEncoder(&buf)

	events := []ragblade.Event{
		{Type: ragblade.EventDocuments, Documents: []ragblade.RetrievedDocument{
			{Content: "The sky is blue.", Score: 0.92, Source: "notes.txt"},
		}},
		{Type: ragblade.EventThinking, Content: "Considering the context."},
		{Type: ragblade.EventContent, Content: "The sky ", FullContent: "The sky "},
		{Type: ragblade.EventContent, Content: "is blue.", FullContent: "The sky is blue."},
		{Type: ragblade.EventDone, FullContent: "The sky is blue.", Thinking: "Considering the context."},
	}

	for _, event := range events {
		if err := enc.Encode(event); err != nil {
			t.Fatal(err)
		}
	}

	dec := NewDecoder(&buf)

	var decoded []ragblade.Event
	for {
		event, err := dec.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}

		decoded = append(decoded, event)
	}

	assert.Equal(t, events, decoded)
}

func TestEncodeFraming(t *testing.T) {
	var buf bytes.Buffer

	enc := NewEncoder(&buf)
	if err := enc.Encode(ragblade.Event{Type: ragblade.EventDone}); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "data: {"))
	assert.True(t, strings.HasSuffix(out, "}\n\n"))
}

func TestEncodeRejectsAfterTerminal(t *testing.T) {
	var buf bytes.Buffer

	enc := NewEncoder(&buf)
	enc.Encode(ragblade.Event{Type: ragblade.EventContent, Content: "x"})
	enc.Encode(ragblade.Event{Type: ragblade.EventDone})

	err := enc.Encode(ragblade.Event{Type: ragblade.EventContent, Content: "y"})
	assert.ErrorIs(t, err, ragblade.ErrStreamTerminated)

	err = enc.Encode(ragblade.Event{Type: ragblade.EventError})
	assert.ErrorIs(t, err, ragblade.ErrStreamTerminated)
}

func TestFinishSynthesizesError(t *testing.T) {
	var buf bytes.Buffer

	enc := NewEncoder(&buf)
	enc.Encode(ragblade.Event{Type: ragblade.EventContent, Content: "partial"})

	if err := enc.Finish(); err != nil {
		t.Fatal(err)
	}

	dec := NewDecoder(&buf)

	first, err := dec.Next()
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, ragblade.EventContent, first.Type)

	second, err := dec.Next()
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, ragblade.EventError, second.Type)
	assert.Equal(t, "stream interrupted", second.Content)

	// Finish after a terminal event writes nothing further.
	assert.NoError(t, enc.Finish())

	_, err = dec.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestDecoderSkipsNoise(t *testing.T) {
	input := strings.Join([]string{
		": comment line",
		"data: {not valid json}",
		"",
		`data: {"type":"content","content":"ok"}`,
		"",
	}, "\n") + "\n"

	dec := NewDecoder(strings.NewReader(input))

	event, err := dec.Next()
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, ragblade.EventContent, event.Type)
	assert.Equal(t, "ok", event.Content)

	_, err = dec.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestDecoderBuffersPartialLine(t *testing.T) {
	pr, pw := io.Pipe()
	dec := NewDecoder(pr)

	go func() {
		io.WriteString(pw, `data: {"type":"content",`)
		io.WriteString(pw, `"content":"split across writes"}`+"\n\n")
		pw.Close()
	}()

	event, err := dec.Next()
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "split across writes", event.Content)

	_, err = dec.Next()
	assert.ErrorIs(t, err, io.EOF)
}
