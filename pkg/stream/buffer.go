package stream

import (
	"bufio"
	"encoding/json"
	"sync"
)

// BufferedSink holds a complete stream in memory so a transport can pick the
// status code after the pipeline has finished and replay it afterwards.
type BufferedSink struct {
	mu       sync.Mutex
	tokens   []string
	terminal *Frame
}

func NewBufferedSink() *BufferedSink {
	return &BufferedSink{}
}

func (b *BufferedSink) WriteToken(token string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens = append(b.tokens, token)
	return nil
}

func (b *BufferedSink) WriteTerminal(frame Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.terminal = &frame
	return nil
}

func (b *BufferedSink) Tokens() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.tokens...)
}

func (b *BufferedSink) Terminal() (Frame, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.terminal == nil {
		return Frame{}, false
	}
	return *b.terminal, true
}

// WriteTo replays the buffered stream as raw tokens followed by a newline and
// the terminal frame as one JSON line, flushing after each write.
func (b *BufferedSink) WriteTo(w *bufio.Writer) error {
	sink := NewChunkedSink(w)
	for _, tok := range b.Tokens() {
		if err := sink.WriteToken(tok); err != nil {
			return err
		}
	}
	if frame, ok := b.Terminal(); ok {
		return sink.WriteTerminal(frame)
	}
	return nil
}

// ChunkedSink writes straight to a buffered HTTP body.
type ChunkedSink struct {
	w *bufio.Writer
}

func NewChunkedSink(w *bufio.Writer) *ChunkedSink {
	return &ChunkedSink{w: w}
}

func (s *ChunkedSink) WriteToken(token string) error {
	if _, err := s.w.WriteString(token); err != nil {
		return err
	}
	return s.w.Flush()
}

func (s *ChunkedSink) WriteTerminal(frame Frame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	if err := s.w.WriteByte('\n'); err != nil {
		return err
	}
	if _, err := s.w.Write(data); err != nil {
		return err
	}
	if err := s.w.WriteByte('\n'); err != nil {
		return err
	}
	return s.w.Flush()
}
