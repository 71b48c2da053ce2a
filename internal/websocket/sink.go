package websocket

import "ai-tutor-be/pkg/stream"

const (
	MessageToken = "token"
	MessageDone  = "done"
	MessageError = "error"
	MessageEvent = "event"
)

// Message is the envelope of every frame sent to chat clients.
type Message struct {
	Type    string        `json:"type"`
	Content string        `json:"content,omitempty"`
	Frame   *stream.Frame `json:"frame,omitempty"`
	Error   interface{}   `json:"error,omitempty"`
	Event   string        `json:"event,omitempty"`
	Data    interface{}   `json:"data,omitempty"`
}

func ErrorMessage(body interface{}) Message {
	return Message{Type: MessageError, Error: body}
}

// Sink writes a chat reply to one websocket client.
type Sink struct {
	client *Client
}

func (s *Sink) WriteToken(token string) error {
	return s.client.sendJSON(Message{Type: MessageToken, Content: token})
}

func (s *Sink) WriteTerminal(frame stream.Frame) error {
	return s.client.sendJSON(Message{Type: MessageDone, Frame: &frame})
}
