package model

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// Sender identifies who authored a message.
type Sender int

const (
	SenderUser Sender = iota + 1
	SenderAI
)

func (s Sender) String() string {
	switch s {
	case SenderUser:
		return "user"
	case SenderAI:
		return "ai"
	default:
		return fmt.Sprintf("sender(%d)", int(s))
	}
}

// ParseSender maps the wire names "user" and "ai" to a Sender.
func ParseSender(v string) (Sender, error) {
	switch v {
	case "user":
		return SenderUser, nil
	case "ai":
		return SenderAI, nil
	default:
		return 0, fmt.Errorf("unknown sender %q", v)
	}
}

func (s Sender) MarshalJSON() ([]byte, error) {
	if s != SenderUser && s != SenderAI {
		return nil, fmt.Errorf("marshal sender: invalid value %d", int(s))
	}
	return json.Marshal(s.String())
}

func (s *Sender) UnmarshalJSON(b []byte) error {
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	p, err := ParseSender(v)
	if err != nil {
		return err
	}
	*s = p
	return nil
}

// Message is one entry in the active conversation. Only AI messages can be generating.
type Message struct {
	ID           string
	Sender       Sender
	Text         string
	Timestamp    time.Time
	IsGenerating bool
}

// NewMessageID returns a lexically sortable unique id.
func NewMessageID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

func NewUserMessage(id, text string, at time.Time) Message {
	return Message{ID: id, Sender: SenderUser, Text: text, Timestamp: at}
}

func NewAIMessage(id, text string, at time.Time, generating bool) Message {
	return Message{ID: id, Sender: SenderAI, Text: text, Timestamp: at, IsGenerating: generating}
}

// ConversationTurn is the sender/text pair forwarded to the generator as context.
type ConversationTurn struct {
	Sender Sender `json:"sender"`
	Text   string `json:"text"`
}

// Turns strips ids and timestamps from msgs.
func Turns(msgs []Message) []ConversationTurn {
	out := make([]ConversationTurn, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, ConversationTurn{Sender: m.Sender, Text: m.Text})
	}
	return out
}
