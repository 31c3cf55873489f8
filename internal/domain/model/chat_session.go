package model

// ChatSession is a value snapshot of the active conversation.
// ChatID is empty until the first prompt is sent.
type ChatSession struct {
	ChatID       string
	Title        string
	LearningMode bool
	Messages     []Message
	Generating   bool
	Persisted    bool
}

// Clone returns a copy that shares no memory with s.
func (s ChatSession) Clone() ChatSession {
	cp := s
	cp.Messages = append([]Message(nil), s.Messages...)
	return cp
}

// LastAI returns the most recent AI message, if any.
func (s ChatSession) LastAI() (Message, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Sender == SenderAI {
			return s.Messages[i], true
		}
	}
	return Message{}, false
}

// SessionFromLog rebuilds the two-message snapshot of a stored log.
func SessionFromLog(l Log, userMsgID, aiMsgID string) ChatSession {
	return ChatSession{
		ChatID:       l.ChatID,
		Title:        l.Prompt,
		LearningMode: l.LearningMode,
		Messages: []Message{
			NewUserMessage(userMsgID, l.Prompt, l.Timestamp),
			NewAIMessage(aiMsgID, l.Explanation, l.Timestamp, false),
		},
		Persisted: true,
	}
}
