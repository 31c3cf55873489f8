package usecase

import (
	"strings"

	"codecraft-ai/internal/domain/model"
	"codecraft-ai/internal/domain/ports/adapter"
)

const systemPrompt = `You are CodeCraft AI, an intelligent assistant that generates clean, educational Python code snippets.
Your tasks:
1. Interpret the developer's natural language request, considering the conversation history.
2. Generate correct, well-formatted Python code inside a Markdown block.
3. Add short and clear explanations.
4. Optionally, include inline comments if the "learning mode" is active.
5. Your entire response should be a single Markdown-formatted text.`

const learningModeInstruction = `Learning mode is active: add inline comments that explain what each step of the code does and why.`

// SystemPrompt returns the instruction block sent ahead of every conversation.
func SystemPrompt(learningMode bool) string {
	if !learningMode {
		return systemPrompt
	}
	return systemPrompt + "\n\n" + learningModeInstruction
}

// Provider roles used in adapter.Message.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ProviderHistory maps conversation turns to provider messages. Turns with no
// text are dropped.
func ProviderHistory(turns []model.ConversationTurn) []adapter.Message {
	out := make([]adapter.Message, 0, len(turns))
	for _, t := range turns {
		if strings.TrimSpace(t.Text) == "" {
			continue
		}
		role := RoleUser
		if t.Sender == model.SenderAI {
			role = RoleAssistant
		}
		out = append(out, adapter.Message{Role: role, Content: t.Text})
	}
	return out
}

// TrimHistory drops the oldest messages until the rest fit in budget tokens.
// A budget <= 0 keeps everything.
func TrimHistory(msgs []adapter.Message, budget int, counter adapter.TokenCounter) (kept []adapter.Message, tokens int) {
	counts := make([]int, len(msgs))
	for i, m := range msgs {
		counts[i] = counter.Count(m.Content)
		tokens += counts[i]
	}
	if budget <= 0 {
		return msgs, tokens
	}
	start := 0
	for start < len(msgs) && tokens > budget {
		tokens -= counts[start]
		start++
	}
	// history must open with a user turn
	for start > 0 && start < len(msgs) && msgs[start].Role == RoleAssistant {
		tokens -= counts[start]
		start++
	}
	return msgs[start:], tokens
}
