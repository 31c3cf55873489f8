package telegram

import (
	"context"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"codecraft-ai/internal/auth"
	"codecraft-ai/internal/domain/model"
	"codecraft-ai/internal/domain/ports/adapter"
	"codecraft-ai/internal/infra/gateway"
	"codecraft-ai/internal/usecase"
)

// GatewayFactory builds a gateway client that authenticates with tokens.
type GatewayFactory func(tokens gateway.Tokens) adapter.BackendGateway

// TokenIssuer mints tokens for a bot user.
type TokenIssuer func(userID, name string) auth.TokenSource

// chat is the front-end state of one Telegram chat.
type chat struct {
	id        int64
	auth      *auth.Session
	history   *usecase.HistoryStore
	assembler *usecase.SessionAssembler

	mu     sync.Mutex
	editor *streamEditor
}

func (c *chat) setEditor(e *streamEditor) {
	c.mu.Lock()
	c.editor = e
	c.mu.Unlock()
}

// onSnapshot forwards the streaming reply to the live editor.
func (c *chat) onSnapshot(s model.ChatSession) {
	c.mu.Lock()
	ed := c.editor
	c.mu.Unlock()
	if ed == nil {
		return
	}
	if msg, ok := s.LastAI(); ok && msg.IsGenerating {
		ed.Update(msg.Text)
	}
}

// Chats keeps one signed-in assembler per Telegram chat.
type Chats struct {
	mu         sync.Mutex
	byID       map[int64]*chat
	newGateway GatewayFactory
	issue      TokenIssuer
	log        *zerolog.Logger
}

func NewChats(newGateway GatewayFactory, issue TokenIssuer, logger *zerolog.Logger) *Chats {
	return &Chats{
		byID:       make(map[int64]*chat),
		newGateway: newGateway,
		issue:      issue,
		log:        logger,
	}
}

// UserID maps a Telegram user to the gateway identity.
func UserID(tgUserID int64) string { return "tg-" + strconv.FormatInt(tgUserID, 10) }

// Get returns the chat state for chatID, signing in as the Telegram user on first use.
func (c *Chats) Get(ctx context.Context, chatID, tgUserID int64, name string) (*chat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ch, ok := c.byID[chatID]; ok {
		if _, signedIn := ch.auth.CurrentUser(); signedIn {
			return ch, nil
		}
		if _, err := ch.auth.SignIn(ctx, c.issue(UserID(tgUserID), name)); err != nil {
			return nil, err
		}
		return ch, nil
	}

	sess := auth.NewSession()
	if _, err := sess.SignIn(ctx, c.issue(UserID(tgUserID), name)); err != nil {
		return nil, err
	}
	logger := c.log.With().Int64("tg_chat_id", chatID).Logger()
	gw := c.newGateway(sess)
	history := usecase.NewHistoryStore(gw, sess, &logger)
	ch := &chat{
		id:        chatID,
		auth:      sess,
		history:   history,
		assembler: usecase.NewSessionAssembler(gw, sess, history, &logger),
	}
	ch.assembler.Subscribe(ch.onSnapshot)
	c.byID[chatID] = ch
	return ch, nil
}

func (c *Chats) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byID)
}
