package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"codecraft-ai/internal/domain"
	"codecraft-ai/internal/domain/model"
	"codecraft-ai/internal/domain/ports/adapter"
	"codecraft-ai/internal/infra/logging"
)

// HistoryRefresher is told when the stored log list has changed.
type HistoryRefresher interface {
	RequestRefresh()
}

type AssemblerOption func(*SessionAssembler)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) AssemblerOption {
	return func(a *SessionAssembler) { a.now = now }
}

// WithIDs overrides the message and chat id generators.
func WithIDs(messageID, chatID func() string) AssemblerOption {
	return func(a *SessionAssembler) {
		if messageID != nil {
			a.newMessageID = messageID
		}
		if chatID != nil {
			a.newChatID = chatID
		}
	}
}

// SessionAssembler owns the active conversation: it turns prompts into
// streamed replies, saves the finished exchange as a log and lets the user
// resume, rename or abandon it.
type SessionAssembler struct {
	gw      adapter.BackendGateway
	users   Identities
	history HistoryRefresher
	logger  *zerolog.Logger

	now          func() time.Time
	newMessageID func() string
	newChatID    func() string

	mu      sync.Mutex
	session model.ChatSession
	gen     *generation
	subs    []func(model.ChatSession)
}

// generation is one in-flight SendPrompt. It is current while a.gen points at it.
type generation struct {
	cancel    context.CancelFunc
	cancelled bool
}

func NewSessionAssembler(gw adapter.BackendGateway, users Identities, history HistoryRefresher, logger *zerolog.Logger, opts ...AssemblerOption) *SessionAssembler {
	a := &SessionAssembler{
		gw:           gw,
		users:        users,
		history:      history,
		logger:       logging.Component(logger, "SessionAssembler"),
		now:          time.Now,
		newMessageID: model.NewMessageID,
		newChatID:    uuid.NewString,
		session:      model.ChatSession{Messages: []model.Message{}},
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Subscribe registers fn to receive a snapshot after every change.
func (a *SessionAssembler) Subscribe(fn func(model.ChatSession)) {
	a.mu.Lock()
	a.subs = append(a.subs, fn)
	a.mu.Unlock()
}

func (a *SessionAssembler) Snapshot() model.ChatSession {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session.Clone()
}

// SendPrompt appends the prompt to the active session and streams the reply
// into a placeholder AI message. The first successful reply of a chat is saved
// as a log.
func (a *SessionAssembler) SendPrompt(ctx context.Context, prompt string) error {
	id, ok := a.users.CurrentUser()
	if !ok {
		return domain.ErrUnauthenticated
	}
	if strings.TrimSpace(prompt) == "" {
		return domain.ErrEmptyPrompt
	}

	a.mu.Lock()
	if a.gen != nil {
		a.mu.Unlock()
		return domain.ErrGenerationInFlight
	}
	if a.session.ChatID == "" {
		a.session.ChatID = a.newChatID()
		a.session.Title = prompt
	}
	now := a.now()
	userMsg := model.NewUserMessage(a.newMessageID(), prompt, now)
	history := model.Turns(a.session.Messages)
	aiID := a.newMessageID()
	a.session.Messages = append(a.session.Messages,
		userMsg,
		model.NewAIMessage(aiID, "", now, true),
	)
	a.session.Generating = true

	chatID := a.session.ChatID
	ctx = logging.WithChatID(logging.WithUserID(ctx, id.UserID), chatID)
	genCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g := &generation{cancel: cancel}
	a.gen = g
	req := adapter.GenerateRequest{
		UserID:              id.UserID,
		Prompt:              prompt,
		LearningMode:        a.session.LearningMode,
		ConversationHistory: history,
	}
	a.publishLocked()

	logger := logging.With(ctx, a.logger)
	defer logging.TraceDuration(logger, "SessionAssembler.SendPrompt")()

	stream, err := a.gw.Generate(genCtx, req)
	if err != nil {
		return a.fail(g, aiID, err, logger)
	}
	defer stream.Close()

	var text strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return a.fail(g, aiID, err, logger)
		}
		text.WriteString(chunk)
		full := text.String()
		if !a.apply(g, func(s *model.ChatSession) { setMessage(s, aiID, full, true) }) {
			return domain.ErrGenerationAbandoned
		}
	}

	return a.complete(ctx, g, id.UserID, aiID, userMsg.Timestamp, text.String(), logger)
}

// complete finalises the reply and saves the log once per chat.
func (a *SessionAssembler) complete(ctx context.Context, g *generation, userID, aiID string, at time.Time, text string, logger *zerolog.Logger) error {
	a.mu.Lock()
	if a.gen != g {
		a.mu.Unlock()
		return domain.ErrGenerationAbandoned
	}
	setMessage(&a.session, aiID, text, false)
	if a.session.Persisted {
		a.gen = nil
		a.session.Generating = false
		a.publishLocked()
		return nil
	}
	log := model.Log{
		UserID:       userID,
		ChatID:       a.session.ChatID,
		Timestamp:    at,
		Prompt:       a.session.Title,
		Explanation:  text,
		LearningMode: a.session.LearningMode,
	}
	a.publishLocked()

	// The save outlives abandonment: the finished exchange belongs to its own chat.
	saveErr := a.gw.SaveLog(ctx, log)
	if saveErr == nil {
		a.history.RequestRefresh()
	}

	a.mu.Lock()
	if a.gen != g {
		a.mu.Unlock()
		if saveErr != nil {
			logger.Error().Err(saveErr).Msg("failed to save abandoned log")
		}
		return saveErr
	}
	a.gen = nil
	a.session.Generating = false
	if saveErr != nil {
		logger.Error().Err(saveErr).Msg("failed to save log")
		a.session.Messages = append(a.session.Messages, a.errorMessage(saveErr))
		a.publishLocked()
		return saveErr
	}
	a.session.Persisted = true
	title := a.session.Title
	a.publishLocked()
	logger.Info().Msg("log saved")

	// renamed while the save was in flight
	if title != log.Prompt {
		if err := a.gw.UpdateLogTitle(ctx, userID, log.ChatID, title); err != nil {
			logger.Error().Err(err).Msg("failed to update log title")
			return nil
		}
		a.history.RequestRefresh()
	}
	return nil
}

// fail ends g with an error message, keeping any partial reply text.
func (a *SessionAssembler) fail(g *generation, aiID string, err error, logger *zerolog.Logger) error {
	a.mu.Lock()
	if a.gen != g {
		a.mu.Unlock()
		return domain.ErrGenerationAbandoned
	}
	if g.cancelled {
		err = domain.ErrGenerationCancelled
	}
	for i := range a.session.Messages {
		if a.session.Messages[i].ID == aiID {
			a.session.Messages[i].IsGenerating = false
		}
	}
	a.session.Messages = append(a.session.Messages, a.errorMessage(err))
	a.session.Generating = false
	a.gen = nil
	a.publishLocked()

	logger.Warn().Err(err).Msg("generation failed")
	return err
}

func (a *SessionAssembler) errorMessage(err error) model.Message {
	return model.NewAIMessage(a.newMessageID(), "Error: "+err.Error(), a.now(), false)
}

// Cancel aborts the in-flight generation, if any. The reply keeps its partial text.
func (a *SessionAssembler) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.gen != nil {
		a.gen.cancelled = true
		a.gen.cancel()
	}
}

// StartNewSession abandons any in-flight generation and clears the conversation.
// Learning mode carries over.
func (a *SessionAssembler) StartNewSession() {
	a.replace(model.ChatSession{Messages: []model.Message{}})
}

// SelectLog abandons any in-flight generation and resumes l.
func (a *SessionAssembler) SelectLog(l model.Log) {
	a.replace(model.SessionFromLog(l, a.newMessageID(), a.newMessageID()))
}

func (a *SessionAssembler) replace(next model.ChatSession) {
	a.mu.Lock()
	if a.gen != nil {
		a.gen.cancel()
		a.gen = nil
	}
	if next.ChatID == "" {
		next.LearningMode = a.session.LearningMode
	}
	a.session = next
	a.publishLocked()
}

// RenameActiveSession sets the title locally and, once the log has been
// saved, on the server. A failed server update is not rolled back.
func (a *SessionAssembler) RenameActiveSession(ctx context.Context, title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("rename session: %w", domain.ErrInvalidArgument)
	}
	a.mu.Lock()
	a.session.Title = title
	chatID, persisted := a.session.ChatID, a.session.Persisted
	a.publishLocked()

	if chatID == "" || !persisted {
		return nil
	}
	id, ok := a.users.CurrentUser()
	if !ok {
		return domain.ErrUnauthenticated
	}
	ctx = logging.WithChatID(logging.WithUserID(ctx, id.UserID), chatID)
	if err := a.gw.UpdateLogTitle(ctx, id.UserID, chatID, title); err != nil {
		logging.With(ctx, a.logger).Error().Err(err).Msg("failed to update log title")
		return fmt.Errorf("rename session: %w", err)
	}
	a.history.RequestRefresh()
	return nil
}

func (a *SessionAssembler) SetLearningMode(on bool) {
	a.mu.Lock()
	a.session.LearningMode = on
	a.publishLocked()
}

// ToggleLearningMode flips the mode and returns the new value.
func (a *SessionAssembler) ToggleLearningMode() bool {
	a.mu.Lock()
	a.session.LearningMode = !a.session.LearningMode
	on := a.session.LearningMode
	a.publishLocked()
	return on
}

func (a *SessionAssembler) Generating() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.gen != nil
}

// apply runs fn against the session if g is still current and publishes the result.
func (a *SessionAssembler) apply(g *generation, fn func(*model.ChatSession)) bool {
	a.mu.Lock()
	if a.gen != g {
		a.mu.Unlock()
		return false
	}
	fn(&a.session)
	a.publishLocked()
	return true
}

// publishLocked releases a.mu and notifies subscribers with a snapshot.
func (a *SessionAssembler) publishLocked() {
	snap := a.session.Clone()
	subs := append([]func(model.ChatSession){}, a.subs...)
	a.mu.Unlock()
	for _, fn := range subs {
		fn(snap)
	}
}

func setMessage(s *model.ChatSession, id, text string, generating bool) {
	for i := range s.Messages {
		if s.Messages[i].ID == id {
			s.Messages[i].Text = text
			s.Messages[i].IsGenerating = generating
			return
		}
	}
}
