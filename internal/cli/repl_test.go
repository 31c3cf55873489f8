//go:build !integration

package cli

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codecraft-ai/internal/auth"
	"codecraft-ai/internal/domain/model"
	"codecraft-ai/internal/domain/ports/adapter"
	"codecraft-ai/internal/infra/gateway"
	"codecraft-ai/internal/infra/i18n"
	"codecraft-ai/internal/infra/web"
	"codecraft-ai/internal/usecase"
)

type scriptedReader struct {
	lines   []string
	history []string
}

func (s *scriptedReader) Prompt(string) (string, error) {
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	l := s.lines[0]
	s.lines = s.lines[1:]
	return l, nil
}

func (s *scriptedReader) AppendHistory(item string) { s.history = append(s.history, item) }

type chunkStream struct{ chunks []string }

func (c *chunkStream) Recv() (string, error) {
	if len(c.chunks) == 0 {
		return "", io.EOF
	}
	s := c.chunks[0]
	c.chunks = c.chunks[1:]
	return s, nil
}

func (c *chunkStream) Close() error { return nil }

type stubGateway struct {
	mu       sync.Mutex
	chunks   []string
	genErr   error
	requests int
	saved    []model.Log
	logs     []model.Log
	deleted  []string
}

func (g *stubGateway) Generate(ctx context.Context, req adapter.GenerateRequest) (adapter.TextStream, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests++
	if g.genErr != nil {
		return nil, g.genErr
	}
	return &chunkStream{chunks: append([]string(nil), g.chunks...)}, nil
}

func (g *stubGateway) SaveLog(ctx context.Context, l model.Log) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.saved = append(g.saved, l)
	return nil
}

func (g *stubGateway) ListLogs(ctx context.Context, userID string) ([]model.Log, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]model.Log(nil), g.logs...), nil
}

func (g *stubGateway) DeleteLog(ctx context.Context, userID, chatID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deleted = append(g.deleted, chatID)
	return nil
}

func (g *stubGateway) UpdateLogTitle(ctx context.Context, userID, chatID, title string) error {
	return nil
}

type prefixRenderer struct{}

func (prefixRenderer) Render(md string) (string, error) { return "RENDERED:" + md + "\n", nil }

type fixture struct {
	repl    *REPL
	gw      *stubGateway
	out     *bytes.Buffer
	asm     *usecase.SessionAssembler
	reader  *scriptedReader
	tr      *i18n.Translator
	session *auth.Session
}

func newFixture(t *testing.T, render Renderer, lines ...string) *fixture {
	t.Helper()
	logger := zerolog.Nop()
	tr, err := i18n.Load("en")
	require.NoError(t, err)

	tok, err := web.NewAuthManager("secret", "codecraft-ai", time.Hour).Mint("u1", "")
	require.NoError(t, err)
	session := auth.NewSession()
	_, err = session.SignIn(context.Background(), auth.StaticToken(tok))
	require.NoError(t, err)

	gw := &stubGateway{}
	history := usecase.NewHistoryStore(gw, session, &logger)
	asm := usecase.NewSessionAssembler(gw, session, history, &logger)
	out := &bytes.Buffer{}
	reader := &scriptedReader{lines: lines}
	return &fixture{
		repl:    NewREPL(asm, history, session, tr, reader, out, render, &logger),
		gw:      gw,
		out:     out,
		asm:     asm,
		reader:  reader,
		tr:      tr,
		session: session,
	}
}

func TestREPL_StreamsReplyAndSaves(t *testing.T) {
	f := newFixture(t, nil, "write hello world")
	f.gw.chunks = []string{"print(", "'hello world'", ")"}

	require.NoError(t, f.repl.Run(context.Background()))

	assert.Contains(t, f.out.String(), "print('hello world')")
	require.Len(t, f.gw.saved, 1)
	assert.Equal(t, "write hello world", f.gw.saved[0].Prompt)
	assert.Equal(t, []string{"write hello world"}, f.reader.history)
}

func TestREPL_RendersFinishedReply(t *testing.T) {
	f := newFixture(t, prefixRenderer{}, "hi")
	f.gw.chunks = []string{"# Title"}

	require.NoError(t, f.repl.Run(context.Background()))
	assert.Contains(t, f.out.String(), "RENDERED:# Title")
}

func TestREPL_GatewayErrorIsShown(t *testing.T) {
	f := newFixture(t, nil, "hi")
	f.gw.genErr = &gateway.Error{Op: "generate", Status: http.StatusBadGateway, Detail: "model overloaded"}

	require.NoError(t, f.repl.Run(context.Background()))
	assert.Contains(t, f.out.String(), "Error: model overloaded")
	assert.Empty(t, f.gw.saved)
}

func TestREPL_HistoryOpenDelete(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, nil, "/history", "/open 2", "/delete 1", "/open 9", "/open x")
	f.gw.logs = []model.Log{
		{UserID: "u1", ChatID: "old", Timestamp: base, Prompt: "first question", Explanation: "first answer"},
		{UserID: "u1", ChatID: "new", Timestamp: base.Add(time.Hour), Prompt: "second question", Explanation: "second answer"},
	}

	require.NoError(t, f.repl.Run(context.Background()))

	out := f.out.String()
	assert.Contains(t, out, "1. second question")
	assert.Contains(t, out, "2. first question")
	assert.Contains(t, out, "first answer")
	assert.Equal(t, []string{"new"}, f.gw.deleted)
	assert.Equal(t, "old", f.asm.Snapshot().ChatID, "deleting another log keeps the open one")
	assert.Contains(t, out, f.tr.T("history_unknown"))
	assert.Contains(t, out, f.tr.T("history_index_usage", "/open"))
}

func TestREPL_Commands(t *testing.T) {
	f := newFixture(t, nil, "/mode", "/rename", "/rename Sorting", "/bogus", "/help", "/quit", "never sent")

	require.NoError(t, f.repl.Run(context.Background()))

	out := f.out.String()
	assert.Contains(t, out, f.tr.T("mode_on"))
	assert.True(t, f.asm.Snapshot().LearningMode)
	assert.Contains(t, out, f.tr.T("rename_usage"))
	assert.Contains(t, out, f.tr.T("rename_done", "Sorting"))
	assert.Equal(t, "Sorting", f.asm.Snapshot().Title)
	assert.Contains(t, out, f.tr.T("unknown_command", "/bogus"))
	assert.Contains(t, out, "/open N")
	assert.Contains(t, out, f.tr.T("goodbye"))
	assert.Zero(t, f.gw.requests)
}

func TestREPL_SignOutBlocksPrompts(t *testing.T) {
	f := newFixture(t, nil, "/signout", "hello")

	require.NoError(t, f.repl.Run(context.Background()))

	_, signedIn := f.session.CurrentUser()
	assert.False(t, signedIn)
	assert.Contains(t, f.out.String(), f.tr.T("signed_out"))
	assert.Contains(t, f.out.String(), f.tr.T("sign_in_required"))
	assert.Zero(t, f.gw.requests)
}
