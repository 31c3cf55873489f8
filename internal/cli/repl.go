package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"

	"github.com/peterh/liner"
	"github.com/rs/zerolog"

	"codecraft-ai/internal/auth"
	"codecraft-ai/internal/domain"
	"codecraft-ai/internal/domain/model"
	"codecraft-ai/internal/infra/gateway"
	"codecraft-ai/internal/infra/i18n"
	"codecraft-ai/internal/infra/logging"
	"codecraft-ai/internal/usecase"
)

// LineReader reads one line of input. *liner.State satisfies it.
type LineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// REPL is the line-oriented terminal front end.
type REPL struct {
	assembler  *usecase.SessionAssembler
	history    *usecase.HistoryStore
	session    *auth.Session
	translator *i18n.Translator
	in         LineReader
	out        io.Writer
	render     Renderer
	log        *zerolog.Logger

	mu       sync.Mutex
	streamID string
	printed  int

	listed []model.Log
}

// NewREPL wires the front end. render may be nil to print replies as streamed.
func NewREPL(assembler *usecase.SessionAssembler, history *usecase.HistoryStore, session *auth.Session, translator *i18n.Translator, in LineReader, out io.Writer, render Renderer, logger *zerolog.Logger) *REPL {
	r := &REPL{
		assembler:  assembler,
		history:    history,
		session:    session,
		translator: translator,
		in:         in,
		out:        out,
		render:     render,
		log:        logging.Component(logger, "REPL"),
	}
	assembler.Subscribe(r.onSnapshot)
	return r
}

// onSnapshot prints the part of the streaming reply not yet on screen.
func (r *REPL) onSnapshot(s model.ChatSession) {
	msg, ok := s.LastAI()
	if !ok || !msg.IsGenerating {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if msg.ID != r.streamID {
		r.streamID, r.printed = msg.ID, 0
	}
	if len(msg.Text) > r.printed {
		fmt.Fprint(r.out, msg.Text[r.printed:])
		r.printed = len(msg.Text)
	}
}

// Run reads input until /quit, EOF or ctx is done.
func (r *REPL) Run(ctx context.Context) error {
	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-interrupts:
				r.assembler.Cancel()
			}
		}
	}()

	if id, ok := r.session.CurrentUser(); ok {
		r.info(r.translator.T("signed_in", id.UserID))
	} else {
		r.warn(r.translator.T("sign_in_required"))
	}

	for ctx.Err() == nil {
		input, err := r.in.Prompt(promptStyle.Render("codecraft> "))
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				fmt.Fprintln(r.out)
				return nil
			}
			return err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		r.in.AppendHistory(input)

		if strings.HasPrefix(input, "/") {
			if quit := r.command(ctx, input); quit {
				r.info(r.translator.T("goodbye"))
				return nil
			}
			continue
		}
		r.prompt(ctx, input)
	}
	return ctx.Err()
}

func (r *REPL) prompt(ctx context.Context, text string) {
	fmt.Fprintln(r.out, aiStyle.Render("AI:"))
	err := r.assembler.SendPrompt(ctx, text)
	fmt.Fprintln(r.out)

	switch {
	case err == nil:
		if r.render != nil {
			reply, _ := r.assembler.Snapshot().LastAI()
			r.printMarkdown(reply.Text)
		}
	case auth.IsAuthError(err):
		r.warn(r.translator.T("sign_in_required"))
	case errors.Is(err, domain.ErrGenerationAbandoned):
	default:
		if last, ok := r.assembler.Snapshot().LastAI(); ok && last.Text == "Error: "+err.Error() {
			r.fail(last.Text)
			return
		}
		r.fail("Error: " + gateway.Detail(err))
	}
}

func (r *REPL) printMarkdown(text string) {
	out, err := r.render.Render(text)
	if err != nil {
		r.log.Debug().Err(err).Msg("markdown render failed")
		return
	}
	fmt.Fprint(r.out, out)
}

// command runs a slash command and reports whether the REPL should exit.
func (r *REPL) command(ctx context.Context, input string) bool {
	name, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Fprintln(r.out, r.translator.T("cli_help"))
	case "/new":
		r.assembler.StartNewSession()
		r.info(r.translator.T("new_session"))
	case "/history":
		r.showHistory(ctx)
	case "/open":
		if l, ok := r.pick("/open", arg); ok {
			r.assembler.SelectLog(l)
			r.info(r.translator.T("history_opened", l.Prompt))
			r.printTranscript(l)
		}
	case "/delete":
		if l, ok := r.pick("/delete", arg); ok {
			r.deleteLog(ctx, l)
		}
	case "/rename":
		if arg == "" {
			r.warn(r.translator.T("rename_usage"))
			return false
		}
		if err := r.assembler.RenameActiveSession(ctx, arg); err != nil {
			r.fail(r.translator.T("rename_error", gateway.Detail(err)))
			return false
		}
		r.info(r.translator.T("rename_done", arg))
	case "/mode":
		if r.assembler.ToggleLearningMode() {
			r.info(r.translator.T("mode_on"))
		} else {
			r.info(r.translator.T("mode_off"))
		}
	case "/signout":
		r.session.SignOut()
		r.assembler.StartNewSession()
		r.listed = nil
		r.info(r.translator.T("signed_out"))
	default:
		r.warn(r.translator.T("unknown_command", name))
	}
	return false
}

func (r *REPL) showHistory(ctx context.Context) {
	logs, err := r.history.List(ctx)
	if err != nil {
		r.fail(r.translator.T("history_error", gateway.Detail(err)))
		return
	}
	r.listed = logs
	if len(logs) == 0 {
		r.info(r.translator.T("history_empty"))
		return
	}
	fmt.Fprintln(r.out, r.translator.T("history_header"))
	active := r.assembler.Snapshot().ChatID
	for i, l := range logs {
		marker := " "
		if l.ChatID == active {
			marker = "*"
		}
		fmt.Fprintf(r.out, "%s%3d. %s  %s\n", marker, i+1, oneLine(l.Prompt), infoStyle.Render(l.Timestamp.Local().Format("2006-01-02 15:04")))
	}
}

// pick resolves a 1-based index into the last /history listing.
func (r *REPL) pick(cmd, arg string) (model.Log, bool) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		r.warn(r.translator.T("history_index_usage", cmd))
		return model.Log{}, false
	}
	if n > len(r.listed) {
		r.warn(r.translator.T("history_unknown"))
		return model.Log{}, false
	}
	return r.listed[n-1], true
}

func (r *REPL) deleteLog(ctx context.Context, l model.Log) {
	if err := r.history.Delete(ctx, l.ChatID); err != nil {
		r.fail(r.translator.T("history_delete_error", gateway.Detail(err)))
		r.listed = r.history.Logs()
		return
	}
	if r.assembler.Snapshot().ChatID == l.ChatID {
		r.assembler.StartNewSession()
	}
	r.listed = r.history.Logs()
	r.info(r.translator.T("history_deleted"))
}

func (r *REPL) printTranscript(l model.Log) {
	fmt.Fprintln(r.out, youStyle.Render("You:"), l.Prompt)
	fmt.Fprintln(r.out, aiStyle.Render("AI:"))
	if r.render != nil {
		r.printMarkdown(l.Explanation)
		return
	}
	fmt.Fprintln(r.out, l.Explanation)
}

func (r *REPL) info(msg string) { fmt.Fprintln(r.out, infoStyle.Render(msg)) }
func (r *REPL) warn(msg string) { fmt.Fprintln(r.out, warningStyle.Render(msg)) }
func (r *REPL) fail(msg string) { fmt.Fprintln(r.out, errorStyle.Render(msg)) }

func oneLine(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > 60 {
		return string(r[:59]) + "…"
	}
	return s
}
