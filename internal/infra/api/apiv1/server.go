package apiv1

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"

	"github.com/gorilla/schema"
	"github.com/rs/zerolog"

	"codecraft-ai/internal/domain/model"
	"codecraft-ai/internal/infra/logging"
	"codecraft-ai/internal/infra/metrics"
	"codecraft-ai/internal/infra/web"
	"codecraft-ai/internal/usecase"
)

const maxBodyBytes = 1 << 20

var queryDecoder = func() *schema.Decoder {
	d := schema.NewDecoder()
	d.SetAliasTag("form")
	d.IgnoreUnknownKeys(true)
	return d
}()

// Server implements the gateway routes on top of the generation and log use cases.
type Server struct {
	gen  usecase.GenerationUseCase
	logs usecase.LogUseCase
	log  *zerolog.Logger
}

func NewServer(gen usecase.GenerationUseCase, logs usecase.LogUseCase, logger *zerolog.Logger) *Server {
	return &Server{gen: gen, logs: logs, log: logging.Component(logger, "APIv1")}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		unprocessable(w, fmt.Sprintf("Invalid request body: %v", err))
		return false
	}
	return true
}

// GenerateCode streams the provider's reply as chunked text/plain.
func (s *Server) GenerateCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var body GenerateCodeJSONRequestBody
	if !decodeBody(w, r, &body) {
		return
	}
	if err := web.RequireUser(ctx, body.UserId); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	in, err := toGenerateInput(body)
	if err != nil {
		unprocessable(w, err.Error())
		return
	}

	gen, err := s.gen.Start(ctx, in)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	defer gen.Close()
	metrics.AddTokensIn(gen.Model, gen.TokensIn)

	next, stop := iter.Pull2(gen.Chunks())
	defer stop()

	chunk, err, ok := next()
	if ok && err != nil {
		s.observe(ctx, gen, err)
		web.WriteDetail(w, http.StatusBadGateway, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	for ok {
		if err != nil {
			s.observe(ctx, gen, err)
			// the status line is gone, so abort the connection
			panic(http.ErrAbortHandler)
		}
		if _, werr := io.WriteString(w, chunk); werr != nil {
			s.observe(ctx, gen, werr)
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
		chunk, err, ok = next()
	}
	s.observe(ctx, gen, nil)
}

func (s *Server) observe(ctx context.Context, gen *usecase.Generation, err error) {
	chunks, _, elapsed, _ := gen.Stats()
	result := metrics.ResultSuccess
	switch {
	case err == nil:
	case ctx.Err() != nil || errors.Is(err, context.Canceled):
		result = metrics.ResultCancelled
	case chunks == 0:
		result = metrics.ResultProviderError
	default:
		result = metrics.ResultStreamError
	}
	metrics.ObserveGeneration(gen.Model, result, chunks, elapsed.Milliseconds())

	l := logging.With(ctx, s.log)
	ev := l.Info()
	if err != nil && result != metrics.ResultCancelled {
		ev = l.Warn().Err(err)
	}
	ev.Str("model", gen.Model).Str("result", result).Int("chunks", chunks).Dur("elapsed", elapsed).Msg("generation finished")
}

func toGenerateInput(body GenerateCodeRequest) (usecase.GenerateInput, error) {
	in := usecase.GenerateInput{UserID: body.UserId, Prompt: body.Prompt}
	if body.LearningMode != nil {
		in.LearningMode = *body.LearningMode
	}
	if body.ConversationHistory == nil {
		return in, nil
	}
	in.History = make([]model.ConversationTurn, 0, len(*body.ConversationHistory))
	for i, t := range *body.ConversationHistory {
		sender, err := model.ParseSender(string(t.Sender))
		if err != nil {
			return in, fmt.Errorf("conversation_history[%d]: %v", i, err)
		}
		turn := model.ConversationTurn{Sender: sender}
		if t.Text != nil {
			turn.Text = *t.Text
		}
		in.History = append(in.History, turn)
	}
	return in, nil
}

func (s *Server) SaveLog(w http.ResponseWriter, r *http.Request) {
	var body SaveLogJSONRequestBody
	if !decodeBody(w, r, &body) {
		return
	}
	if err := web.RequireUser(r.Context(), body.UserId); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	l := model.Log{
		UserID:       body.UserId,
		ChatID:       body.ChatId,
		Timestamp:    body.Timestamp.UTC(),
		Prompt:       body.Prompt,
		LearningMode: body.LearningMode,
	}
	if body.Explanation != nil {
		l.Explanation = *body.Explanation
	}
	if err := s.logs.Save(r.Context(), &l); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	metrics.IncLogsSaved()
	web.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Log saved successfully"})
}

func (s *Server) GetLogs(w http.ResponseWriter, r *http.Request) {
	var params GetLogsParams
	if err := queryDecoder.Decode(&params, r.URL.Query()); err != nil {
		unprocessable(w, fmt.Sprintf("Invalid query: %v", err))
		return
	}
	if strings.TrimSpace(params.UserId) == "" {
		unprocessable(w, "user_id is required")
		return
	}
	if err := web.RequireUser(r.Context(), params.UserId); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	logs, err := s.logs.List(r.Context(), params.UserId)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	resp := LogsResponse{Logs: make([]Log, 0, len(logs))}
	for _, l := range logs {
		resp.Logs = append(resp.Logs, toWireLog(l))
	}
	web.WriteJSON(w, http.StatusOK, resp)
}

func toWireLog(l model.Log) Log {
	explanation := l.Explanation
	return Log{
		UserId:       l.UserID,
		ChatId:       l.ChatID,
		Timestamp:    l.Timestamp,
		Prompt:       l.Prompt,
		Explanation:  &explanation,
		LearningMode: l.LearningMode,
	}
}

func (s *Server) DeleteLog(w http.ResponseWriter, r *http.Request, userID UserID, chatID ChatID) {
	if err := web.RequireUser(r.Context(), userID); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	if err := s.logs.Delete(r.Context(), userID, chatID); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	metrics.IncLogsDeleted()
	web.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Log deleted successfully"})
}

func (s *Server) UpdateLogTitle(w http.ResponseWriter, r *http.Request, userID UserID, chatID ChatID) {
	if err := web.RequireUser(r.Context(), userID); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	var body UpdateLogTitleJSONRequestBody
	if !decodeBody(w, r, &body) {
		return
	}
	if err := s.logs.UpdateTitle(r.Context(), userID, chatID, body.NewTitle); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Log title updated successfully"})
}
