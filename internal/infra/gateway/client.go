package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"codecraft-ai/internal/domain"
	"codecraft-ai/internal/domain/model"
	"codecraft-ai/internal/domain/ports/adapter"
	"codecraft-ai/internal/infra/logging"
)

// Compile-time check
var _ adapter.BackendGateway = (*Client)(nil)

// Fallback messages used when the server does not provide a detail.
const (
	msgGenerateFailed = "Failed to generate code"
	msgSaveFailed     = "Failed to save log"
	msgListFailed     = "Failed to fetch logs"
	msgDeleteFailed   = "Failed to delete log"
	msgRenameFailed   = "Failed to update log title"
)

// Tokens supplies the bearer token for the signed-in user, if any.
type Tokens interface {
	Token(ctx context.Context) (string, error)
}

// Client talks to the CodeCraft backend REST API.
type Client struct {
	http   *resty.Client
	tokens Tokens
	logger *zerolog.Logger
}

func NewClient(baseURL string, tokens Tokens, logger *zerolog.Logger) *Client {
	l := logger.With().Str("component", "GatewayClient").Logger()
	rc := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetLogger(restyLogger{l: &l})
	return &Client{http: rc, tokens: tokens, logger: &l}
}

// request builds a request carrying the bearer token when one is available.
func (c *Client) request(ctx context.Context) *resty.Request {
	r := c.http.R().SetContext(ctx)
	if c.tokens == nil {
		return r
	}
	tok, err := c.tokens.Token(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrUnauthenticated) {
			logging.With(ctx, c.logger).Warn().Err(err).Msg("token unavailable; sending request without credentials")
		}
		return r
	}
	if tok != "" {
		r.SetAuthToken(tok)
	}
	return r
}

func (c *Client) Generate(ctx context.Context, req adapter.GenerateRequest) (adapter.TextStream, error) {
	if req.ConversationHistory == nil {
		req.ConversationHistory = []model.ConversationTurn{}
	}
	resp, err := c.request(ctx).
		SetHeader("Accept", "text/plain").
		SetBody(req).
		SetDoNotParseResponse(true).
		Post("/generate-code")
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("generate: %w", err)
	}
	body := resp.RawBody()
	if resp.IsError() {
		defer body.Close()
		var eb errorBody
		if err := json.NewDecoder(body).Decode(&eb); err != nil {
			return nil, newError("generate", resp.StatusCode(), nil, msgGenerateFailed)
		}
		return nil, newError("generate", resp.StatusCode(), &eb, msgGenerateFailed)
	}
	return newBodyStream(ctx, body), nil
}

func (c *Client) SaveLog(ctx context.Context, log model.Log) error {
	resp, err := c.request(ctx).SetBody(log).Post("/save-log")
	return c.checkMessage("save log", resp, err, msgSaveFailed)
}

type listLogsResponse struct {
	Logs    *[]model.Log `json:"logs"`
	Message string       `json:"message"`
	Detail  string       `json:"detail"`
}

func (c *Client) ListLogs(ctx context.Context, userID string) ([]model.Log, error) {
	resp, err := c.request(ctx).
		SetQueryParam("user_id", userID).
		Get("/get-logs")
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	var out listLogsResponse
	decodeErr := json.Unmarshal(resp.Body(), &out)
	if resp.IsError() {
		return nil, newError("list logs", resp.StatusCode(), &errorBody{Detail: out.Detail}, msgListFailed)
	}
	if decodeErr != nil {
		return nil, newError("list logs", resp.StatusCode(), nil, msgListFailed)
	}
	if out.Logs == nil {
		// The server answers {"message": ...} when it has nothing to list.
		msg := out.Message
		if msg == "" {
			msg = msgListFailed
		}
		return nil, &Error{Op: "list logs", Status: resp.StatusCode(), Detail: msg}
	}
	return *out.Logs, nil
}

func (c *Client) DeleteLog(ctx context.Context, userID, chatID string) error {
	resp, err := c.request(ctx).
		SetPathParams(map[string]string{"user_id": userID, "chat_id": chatID}).
		Delete("/delete-log/{user_id}/{chat_id}")
	return c.checkMessage("delete log", resp, err, msgDeleteFailed)
}

func (c *Client) UpdateLogTitle(ctx context.Context, userID, chatID, title string) error {
	resp, err := c.request(ctx).
		SetPathParams(map[string]string{"user_id": userID, "chat_id": chatID}).
		SetBody(map[string]string{"new_title": title}).
		Put("/update-log-title/{user_id}/{chat_id}")
	return c.checkMessage("update log title", resp, err, msgRenameFailed)
}

// checkMessage validates a {"message": ...} style response.
func (c *Client) checkMessage(op string, resp *resty.Response, err error, fallback string) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !resp.IsError() {
		return nil
	}
	var eb errorBody
	if json.Unmarshal(resp.Body(), &eb) != nil {
		return newError(op, resp.StatusCode(), nil, fallback)
	}
	e := newError(op, resp.StatusCode(), &eb, fallback)
	c.logger.Debug().Str("op", op).Int("status", e.Status).Str("detail", e.Detail).Msg("gateway error")
	return e
}

type restyLogger struct{ l *zerolog.Logger }

func (r restyLogger) Errorf(format string, v ...interface{}) { r.l.Error().Msgf(format, v...) }
func (r restyLogger) Warnf(format string, v ...interface{})  { r.l.Warn().Msgf(format, v...) }
func (r restyLogger) Debugf(format string, v ...interface{}) { r.l.Debug().Msgf(format, v...) }
