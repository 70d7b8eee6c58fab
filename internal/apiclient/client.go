// Package apiclient implements model.API over HTTP.
package apiclient

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"

	"github.com/russianllm/ruterm/internal/apierr"
	"github.com/russianllm/ruterm/internal/model"
)

// Config configures a Client.
type Config struct {
	BaseURL string
	// Timeout bounds a single request. Zero leaves requests unbounded; they end
	// only when the caller cancels the context.
	Timeout time.Duration
	// CookieFile keeps the session cookie across restarts. Empty keeps it in
	// memory only.
	CookieFile string
	Logger     *slog.Logger
}

// Client talks to the language-learning REST API. The session cookie lives in
// the client's cookie jar, mirrored to Config.CookieFile when set.
type Client struct {
	http   *resty.Client
	logger *slog.Logger
}

var _ model.API = (*Client)(nil)

// New creates a client for cfg.BaseURL.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("apiclient: base url is empty")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	rc := resty.New().
		SetBaseURL(base).
		SetHeader("Accept", "application/json").
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal).
		SetLogger(restyLogger{logger}).
		SetRetryCount(0)
	if cfg.Timeout > 0 {
		rc.SetTimeout(cfg.Timeout)
	}
	var cookies *cookieStore
	if cfg.CookieFile != "" {
		var err error
		if cookies, err = newCookieStore(cfg.CookieFile, base); err != nil {
			return nil, err
		}
		rc.SetCookieJar(cookies.jar)
	}
	rc.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		logger.Debug("api response",
			"method", resp.Request.Method,
			"url", resp.Request.URL,
			"status", resp.StatusCode(),
			"duration", resp.Time())
		if cookies != nil && len(resp.Header().Values("Set-Cookie")) > 0 {
			if err := cookies.save(); err != nil {
				logger.Warn("persisting cookies failed", "error", err)
			}
		}
		return nil
	})

	return &Client{http: rc, logger: logger}, nil
}

// do executes req and classifies its outcome.
func (c *Client) do(ctx context.Context, op, method, path string, req *resty.Request) error {
	resp, err := req.SetContext(ctx).Execute(method, path)
	if err != nil {
		return apierr.FromTransport(op, err)
	}
	return apierr.FromStatus(op, resp.StatusCode(), resp.Body())
}

// CheckLoginStatus probes the current session.
func (c *Client) CheckLoginStatus(ctx context.Context) (model.Session, error) {
	var out model.SessionPayload
	if err := c.do(ctx, "check-login-status", http.MethodGet, "/check-login-status", c.http.R().SetResult(&out)); err != nil {
		return model.Session{}, err
	}
	return out.Session(), nil
}

// Login authenticates with email and password.
func (c *Client) Login(ctx context.Context, email, password string) (model.Session, error) {
	var out model.SessionPayload
	req := c.http.R().
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&out)
	if err := c.do(ctx, "login", http.MethodPost, "/login", req); err != nil {
		return model.Session{}, err
	}
	s := out.Session()
	if s.Username == "" {
		s.Username = email
	}
	return s, nil
}

// Logout ends the server-side session.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, "logout", http.MethodGet, "/logout", c.http.R())
}

// ForgotPassword requests a password reset email.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	req := c.http.R().SetBody(map[string]string{"email": email})
	return c.do(ctx, "forgot-password", http.MethodPost, "/forgot-password", req)
}

// ValidateResetToken checks a password reset token before the form is shown.
func (c *Client) ValidateResetToken(ctx context.Context, token string) error {
	req := c.http.R().SetQueryParam("token", token)
	return c.do(ctx, "validate-token", http.MethodGet, "/validate-token", req)
}

// ResetPassword sets a new password using a reset token.
func (c *Client) ResetPassword(ctx context.Context, body model.ResetPasswordRequest) error {
	return c.do(ctx, "password-reset", http.MethodPut, "/password-reset", c.http.R().SetBody(body))
}

// Exercises loads the exercises catalog.
func (c *Client) Exercises(ctx context.Context) (model.ExercisesResponse, error) {
	var out model.ExercisesResponse
	err := c.do(ctx, "exercises", http.MethodGet, "/exercises", c.http.R().SetResult(&out))
	return out, err
}

// Stats loads the user's skill statistics.
func (c *Client) Stats(ctx context.Context) (model.StatsResponse, error) {
	var out model.StatsResponse
	err := c.do(ctx, "stats", http.MethodGet, "/stats", c.http.R().SetResult(&out))
	return out, err
}

// Words loads one page of the vocabulary, starting at page 1.
func (c *Client) Words(ctx context.Context, page int) (model.WordsPage, error) {
	var out model.WordsPage
	req := c.http.R().SetQueryParam("page", strconv.Itoa(page)).SetResult(&out)
	err := c.do(ctx, "words", http.MethodGet, "/words", req)
	return out, err
}

// restyLogger routes resty's internal logging into slog.
type restyLogger struct {
	l *slog.Logger
}

func (r restyLogger) Errorf(format string, v ...interface{}) {
	r.l.Error(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "resty")
}

func (r restyLogger) Warnf(format string, v ...interface{}) {
	r.l.Warn(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "resty")
}

func (r restyLogger) Debugf(format string, v ...interface{}) {
	r.l.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "resty")
}
