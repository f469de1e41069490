package mailer

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/yungbote/coursetrack-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursetrack-backend/internal/platform/envutil"
	"github.com/yungbote/coursetrack-backend/internal/platform/logger"
)

const (
	defaultHost = "https://api.sendgrid.com"
	sendPath    = "/v3/mail/send"
)

type Client interface {
	Send(ctx context.Context, msg Message) (*SendResult, error)
}

type Config struct {
	APIKey     string
	Host       string
	FromEmail  string
	FromName   string
	MaxRetries int
}

func ConfigFromEnv() Config {
	return Config{
		APIKey:     envutil.String("SENDGRID_API_KEY", ""),
		Host:       envutil.String("SENDGRID_BASE_URL", defaultHost),
		FromEmail:  envutil.String("SENDGRID_FROM_EMAIL", ""),
		FromName:   envutil.String("SENDGRID_FROM_NAME", "CourseTrack"),
		MaxRetries: envutil.Int("SENDGRID_MAX_RETRIES", 3),
	}
}

type Message struct {
	ToEmail string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

type SendResult struct {
	StatusCode int
	MessageID  string
}

type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 1000 {
		body = body[:1000] + "..."
	}
	return fmt.Sprintf("sendgrid http %d: %s", e.StatusCode, body)
}

func (e *HTTPError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type client struct {
	log *logger.Logger
	cfg Config
}

// New returns a Noop client when no API key is configured.
func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		log.Info("sendgrid not configured; email disabled")
		return Noop{}, nil
	}
	if strings.TrimSpace(cfg.FromEmail) == "" {
		return nil, fmt.Errorf("missing SENDGRID_FROM_EMAIL")
	}
	cfg.Host = strings.TrimRight(strings.TrimSpace(cfg.Host), "/")
	if cfg.Host == "" {
		cfg.Host = defaultHost
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &client{log: log.With("client", "SendGridClient"), cfg: cfg}, nil
}

func (c *client) Send(ctx context.Context, msg Message) (*SendResult, error) {
	m, err := c.build(msg)
	if err != nil {
		return nil, err
	}
	req := sendgrid.GetRequest(c.cfg.APIKey, sendPath, c.cfg.Host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m)

	op := func() (*SendResult, error) {
		resp, err := sendgrid.MakeRequestWithContext(ctxutil.Default(ctx), req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			he := &HTTPError{StatusCode: resp.StatusCode, Body: resp.Body}
			if !he.retryable() {
				return nil, backoff.Permanent(he)
			}
			return nil, he
		}
		res := &SendResult{StatusCode: resp.StatusCode}
		if ids := resp.Headers["X-Message-Id"]; len(ids) > 0 {
			res.MessageID = ids[0]
		}
		return res, nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = time.Second
	eb.MaxInterval = 10 * time.Second
	res, err := backoff.Retry(ctxutil.Default(ctx), op,
		backoff.WithBackOff(eb),
		backoff.WithMaxTries(uint(c.cfg.MaxRetries+1)),
		backoff.WithNotify(func(err error, d time.Duration) {
			c.log.Warn("sendgrid request retrying", "sleep", d.String(), "error", err)
		}),
	)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (c *client) build(msg Message) (*sgmail.SGMailV3, error) {
	to := strings.TrimSpace(msg.ToEmail)
	if to == "" {
		return nil, fmt.Errorf("sendgrid: recipient required")
	}
	subject := strings.TrimSpace(msg.Subject)
	if subject == "" {
		return nil, fmt.Errorf("sendgrid: subject required")
	}
	if strings.TrimSpace(msg.Text) == "" && strings.TrimSpace(msg.HTML) == "" {
		return nil, fmt.Errorf("sendgrid: text or html content required")
	}
	from := sgmail.NewEmail(c.cfg.FromName, c.cfg.FromEmail)
	return sgmail.NewSingleEmail(from, subject, sgmail.NewEmail(strings.TrimSpace(msg.ToName), to), msg.Text, msg.HTML), nil
}

// Noop drops every message.
type Noop struct{}

func (Noop) Send(context.Context, Message) (*SendResult, error) {
	return &SendResult{}, nil
}
