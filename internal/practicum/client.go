// Package practicum provides the gateway to the homework review-status API.
package practicum

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"homeworkbot/internal/homework"
	logx "homeworkbot/pkg/logx"
)

// DefaultEndpoint is the review-status API used when none is configured.
const DefaultEndpoint = "https://practicum.yandex.ru/api/user_api/homework_statuses/"

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 4 << 20

type Config struct {
	Endpoint string
	Token    string
	// Timeout bounds one request when the caller provides no http.Client.
	Timeout time.Duration
}

// Client performs one GET per call and translates the response into a payload
// or a typed homework.Error. It does not retry.
type Client struct {
	httpClient *http.Client
	endpoint   string
	token      string
	log        logx.Logger
}

// New constructs a Client. A nil httpClient gets a client bounded by cfg.Timeout.
func New(cfg Config, httpClient *http.Client, log logx.Logger) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if _, err := url.Parse(endpoint); err != nil {
		return nil, errors.Wrap(err, "parse endpoint")
	}
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("practicum token is empty")
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{httpClient: httpClient, endpoint: endpoint, token: cfg.Token, log: log}, nil
}

// FetchSince requests the homeworks whose status changed since the given Unix
// timestamp. Context cancellation is returned as-is, not as a domain error.
func (c *Client) FetchSince(ctx context.Context, since int64) (homework.Payload, error) {
	if since < 0 {
		since = 0
	}
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, errors.Wrap(err, "parse endpoint")
	}
	q := u.Query()
	q.Set("from_date", strconv.FormatInt(since, 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("Authorization", "OAuth "+c.token)
	req.Header.Set("Accept", "application/json")

	c.log.Debug("requesting homework statuses", logx.String("endpoint", c.endpoint), logx.Int64("from_date", since))

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, transportError(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	c.log.Debug("review api responded", logx.Int("status", resp.StatusCode), logx.Duration("took", time.Since(start)))

	if err := statusError(resp.StatusCode); err != nil {
		return nil, err
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, transportError(err)
	}

	p, err := homework.ParsePayload(b)
	if err != nil {
		c.log.Error("review api body is not valid json", logx.Err(err), logx.Int("bytes", len(b)))
		return nil, err
	}
	return p, nil
}

// statusError maps a non-2xx status code to a domain error.
func statusError(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized:
		return homework.New(homework.KindUnauthorized, homework.MsgUnauthorized)
	case code == http.StatusInternalServerError:
		return homework.New(homework.KindServerFault, homework.MsgServerFault)
	case code == http.StatusNotFound:
		return homework.New(homework.KindNotFound, homework.MsgNotFound)
	case code == http.StatusRequestTimeout:
		return homework.New(homework.KindTimeout, homework.MsgTimeout)
	default:
		return homework.New(homework.KindServerFault, fmt.Sprintf("Сервер вернул неожиданный код ответа: %d", code))
	}
}

func transportError(err error) error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return homework.Wrap(homework.KindTimeout, err, homework.MsgNoAnswer)
	}
	return homework.Wrap(homework.KindTimeout, err, homework.MsgUnreachable)
}
