package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RateLimitedError возвращается, когда почтовый шлюз просит повторить запрос позже.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("mail gateway rate limited, retry after %s", e.RetryAfter)
}

// GatewaySender отправляет письма через HTTP API почтового шлюза.
type GatewaySender struct {
	baseURL    string
	from       string
	httpClient *http.Client
}

// NewGatewaySender создаёт HTTP-клиент почтового шлюза по указанному адресу.
func NewGatewaySender(baseURL, from string) *GatewaySender {
	base := strings.TrimRight(baseURL, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &GatewaySender{
		baseURL: base,
		from:    from,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Send передаёт письмо шлюзу. Ответ 202 и 200 считаются успешными.
func (g *GatewaySender) Send(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(mailJob{From: g.from, Notification: n})
	if err != nil {
		return fmt.Errorf("marshal mail: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/send", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusAccepted:
		return nil
	case http.StatusTooManyRequests:
		retryAfter := time.Duration(0)
		if v := resp.Header.Get("Retry-After"); v != "" {
			if seconds, parseErr := strconv.Atoi(v); parseErr == nil {
				retryAfter = time.Duration(seconds) * time.Second
			}
		}
		return &RateLimitedError{RetryAfter: retryAfter}
	default:
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
}
