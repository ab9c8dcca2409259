package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// Channel is the external push boundary.
type Channel interface {
	SendToDevice(ctx context.Context, token, title, body string, data map[string]string) error
}

// HTTPChannel posts FCM-style payloads to the push provider. Calls go
// through a circuit breaker so a dead provider fails fast instead of holding
// request goroutines for the full timeout, and a token bucket bounds the
// send rate.
type HTTPChannel struct {
	endpoint  string
	serverKey string
	client    *http.Client
	breaker   *gobreaker.CircuitBreaker
	limiter   *rate.Limiter
}

func NewHTTPChannel(endpoint, serverKey string, timeout time.Duration, ratePerSecond int) *HTTPChannel {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "push-channel",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &HTTPChannel{
		endpoint:  endpoint,
		serverKey: serverKey,
		client:    &http.Client{Timeout: timeout},
		breaker:   breaker,
		limiter:   rate.NewLimiter(rate.Limit(ratePerSecond), ratePerSecond),
	}
}

type pushRequest struct {
	To           string            `json:"to"`
	Notification pushNotification  `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

type pushNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (c *HTTPChannel) SendToDevice(ctx context.Context, token, title, body string, data map[string]string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.send(ctx, token, title, body, data)
	})
	return err
}

func (c *HTTPChannel) send(ctx context.Context, token, title, body string, data map[string]string) error {
	payload, err := json.Marshal(pushRequest{
		To:           token,
		Notification: pushNotification{Title: title, Body: body},
		Data:         data,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+c.serverKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("push channel status=%d", resp.StatusCode)
	}
	return nil
}
