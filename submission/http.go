package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/warp/shift-calendar/calendar"
)

const maxErrorBody = 512

// HTTPSender POSTs the submission payload to a backend endpoint. The
// submission id travels as Idempotency-Key so a resend after an ambiguous
// failure cannot double-count a week.
type HTTPSender struct {
	URL           string
	ClientVersion string
	Client        *http.Client
}

func NewHTTPSender(url string, timeout time.Duration, clientVersion string) *HTTPSender {
	return &HTTPSender{
		URL:           url,
		ClientVersion: clientVersion,
		Client:        &http.Client{Timeout: timeout},
	}
}

// StatusError is a non-2xx backend response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend returned %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Body)
}

func (s *HTTPSender) Send(ctx context.Context, sub calendar.WeeklySubmission) error {
	body, err := json.Marshal(NewPayload(sub, s.ClientVersion))
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", sub.ID)

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("post submission: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(excerpt))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
