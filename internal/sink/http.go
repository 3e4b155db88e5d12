package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"logtail/internal/batch"
	"logtail/internal/retry"
)

// wireRecord is the line-delimited representation the reference HTTP sink
// POSTs, per spec.md §6 ("Sink protocol (reference)").
type wireRecord struct {
	Payload    string `json:"payload"`
	Start      uint64 `json:"start_offset"`
	End        uint64 `json:"end_offset"`
	Generation uint64 `json:"generation"`
}

// HTTPSink is the reference sink from spec.md §4.E: it POSTs a batch as a
// newline-delimited body and, on a 2xx response, optionally certifies the
// batch as durable. No third-party HTTP client library appears anywhere in
// the retrieved reference pack, so this uses net/http directly and leans on
// internal/retry (the pack's own retry helper) for resilience.
type HTTPSink struct {
	name                   string
	url                    string
	client                 *http.Client
	trustResponseAsDurable bool
	retryCfg               retry.Config
}

// NewHTTPSink returns an HTTP sink named name, posting to url. When
// trustResponseAsDurable is true, a 2xx response causes Send to certify the
// batch's CommitEndOffset as durable.
func NewHTTPSink(name, url string, client *http.Client, trustResponseAsDurable bool, retryCfg retry.Config) *HTTPSink {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPSink{
		name:                   name,
		url:                    url,
		client:                 client,
		trustResponseAsDurable: trustResponseAsDurable,
		retryCfg:               retryCfg,
	}
}

func (s *HTTPSink) Name() string { return s.name }

// IsReady is a cheap, non-blocking indicator; the HTTP sink has no
// persistent connection to check, so it always reports ready and lets Send
// surface any transport failure.
func (s *HTTPSink) IsReady(ctx context.Context) bool { return true }

func (s *HTTPSink) Send(ctx context.Context, b batch.Batch) SendResult {
	body, err := s.encode(b)
	if err != nil {
		return SendResult{OK: false, Message: fmt.Sprintf("encode batch: %v", err)}
	}

	var statusCode int
	sendErr := retry.Do(ctx, s.retryCfg, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/x-ndjson")

		resp, err := s.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		statusCode = resp.StatusCode
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("sink %s: unexpected status %d", s.name, resp.StatusCode)
		}
		return nil
	})

	if sendErr != nil {
		return SendResult{OK: false, StatusCode: statusCode, Message: sendErr.Error()}
	}

	result := SendResult{OK: true, StatusCode: statusCode, Message: "delivered"}
	if s.trustResponseAsDurable {
		offset := b.CommitEndOffset
		result.CommitEndOffset = &offset
	}
	return result
}

func (s *HTTPSink) encode(b batch.Batch) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range b.Records {
		if err := enc.Encode(wireRecord{
			Payload:    string(r.Payload),
			Start:      r.Start,
			End:        r.End,
			Generation: r.Generation,
		}); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
