package sink

import (
	"context"
	"fmt"
	"time"

	lumberjack "github.com/elastic/go-lumber/client/v2"

	"logtail/internal/batch"
)

// LumberjackSink ships batches over the Elastic Beats/Lumberjack protocol,
// adapted from EvSecDev-SDSyslog/internal/externalio/beats. The protocol
// acknowledges a count of events, not a byte offset, so this sink never
// certifies its own CommitEndOffset — it is the concrete case spec.md §9's
// "ack fallback when a sink is silent on commit offset" open question
// describes, resolved by always deferring to batch.CommitEndOffset.
type LumberjackSink struct {
	name   string
	client *lumberjack.SyncClient
}

// NewLumberjackSink dials a Beats/Logstash endpoint speaking the
// Lumberjack v2 protocol.
func NewLumberjackSink(name, endpoint string, timeout time.Duration) (*LumberjackSink, error) {
	client, err := lumberjack.SyncDial(endpoint, lumberjack.CompressionLevel(0), lumberjack.Timeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("lumberjack sink %s: dial %s: %w", name, endpoint, err)
	}
	return &LumberjackSink{name: name, client: client}, nil
}

func (s *LumberjackSink) Name() string { return s.name }

func (s *LumberjackSink) IsReady(ctx context.Context) bool { return s.client != nil }

func (s *LumberjackSink) Send(ctx context.Context, b batch.Batch) SendResult {
	events := make([]interface{}, 0, len(b.Records))
	for _, r := range b.Records {
		events = append(events, map[string]interface{}{
			"@timestamp": time.Now().UTC(),
			"message":    string(r.Payload),
			"log": map[string]interface{}{
				"offset": map[string]interface{}{
					"start": r.Start,
					"end":   r.End,
				},
			},
		})
	}

	acked, err := s.client.Send(events)
	if err != nil {
		return SendResult{OK: false, Message: err.Error()}
	}
	if acked < len(events) {
		return SendResult{OK: false, Message: fmt.Sprintf("partial ack: %d/%d events", acked, len(events))}
	}
	return SendResult{OK: true, Message: "delivered"}
}

// Close releases the underlying connection.
func (s *LumberjackSink) Close() error {
	return s.client.Close()
}
