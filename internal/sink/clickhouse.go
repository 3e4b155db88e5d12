package sink

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"logtail/internal/batch"
	"logtail/internal/retry"
)

// ClickHouseSink inserts each batch's records as rows, adapted from
// SteelMorgan-1c-log-checker/internal/clickhouse/client.go (connection +
// retry wrapping) and internal/writer/clickhouse.go (batch insert shape).
// Because clickhouse-go's Send blocks until the insert is acknowledged by
// the server, this sink can certify CommitEndOffset itself.
type ClickHouseSink struct {
	name     string
	conn     driver.Conn
	table    string
	retryCfg retry.Config
}

// NewClickHouseSink dials ClickHouse and pings it once with retry before
// returning, mirroring the teacher's NewClientWithRetry.
func NewClickHouseSink(ctx context.Context, name, addr, database, table string, retryCfg retry.Config) (*ClickHouseSink, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: database,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("clickhouse sink %s: open: %w", name, err)
	}
	if err := retry.Do(ctx, retryCfg, func() error {
		return conn.Ping(ctx)
	}); err != nil {
		return nil, fmt.Errorf("clickhouse sink %s: ping: %w", name, err)
	}
	return &ClickHouseSink{name: name, conn: conn, table: table, retryCfg: retryCfg}, nil
}

func (s *ClickHouseSink) Name() string { return s.name }

func (s *ClickHouseSink) IsReady(ctx context.Context) bool {
	return s.conn.Ping(ctx) == nil
}

func (s *ClickHouseSink) Send(ctx context.Context, b batch.Batch) SendResult {
	insertErr := retry.Do(ctx, s.retryCfg, func() error {
		chBatch, err := s.conn.PrepareBatch(ctx, fmt.Sprintf(
			"INSERT INTO %s (file_dev, file_ino, generation, start_offset, end_offset, payload)", s.table))
		if err != nil {
			return err
		}
		for _, r := range b.Records {
			if err := chBatch.Append(b.FileID.Dev, b.FileID.Ino, r.Generation, r.Start, r.End, string(r.Payload)); err != nil {
				return err
			}
		}
		return chBatch.Send()
	})

	if insertErr != nil {
		return SendResult{OK: false, Message: insertErr.Error()}
	}

	offset := b.CommitEndOffset
	return SendResult{OK: true, Message: "inserted", CommitEndOffset: &offset}
}

// Close releases the underlying connection.
func (s *ClickHouseSink) Close() error {
	return s.conn.Close()
}
