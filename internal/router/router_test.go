package router

import (
	"context"
	"testing"

	"logtail/internal/batch"
	"logtail/internal/fileid"
	"logtail/internal/framer"
	"logtail/internal/sink"
)

type fakeSink struct {
	name      string
	ready     bool
	ok        bool
	commitEnd *uint64
	sendCalls int
}

func (s *fakeSink) Name() string                          { return s.name }
func (s *fakeSink) IsReady(ctx context.Context) bool       { return s.ready }
func (s *fakeSink) Send(ctx context.Context, b batch.Batch) sink.SendResult {
	s.sendCalls++
	return sink.SendResult{OK: s.ok, CommitEndOffset: s.commitEnd}
}

func testBatch(t *testing.T) batch.Batch {
	t.Helper()
	id := fileid.FileIdentity{Dev: 1, Ino: 1}
	b, err := batch.New([]framer.Record{{Payload: []byte("x"), Start: 0, End: 10, FileID: id, Generation: 0}})
	if err != nil {
		t.Fatalf("build test batch: %v", err)
	}
	return b
}

func TestDecideFirstMatchWins(t *testing.T) {
	cfg := Config{
		Rules: []Rule{
			{LabelKey: "app", LabelValue: "billing", Sinks: []string{"http"}},
			{LabelKey: "app", LabelValue: "billing", Sinks: []string{"clickhouse"}},
		},
		Defaults: []string{"default-sink"},
	}
	r := New(cfg, sink.NewRegistry())

	d := r.Decide("app", "billing")
	if len(d.SinkNames) != 1 || d.SinkNames[0] != "http" {
		t.Errorf("Decide() = %+v, want first matching rule's sinks", d)
	}
}

func TestDecideFallsBackToDefaults(t *testing.T) {
	cfg := Config{Defaults: []string{"default-sink"}}
	r := New(cfg, sink.NewRegistry())

	d := r.Decide("app", "unknown")
	if len(d.SinkNames) != 1 || d.SinkNames[0] != "default-sink" {
		t.Errorf("Decide() = %+v, want defaults", d)
	}
}

func TestValidateRequiresAReferencedSink(t *testing.T) {
	registry := sink.NewRegistry(&fakeSink{name: "http", ready: true, ok: true})
	r := New(Config{AckPolicy: AckAny}, registry)
	if err := r.Validate(); err == nil {
		t.Error("expected Validate() to fail when nothing references a registered sink")
	}

	r2 := New(Config{AckPolicy: AckAny, Defaults: []string{"http"}}, registry)
	if err := r2.Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}

func TestValidateRequiresPrimaryForAckPrimary(t *testing.T) {
	registry := sink.NewRegistry(&fakeSink{name: "http", ready: true, ok: true})
	r := New(Config{AckPolicy: AckPrimary, Defaults: []string{"http"}}, registry)
	if err := r.Validate(); err == nil {
		t.Error("expected Validate() to fail for AckPrimary without primary_sink")
	}

	r2 := New(Config{AckPolicy: AckPrimary, Defaults: []string{"http"}, PrimarySink: "http"}, registry)
	if err := r2.Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}

func TestSendAndDecideCommitAckAny(t *testing.T) {
	registry := sink.NewRegistry(
		&fakeSink{name: "a", ready: true, ok: false},
		&fakeSink{name: "b", ready: true, ok: true},
	)
	r := New(Config{AckPolicy: AckAny}, registry)
	b := testBatch(t)
	decision := Decision{SinkNames: []string{"a", "b"}, AckPolicy: AckAny}

	outcome := r.SendAndDecideCommit(context.Background(), b, decision)
	if !outcome.Commit {
		t.Fatal("expected commit when at least one sink acked")
	}
	if outcome.CommitOffset != b.CommitEndOffset {
		t.Errorf("CommitOffset = %d, want %d", outcome.CommitOffset, b.CommitEndOffset)
	}
}

func TestSendAndDecideCommitAckAllRequiresEveryone(t *testing.T) {
	registry := sink.NewRegistry(
		&fakeSink{name: "a", ready: true, ok: true},
		&fakeSink{name: "b", ready: true, ok: false},
	)
	r := New(Config{AckPolicy: AckAll}, registry)
	b := testBatch(t)
	decision := Decision{SinkNames: []string{"a", "b"}, AckPolicy: AckAll}

	outcome := r.SendAndDecideCommit(context.Background(), b, decision)
	if outcome.Commit {
		t.Fatal("expected no commit when one of two required sinks failed")
	}
}

func TestSendAndDecideCommitAckPrimary(t *testing.T) {
	registry := sink.NewRegistry(
		&fakeSink{name: "primary", ready: true, ok: false},
		&fakeSink{name: "secondary", ready: true, ok: true},
	)
	r := New(Config{AckPolicy: AckPrimary, PrimarySink: "primary"}, registry)
	b := testBatch(t)
	decision := Decision{SinkNames: []string{"primary", "secondary"}, AckPolicy: AckPrimary, Primary: "primary"}

	outcome := r.SendAndDecideCommit(context.Background(), b, decision)
	if outcome.Commit {
		t.Fatal("expected no commit when the primary sink failed, regardless of the secondary")
	}
}

func TestSendAndDecideCommitFallsBackWhenSinkOffsetIsNil(t *testing.T) {
	registry := sink.NewRegistry(&fakeSink{name: "beats", ready: true, ok: true, commitEnd: nil})
	r := New(Config{AckPolicy: AckAny}, registry)
	b := testBatch(t)
	decision := Decision{SinkNames: []string{"beats"}, AckPolicy: AckAny}

	outcome := r.SendAndDecideCommit(context.Background(), b, decision)
	if !outcome.Commit || outcome.CommitOffset != b.CommitEndOffset {
		t.Errorf("expected fallback to batch.CommitEndOffset, got %+v", outcome)
	}
}

func TestSendAndDecideCommitSkipsUnknownSinkNames(t *testing.T) {
	registry := sink.NewRegistry(&fakeSink{name: "known", ready: true, ok: true})
	r := New(Config{AckPolicy: AckAny}, registry)
	b := testBatch(t)
	decision := Decision{SinkNames: []string{"unknown", "known"}, AckPolicy: AckAny}

	outcome := r.SendAndDecideCommit(context.Background(), b, decision)
	if len(outcome.Sent) != 1 || outcome.Sent[0].SinkName != "known" {
		t.Errorf("expected only the known sink to be sent to, got %+v", outcome.Sent)
	}
}
