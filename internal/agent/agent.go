// Package agent implements the tick loop from spec.md §4.G: Observe, Read,
// Frame, Batch, Send, Commit.
package agent

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"

	"logtail/internal/batch"
	"logtail/internal/checkpoint"
	"logtail/internal/commithistory"
	"logtail/internal/fileid"
	"logtail/internal/follower"
	"logtail/internal/framer"
	"logtail/internal/router"
)

var tracer = otel.Tracer("logtail/agent")

// Agent owns the checkpoint store handle and the authoritative committed
// offset, per spec.md §3 "Lifecycle & ownership". No other component
// mutates them.
type Agent struct {
	follower *follower.Follower
	framer   *framer.Framer
	router   *router.Router
	store    checkpoint.Store
	history  *commithistory.Store

	// RouteLabelKey/RouteLabelValue select the router decision used for
	// every batch. spec.md §4.G allows a single default decision for MVP.
	RouteLabelKey   string
	RouteLabelValue string

	committedOffset uint64
	fileID          fileid.FileIdentity
	generation      uint64
}

// New builds an Agent. history may be nil to disable the diagnostic
// commit-history ring entirely.
func New(f *follower.Follower, fr *framer.Framer, r *router.Router, store checkpoint.Store, history *commithistory.Store) *Agent {
	return &Agent{follower: f, framer: fr, router: r, store: store, history: history}
}

// CommittedOffset reports the agent's in-memory authoritative offset.
func (a *Agent) CommittedOffset() uint64 { return a.committedOffset }

// Startup loads the checkpoint (if any) and attempts to resume the
// follower from it, per spec.md §4.G "Startup". A missing checkpoint or a
// checkpoint that no longer matches the file on disk both result in a
// fresh generation starting at offset zero — the checkpoint file is never
// bypassed, but a stale one is never trusted past what the file allows.
func (a *Agent) Startup(ctx context.Context) error {
	cp, err := a.store.Load(ctx)
	if err != nil {
		return err
	}
	if cp == nil {
		return nil
	}

	a.fileID = cp.FileID
	a.generation = cp.Generation
	a.committedOffset = cp.CommittedOffset

	if err := a.follower.Adopt(cp.FileID, cp.Generation, cp.CommittedOffset); err != nil {
		if follower.IsNotResumable(err) {
			log.Warn().
				Str("component", "agent").
				Uint64("checkpoint_generation", cp.Generation).
				Uint64("checkpoint_offset", cp.CommittedOffset).
				Msg("checkpoint no longer matches file on disk, starting a fresh generation at offset 0")
			a.fileID = fileid.FileIdentity{}
			a.generation = 0
			a.committedOffset = 0
			return nil
		}
		return err
	}
	return nil
}

// Tick executes one Observe -> Read -> Frame -> Batch -> Send -> Commit
// step. It never blocks past the bounded I/O calls its collaborators make,
// and it is not cancellable mid-step: ctx is only consulted by the sinks'
// own send calls and by the caller between ticks.
func (a *Agent) Tick(ctx context.Context) {
	ctx, span := tracer.Start(ctx, "agent.tick")
	defer span.End()

	// Observe.
	poll := a.follower.Poll(ctx, a.committedOffset)
	if poll.Error {
		log.Error().Str("component", "follower").Str("message", poll.Message).Msg("follower reported an error")
		return
	}
	if poll.PathMissing {
		log.Debug().Str("component", "follower").Msg("input path missing")
	}
	if poll.Truncated || poll.Switched {
		a.framer.Reset()
		log.Info().
			Str("component", "follower").
			Bool("truncated", poll.Truncated).
			Bool("switched", poll.Switched).
			Msg("resetting framer after generation change")
	}

	// Read.
	chunk, ok := a.follower.ReadSome()
	if !ok {
		return
	}
	if len(chunk.Data) == 0 {
		return
	}

	// Frame.
	a.framer.Ingest(chunk.Data, chunk.StartOffset, chunk.FileID, chunk.Generation)
	records := a.framer.Drain()
	if len(records) == 0 {
		return
	}

	// Batch.
	b, err := batch.New(records)
	if err != nil {
		log.Error().Str("component", "agent").Err(err).Msg("failed to build batch")
		return
	}

	// Send.
	decision := a.router.Decide(a.RouteLabelKey, a.RouteLabelValue)
	outcome := a.router.SendAndDecideCommit(ctx, b, decision)
	for _, sr := range outcome.Sent {
		if !sr.Result.OK {
			log.Warn().
				Str("component", "sink").
				Str("sink", sr.SinkName).
				Str("message", sr.Result.Message).
				Msg("sink send failed")
		}
	}

	// Commit.
	if !outcome.Commit {
		return
	}
	a.committedOffset = outcome.CommitOffset
	a.fileID = b.FileID
	a.generation = b.Generation

	cp := checkpoint.New(a.fileID, a.generation, a.committedOffset)
	if err := a.store.Save(ctx, cp); err != nil {
		// At-least-once delivery is preserved by NOT rolling back the
		// in-memory offset: a restart will re-deliver from the last
		// successfully persisted checkpoint, per spec.md §7.
		log.Error().
			Str("component", "checkpoint").
			Err(err).
			Msg("failed to persist checkpoint, retaining in-memory offset for retry next tick")
		return
	}

	if a.history != nil {
		if err := a.history.Append(commithistory.Entry{
			At:              time.Now().UTC(),
			FileID:          a.fileID,
			Generation:      a.generation,
			CommittedOffset: a.committedOffset,
		}); err != nil {
			log.Warn().Str("component", "commithistory").Err(err).Msg("failed to record commit history entry")
		}
	}
}
