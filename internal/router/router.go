// Package router implements rule-based sink selection and acknowledgement
// policy evaluation, per spec.md §4.F.
package router

import (
	"context"
	"fmt"

	"logtail/internal/batch"
	"logtail/internal/sink"
)

// AckPolicy selects how many selected sinks must succeed before a batch's
// offset is committable.
type AckPolicy string

const (
	AckPrimary AckPolicy = "primary"
	AckAny     AckPolicy = "any"
	AckAll     AckPolicy = "all"
)

// Rule matches a label and names the sinks that should receive a batch
// carrying it.
type Rule struct {
	LabelKey   string   `yaml:"label_key"`
	LabelValue string   `yaml:"label_value"`
	Sinks      []string `yaml:"sinks"`
}

// SinkSpec declares one sink instance to construct at startup. Type
// selects the concrete implementation (http, clickhouse, lumberjack) and
// Params carries its connection settings. Keeping sink construction data
// in the same YAML file as the rules that reference sink names avoids a
// second config format; spec.md §6 only mandates the key/value file for
// the ambient settings in its own table.
type SinkSpec struct {
	Name   string            `yaml:"name"`
	Type   string            `yaml:"type"`
	Params map[string]string `yaml:"params"`
}

// Config is the router's declarative configuration, per spec.md §4.F.
type Config struct {
	Sinks       []SinkSpec `yaml:"sinks"`
	Rules       []Rule     `yaml:"rules"`
	Defaults    []string   `yaml:"defaults"`
	AckPolicy   AckPolicy  `yaml:"ack_policy"`
	PrimarySink string     `yaml:"primary_sink"`
}

// Router evaluates Config against a registry of live sinks. Router itself
// is stateless across batches, per spec.md §4.F.
type Router struct {
	cfg      Config
	registry *sink.Registry
}

// New returns a Router over cfg and registry. Call Validate before use.
func New(cfg Config, registry *sink.Registry) *Router {
	return &Router{cfg: cfg, registry: registry}
}

// Validate verifies at least one referenced sink exists overall, and that a
// Primary ack policy names an existing primary sink, per spec.md §4.F.
func (r *Router) Validate() error {
	referenced := false
	for _, rule := range r.cfg.Rules {
		for _, name := range rule.Sinks {
			if r.registry.Has(name) {
				referenced = true
			}
		}
	}
	for _, name := range r.cfg.Defaults {
		if r.registry.Has(name) {
			referenced = true
		}
	}
	if !referenced {
		return fmt.Errorf("router: no rule or default references an existing sink")
	}

	switch r.cfg.AckPolicy {
	case AckPrimary:
		if r.cfg.PrimarySink == "" {
			return fmt.Errorf("router: ack policy primary requires primary_sink")
		}
		if !r.registry.Has(r.cfg.PrimarySink) {
			return fmt.Errorf("router: primary sink %q is not registered", r.cfg.PrimarySink)
		}
	case AckAny, AckAll:
		// no extra requirement
	default:
		return fmt.Errorf("router: unknown ack policy %q", r.cfg.AckPolicy)
	}
	return nil
}

// Decision is the outcome of matching a record's label against the rules.
type Decision struct {
	SinkNames []string
	AckPolicy AckPolicy
	Primary   string
}

// Decide implements first-match semantics: the first rule whose label
// matches wins; if none match, the defaults are used. Unknown sink names
// are not filtered here — that happens in SendAndDecideCommit, per
// spec.md §4.F ("Unknown sink names encountered at decide time are
// silently skipped").
func (r *Router) Decide(labelKey, labelValue string) Decision {
	for _, rule := range r.cfg.Rules {
		if rule.LabelKey == labelKey && rule.LabelValue == labelValue {
			return Decision{SinkNames: rule.Sinks, AckPolicy: r.cfg.AckPolicy, Primary: r.cfg.PrimarySink}
		}
	}
	return Decision{SinkNames: r.cfg.Defaults, AckPolicy: r.cfg.AckPolicy, Primary: r.cfg.PrimarySink}
}

// SendResult pairs a sink name with the SendResult it produced.
type SendResult struct {
	SinkName string
	Result   sink.SendResult
}

// Outcome is the result of sending a batch to a decision's sinks.
type Outcome struct {
	Sent         []SendResult
	Commit       bool
	CommitOffset uint64
}

// SendAndDecideCommit sends b to every sink in decision that is registered
// and ready, then evaluates the ack policy against the results, per
// spec.md §4.F "Send + commit".
func (r *Router) SendAndDecideCommit(ctx context.Context, b batch.Batch, decision Decision) Outcome {
	var results []SendResult
	resultByName := make(map[string]sink.SendResult)

	for _, name := range decision.SinkNames {
		s, ok := r.registry.Get(name)
		if !ok {
			continue // unknown sink names are silently skipped
		}
		if !s.IsReady(ctx) {
			continue
		}
		res := s.Send(ctx, b)
		results = append(results, SendResult{SinkName: name, Result: res})
		resultByName[name] = res
	}

	outcome := Outcome{Sent: results}

	switch decision.AckPolicy {
	case AckPrimary:
		primary, ok := resultByName[decision.Primary]
		if ok && primary.OK {
			outcome.Commit = true
			if primary.CommitEndOffset != nil {
				outcome.CommitOffset = *primary.CommitEndOffset
			} else {
				outcome.CommitOffset = b.CommitEndOffset
			}
		}
	case AckAny:
		for _, sr := range results {
			if sr.Result.OK {
				outcome.Commit = true
				if sr.Result.CommitEndOffset != nil {
					outcome.CommitOffset = *sr.Result.CommitEndOffset
				} else {
					outcome.CommitOffset = b.CommitEndOffset
				}
				break
			}
		}
	case AckAll:
		if len(results) == 0 {
			break
		}
		allOK := true
		for _, sr := range results {
			if !sr.Result.OK {
				allOK = false
				break
			}
		}
		if allOK {
			outcome.Commit = true
			outcome.CommitOffset = b.CommitEndOffset
		}
	}

	return outcome
}
