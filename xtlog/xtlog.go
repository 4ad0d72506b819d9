// Package xtlog provides the engine's debug-only tracing hook (spec §9:
// "debug-only re-verification paths... gated behind a debug flag"),
// generalized from lvlath/flow.FlowOptions' Verbose-gated fmt.Printf
// calls into a real structured logger. The hot path calls a Tracer at
// the same call sites flow.Dinic's Verbose branch occupies; the default
// NoopTracer makes those calls free when tracing is off.
package xtlog

import (
	"io"

	"github.com/rs/zerolog"
)

// Tracer receives structured events from xtlevels and ruleout as the
// engine walks levels and rules out candidates. Implementations must be
// safe to call on every hot-path step; NoopTracer is the zero-cost
// default.
type Tracer interface {
	LevelPush(depth int, nLeaves int)
	LevelPop(depth int)
	RuleOut(vertex int, reason string, bound, cost float64)
	CandidateRejected(vertex int, reason string)
}

// NoopTracer discards every event; it is the default when no tracer is
// configured, matching flow.Dinic's zero-overhead behavior with Verbose
// unset.
type NoopTracer struct{}

func (NoopTracer) LevelPush(depth, nLeaves int)                          {}
func (NoopTracer) LevelPop(depth int)                                    {}
func (NoopTracer) RuleOut(vertex int, reason string, bound, cost float64) {}
func (NoopTracer) CandidateRejected(vertex int, reason string)            {}

// zerologTracer backs Tracer with a structured zerolog logger.
type zerologTracer struct {
	log zerolog.Logger
}

// New builds a Tracer that writes structured events to w at the given
// minimum level.
func New(w io.Writer, level zerolog.Level) Tracer {
	return &zerologTracer{log: zerolog.New(w).Level(level).With().Timestamp().Logger()}
}

func (t *zerologTracer) LevelPush(depth, nLeaves int) {
	t.log.Debug().Int("depth", depth).Int("leaves", nLeaves).Msg("level_push")
}

func (t *zerologTracer) LevelPop(depth int) {
	t.log.Debug().Int("depth", depth).Msg("level_pop")
}

func (t *zerologTracer) RuleOut(vertex int, reason string, bound, cost float64) {
	t.log.Info().Int("vertex", vertex).Str("reason", reason).Float64("bound", bound).Float64("cost", cost).Msg("rule_out")
}

func (t *zerologTracer) CandidateRejected(vertex int, reason string) {
	t.log.Debug().Int("vertex", vertex).Str("reason", reason).Msg("candidate_rejected")
}
