// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/ik5/audmix/mixer"
)

// monitor turns mixer counters and events into logs and metrics off the
// real-time path.
func (e *Engine) monitor(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.MonitorInterval)
	defer ticker.Stop()

	var last mixer.Stats
	events := make([]mixer.Event, 64)

	for {
		select {
		case <-ctx.Done():
			e.report(context.WithoutCancel(ctx), &last, events)
			return nil
		case <-ticker.C:
			e.report(ctx, &last, events)
		}
	}
}

func (e *Engine) report(ctx context.Context, last *mixer.Stats, events []mixer.Event) {
	for {
		n := e.mix.Events(events)
		for _, ev := range events[:n] {
			e.logEvent(ev)
		}
		if n < len(events) {
			break
		}
	}

	cur := e.mix.Stats()
	m := e.metrics

	m.Ticks.Add(ctx, int64(cur.Ticks-last.Ticks))
	m.Underruns.Add(ctx, int64(cur.Underruns-last.Underruns))
	m.VoicesStarted.Add(ctx, int64(cur.VoicesStarted-last.VoicesStarted))
	m.VoicesFinished.Add(ctx, int64(cur.VoicesFinished-last.VoicesFinished))
	m.VoicesFailed.Add(ctx, int64(cur.VoicesFailed-last.VoicesFailed))
	m.ActiveVoices.Add(ctx, int64(cur.ActiveVoices)-int64(last.ActiveVoices))
	m.RecordRejected(ctx, "dropped", int64(cur.CommandsDropped-last.CommandsDropped))
	m.RecordRejected(ctx, "unknown_voice", int64(cur.UnknownVoice-last.UnknownVoice))
	m.RecordRejected(ctx, "duplicate_voice", int64(cur.DuplicateVoices-last.DuplicateVoices))

	if d := cur.Underruns - last.Underruns; d > 0 {
		e.log.Warn("voice underruns", slog.Uint64("count", d), slog.Uint64("total", cur.Underruns))
	}
	if d := cur.CommandsDropped - last.CommandsDropped; d > 0 {
		e.log.Warn("commands dropped", slog.Uint64("count", d))
	}
	if d := cur.SchedulerRejected - last.SchedulerRejected; d > 0 {
		e.log.Warn("pipeline requests rejected", slog.Uint64("count", d))
	}
	if d := cur.EventsDropped - last.EventsDropped; d > 0 {
		e.log.Debug("voice events dropped", slog.Uint64("count", d))
	}

	if e.recorder != nil {
		dropped := e.recorder.Dropped()
		m.RecordDropped.Add(ctx, int64(dropped-e.recDropped))
		e.recDropped = dropped
	}

	*last = cur
}

func (e *Engine) logEvent(ev mixer.Event) {
	switch ev.Kind {
	case mixer.VoiceFailed:
		e.log.Error("voice failed",
			slog.Uint64("voice", uint64(ev.Voice)),
			slog.Uint64("underruns", ev.Underruns),
			slog.Any("error", ev.Err))
	default:
		e.log.Debug("voice finished",
			slog.Uint64("voice", uint64(ev.Voice)),
			slog.Uint64("underruns", ev.Underruns))
	}
}
