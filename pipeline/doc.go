// SPDX-License-Identifier: EPL-2.0

// Package pipeline runs the blocking side of playback: decoding a voice's
// Source, mapping its channels, resampling it to the engine rate and
// writing the result into the voice's sample buffer.
//
// The mixer talks to a Pipeline only through Start, Release and Discard,
// which post to a lock-free queue and never block. Run owns a dispatcher
// that turns those requests into one goroutine per voice, bounded by an
// errgroup limit. A task publishes its progress on the voice:
//
//	Decoding -> Playing   first frames written
//	Playing  -> Draining  source exhausted, task exits
//	any      -> Failed    decode or seek error stored on the voice
//
// When the buffer is full the task sleeps for PollInterval and retries, so
// frames are never dropped. Sources are closed only after the owning task
// has exited, then the voice is marked released for its lease.
package pipeline
