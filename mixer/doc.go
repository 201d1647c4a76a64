// SPDX-License-Identifier: EPL-2.0

// Package mixer implements the real-time side of the engine.
//
// Process is called once per device period. It applies a bounded batch of
// commands, pulls each active voice's frames from its sample buffer, sums
// them on a float64 bus with per-voice gain ramps, removes voices that
// reached a terminal state, then converts the bus to the device format and
// clamps it to [-1, 1]. It never blocks, never logs and never allocates;
// everything it needs is allocated by New.
//
// Pan follows a balance law: left gain is clamp(1-pan, 0, 1) and right gain
// is clamp(1+pan, 0, 1), both scaled by volume, so a centred voice plays at
// unity on both sides.
//
// Decoding is delegated to a Scheduler; the mixer only observes the
// progress each task publishes on its voice.
package mixer
