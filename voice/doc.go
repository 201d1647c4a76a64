// SPDX-License-Identifier: EPL-2.0

// Package voice holds the per-playback state shared by the mixer and the
// decode pipeline, and the intrusive collections the mixer keeps voices in.
//
// Link fields live inside Voice, so moving a voice between the free list,
// the active Registry and the retired list never allocates. Removal during
// ForEach is allowed because the next pointer is read before the callback
// runs.
//
// # Lifecycle
//
//	Pending -> Decoding -> Playing -> Draining -> Finished
//	            any non-terminal state -> Failed
//
// The mixer is the only writer of State. The pipeline task reports what it
// reached through Publish and the mixer folds that into State on its next
// tick.
package voice
