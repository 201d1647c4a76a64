// SPDX-License-Identifier: EPL-2.0

// Package command defines the control intents accepted by the mixer and the
// lock-free channel that carries them.
//
//	ch := command.NewChannel(256)
//	if err := ch.Send(command.NewSetVolume(id, 0.5)); errors.Is(err, command.ErrQueueFull) {
//	    // retry later or drop
//	}
//
// Send never blocks. The mixer drains at most a fixed batch per tick with
// TryRecvBatch.
package command
