// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"errors"

	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/command"
	"github.com/ik5/audmix/device"
	"github.com/ik5/audmix/mixer"
)

var (
	ErrClosed       = errors.New("engine closed")
	ErrStarted      = errors.New("engine already started")
	ErrNilSource    = errors.New("nil source")
	ErrInvalidFrame = errors.New("invalid frame: must not be negative")

	// ErrRecorderFormat is returned when a recorder does not match the
	// device format.
	ErrRecorderFormat = errors.New("recorder format does not match device")

	// ErrQueueFull means the command queue is full; the caller keeps
	// ownership of any Source it passed.
	ErrQueueFull = command.ErrQueueFull

	ErrUnknownFormat = audio.ErrUnknownFormat
	ErrDevice        = device.ErrDevice

	// ErrPoolExhausted is logged for a voice that was dropped because every
	// pooled voice was busy.
	ErrPoolExhausted = mixer.ErrPoolExhausted
)
