// SPDX-License-Identifier: EPL-2.0

package command

import (
	"fmt"

	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/voice"
)

// Kind tags a Command.
type Kind uint8

const (
	Play Kind = iota + 1
	Stop
	SetVolume
	SetPan
	Seek
)

func (k Kind) String() string {
	switch k {
	case Play:
		return "play"
	case Stop:
		return "stop"
	case SetVolume:
		return "set_volume"
	case SetPan:
		return "set_pan"
	case Seek:
		return "seek"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Command is a control intent copied by value into a Channel. Only the
// fields relevant to Kind are meaningful.
type Command struct {
	Kind   Kind
	Voice  voice.ID
	Source audio.Source // Play
	Volume float32      // Play, SetVolume
	Pan    float32      // Play, SetPan
	Frame  int64        // Seek
}

// NewPlay starts src as voice id.
func NewPlay(id voice.ID, src audio.Source, volume, pan float32) Command {
	return Command{Kind: Play, Voice: id, Source: src, Volume: volume, Pan: pan}
}

func NewStop(id voice.ID) Command {
	return Command{Kind: Stop, Voice: id}
}

func NewSetVolume(id voice.ID, volume float32) Command {
	return Command{Kind: SetVolume, Voice: id, Volume: volume}
}

func NewSetPan(id voice.ID, pan float32) Command {
	return Command{Kind: SetPan, Voice: id, Pan: pan}
}

// NewSeek moves voice id to frame, counted at the engine's internal rate.
func NewSeek(id voice.ID, frame int64) Command {
	return Command{Kind: Seek, Voice: id, Frame: frame}
}
