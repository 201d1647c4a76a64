// SPDX-License-Identifier: EPL-2.0

// Package formats wires the bundled decoders into an audio.Registry.
package formats

import (
	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/formats/aiff"
	"github.com/ik5/audmix/formats/mp3"
	"github.com/ik5/audmix/formats/raw"
	"github.com/ik5/audmix/formats/vorbis"
	"github.com/ik5/audmix/formats/wav"
)

// Register adds every bundled decoder to reg. Keys are the usual file
// extensions without the dot.
func Register(reg *audio.Registry) {
	reg.Register("wav", wav.Decoder{})
	reg.Register("wave", wav.Decoder{})
	reg.Register("mp3", mp3.Decoder{})
	reg.Register("ogg", vorbis.Decoder{})
	reg.Register("vorbis", vorbis.Decoder{})
	reg.Register("aiff", aiff.Decoder{})
	reg.Register("aif", aiff.Decoder{})
	reg.Register("raw", raw.Decoder{})
	reg.Register("pcm", raw.Decoder{})
}

// Default returns a new registry holding every bundled decoder.
func Default() *audio.Registry {
	reg := audio.NewRegistry()
	Register(reg)
	return reg
}
