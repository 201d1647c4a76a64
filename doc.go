// SPDX-License-Identifier: EPL-2.0

// Package audmix is a real-time audio mixing and playback engine.
//
// Any number of sounds, decoded from files or produced in memory, are
// played simultaneously through one output device. Each playing sound is a
// voice with its own volume, pan and seek position, controlled by id from
// any goroutine without blocking the audio callback.
//
// # Layout
//
//   - engine: the public entry point; owns the queues, voices and goroutines
//   - mixer: the per-period render step run on the device callback
//   - pipeline: decode tasks that keep each voice's buffer filled
//   - voice, ring, command: lock-free state shared between those sides
//   - audio: Source, Decoder, Registry, Resampler and channel mapping
//   - formats/...: WAV, MP3, Ogg Vorbis, AIFF and raw PCM decoders
//   - device: oto playback and a manually clocked device for tests
//   - meter, record: level metering and WAV capture of the final mix
//
// # Quick Start
//
//	e, _ := engine.New(engine.DefaultConfig())
//	defer e.Close()
//
//	p, _ := device.NewPlayer(e.Device(), e)
//	defer p.Close()
//
//	_ = e.Start(ctx)
//	p.Start()
//
//	f, _ := os.Open("rain.ogg")
//	rain, _ := e.Open("ogg", f, engine.WithVolume(0.6))
//	_ = e.SetPan(rain, -0.3)
//
// The internal bus runs at the engine's sample rate; sources at other rates
// or channel counts are converted by the decode pipeline, and the bus is
// converted again when the device format differs.
//
// # Offline Conversion
//
// The audio package can also be used on its own:
//
//	src, _ := formats.Default().Decode("mp3", file)
//	pcm, _ := audio.ReadAll16(audio.Convert(src, 8000, 1), 4096)
//	_ = wav.WriteWAV16(out, 8000, 1, pcm)
package audmix
