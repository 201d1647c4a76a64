// SPDX-License-Identifier: EPL-2.0

// Package audio defines the Source abstraction and the streaming
// conversions applied to it.
//
// A Source yields interleaved float32 samples in [-1, 1]:
//
//	type Source interface {
//	    SampleRate() int
//	    Channels() int
//	    ReadSamples(dst []float32) (int, error)
//	    BufSize() int
//	    Close() error
//	}
//
// ReadSamples returns whole frames. A return of 0 with io.EOF ends the
// stream; 0 with a nil error means no data is available yet. Sources that
// can restart at an arbitrary frame also implement Seeker.
//
// # Conversion
//
// ChannelMixer maps between channel counts (mono fan-out, stereo downmix,
// truncation or silence for other layouts) and Resampler changes the rate
// with cubic or linear interpolation. Convert builds the chain a Source
// needs to reach a target format:
//
//	out := audio.Convert(src, 48000, 2, audio.WithQuality(audio.QualityLinear))
//
// The Resampler tracks positions as exact integer ratios, so long streams
// do not drift. To jump within a stream, SeekTo takes an output frame and
// returns the source frame to position the source at:
//
//	if err := seeker.SeekFrame(rs.SeekTo(frame)); err != nil {
//		return err
//	}
//
// # Registry
//
// A Registry maps format names to Decoders. Lookups are case-insensitive
// and safe for concurrent use:
//
//	reg := audio.NewRegistry()
//	reg.Register("wav", wav.Decoder{})
//	src, err := reg.Decode("WAV", file)
//
// Decode failures wrap ErrDecode, and unregistered names return
// ErrUnknownFormat.
package audio
