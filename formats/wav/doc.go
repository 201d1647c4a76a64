// SPDX-License-Identifier: EPL-2.0

// Package wav decodes and writes 16-bit PCM WAV files.
//
// The decoder walks the RIFF chunk list, so files carrying LIST or fact
// chunks before the audio data are accepted. WAVE_FORMAT_EXTENSIBLE headers
// are accepted when their sub-format is PCM.
//
// When the input is an io.ReadSeeker the returned source also implements
// audio.Seeker, which lets the engine seek a playing voice.
//
//	f, _ := os.Open("loop.wav")
//	src, err := wav.Decoder{}.Decode(f)
//
// The source takes ownership of f and closes it from Close.
package wav
