// SPDX-License-Identifier: EPL-2.0

// Package mp3 decodes MP3 streams with github.com/hajimehoshi/go-mp3.
//
// go-mp3 always produces 16-bit stereo, so sources report two channels
// regardless of the file. Sources implement audio.Seeker; seeking works
// when the input is an io.ReadSeeker and fails with audio.ErrNotSeekable
// otherwise.
package mp3
