// SPDX-License-Identifier: EPL-2.0

// Package vorbis decodes Ogg Vorbis with github.com/jfreymuth/oggvorbis.
//
// Samples are decoded directly into the caller's buffer. Seeking requires
// the input to be an io.ReadSeeker; Ogg pages are located by granule
// position so seeks are sample accurate.
package vorbis
