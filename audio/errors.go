// SPDX-License-Identifier: EPL-2.0

package audio

import "errors"

var (
	ErrInvalidDstSize = errors.New("dst size must be multiple of channels")

	// ErrDecode marks malformed or unsupported input data.
	ErrDecode = errors.New("decode error")

	// ErrNotSeekable is returned when a seek is requested on a source that
	// does not implement Seeker.
	ErrNotSeekable = errors.New("source is not seekable")

	ErrUnknownFormat = errors.New("unknown format")

	ErrInvalidChannels = errors.New("invalid channel count")
	ErrInvalidRate     = errors.New("invalid sample rate")
)
