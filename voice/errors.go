// SPDX-License-Identifier: EPL-2.0

package voice

import "errors"

var (
	// ErrDuplicateVoice is returned when a voice with the same id is already
	// registered.
	ErrDuplicateVoice = errors.New("duplicate voice")

	// ErrLinked is returned when inserting a voice that already belongs to a
	// list.
	ErrLinked = errors.New("voice already linked")
)
