// SPDX-License-Identifier: EPL-2.0

package mp3_test

import (
	"fmt"
	"strings"

	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/formats/mp3"
)

func Example() {
	reg := audio.NewRegistry()
	reg.Register("mp3", mp3.Decoder{})

	_, err := reg.Decode("MP3", strings.NewReader("not an mp3 stream"))
	fmt.Println(err != nil)
	// Output: true
}
