// SPDX-License-Identifier: EPL-2.0

// Command audconvert decodes an audio file and writes it as 16-bit PCM WAV
// at the requested rate and channel count.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/formats"
	"github.com/ik5/audmix/formats/wav"
)

func main() {
	os.Exit(run())
}

func run() int {
	rate := flag.Int("rate", 8000, "output sample rate in Hz")
	channels := flag.Int("channels", 1, "output channel count")
	quality := flag.String("quality", "cubic", "resampler quality: cubic or linear")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: audconvert [flags] <input> <output.wav>\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 2 {
		flag.Usage()
		return 2
	}

	q, err := audio.ParseQuality(*quality)
	if err != nil {
		fmt.Fprintf(os.Stderr, "audconvert: %v\n", err)
		return 2
	}

	if err := convert(flag.Arg(0), flag.Arg(1), *rate, *channels, q); err != nil {
		fmt.Fprintf(os.Stderr, "audconvert: %v\n", err)
		return 1
	}
	return 0
}

func convert(inPath, outPath string, rate, channels int, q audio.Quality) error {
	if rate <= 0 || channels <= 0 {
		return fmt.Errorf("invalid output format %d Hz x %d", rate, channels)
	}

	in, err := os.Open(inPath)
	if err != nil {
		return err
	}

	src, err := formats.Default().Decode(strings.TrimPrefix(filepath.Ext(inPath), "."), in)
	if err != nil {
		_ = in.Close()
		return err
	}
	defer src.Close()

	slog.Debug("decoding", "input", inPath, "sample_rate", src.SampleRate(), "channels", src.Channels())

	pcm, err := audio.ReadAll16(audio.Convert(src, rate, channels, audio.WithQuality(q)), 4096)
	if err != nil {
		return err
	}

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	if err := wav.WriteWAV16(out, rate, channels, pcm); err != nil {
		return errors.Join(err, out.Close())
	}
	if err := out.Close(); err != nil {
		return err
	}

	fmt.Printf("wrote %s: %d frames at %d Hz x %d\n", outPath, len(pcm)/channels, rate, channels)
	return nil
}
