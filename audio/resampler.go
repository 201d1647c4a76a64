// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/ik5/audmix/utils"
)

// Quality selects the interpolation kernel used by a Resampler.
type Quality int

const (
	// QualityLinear interpolates between two neighbouring frames.
	QualityLinear Quality = iota
	// QualityCubic uses a four-point Catmull-Rom spline.
	QualityCubic
)

func (q Quality) String() string {
	switch q {
	case QualityLinear:
		return "linear"
	case QualityCubic:
		return "cubic"
	default:
		return fmt.Sprintf("Quality(%d)", int(q))
	}
}

// ParseQuality maps "linear" or "cubic" to a Quality.
func ParseQuality(s string) (Quality, error) {
	switch strings.ToLower(s) {
	case "linear":
		return QualityLinear, nil
	case "cubic", "":
		return QualityCubic, nil
	default:
		return QualityCubic, fmt.Errorf("unknown resampler quality %q", s)
	}
}

// maxStalls bounds how many empty reads in a row a Resampler tolerates from
// its source before returning what it has.
const maxStalls = 4

// ResamplerOption configures a Resampler.
type ResamplerOption func(*Resampler)

// WithQuality sets the interpolation kernel. The default is QualityCubic.
func WithQuality(q Quality) ResamplerOption {
	return func(r *Resampler) { r.quality = q }
}

// WithChunkFrames sets how many source frames are pulled per read.
func WithChunkFrames(n int) ResamplerOption {
	return func(r *Resampler) {
		if n > 0 {
			r.chunkFrames = n
		}
	}
}

// Resampler streams from src to target sample rate.
// Works on interleaved samples; preserves channel count.
// Output is a pure function of the input samples and the rate ratio, so two
// resamplers fed the same data produce identical output.
// Includes basic anti-aliasing filtering when downsampling.
type Resampler struct {
	src      Source
	srcRate  uint64
	dstRate  int
	channels int
	quality  Quality

	// Four-frame window, hist[k*channels:] is frame t-1, t0, t+1, t+2.
	// Output is interpolated between t0 and t+1.
	hist      []float32
	next      []float32
	realAhead int // real (non-padding) frames among t0, t+1, t+2
	primed    bool
	needPrev  bool // next prime reads a real t-1 before t0
	havePrev  bool

	// Output frame k sits at source position k*srcRate/dstRate, computed in
	// integers so long streams do not drift.
	outCount uint64
	base     uint64 // source index of t0

	chunkFrames int
	in          []float32
	inPos       int
	inLen       int
	srcEOF      bool
	err         error

	useFilter   bool
	filterAlpha float32
	filterState []float32
	filterInit  bool
}

func NewResampler(src Source, dstRate int, opts ...ResamplerOption) *Resampler {
	channels := src.Channels()

	r := &Resampler{
		src:         src,
		srcRate:     uint64(src.SampleRate()),
		dstRate:     dstRate,
		channels:    channels,
		quality:     QualityCubic,
		chunkFrames: 1024,
		hist:        make([]float32, 4*channels),
		next:        make([]float32, channels),
		filterState: make([]float32, channels),
	}

	// One-pole low-pass when downsampling.
	if src.SampleRate() > dstRate {
		r.useFilter = true
		r.filterAlpha = 0.5
	}

	for _, opt := range opts {
		opt(r)
	}
	r.in = make([]float32, r.chunkFrames*channels)

	return r
}

func (r *Resampler) SampleRate() int { return r.dstRate }
func (r *Resampler) Channels() int   { return r.channels }
func (r *Resampler) BufSize() int    { return r.src.BufSize() }

func (r *Resampler) Close() error {
	err := r.src.Close()
	if err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}

// Reset drops all buffered input and interpolation state and restarts the
// output at frame 0. Call it after rewinding the underlying source.
func (r *Resampler) Reset() {
	r.SeekTo(0)
}

// SeekTo prepares r to continue the output stream at outFrame, producing the
// same samples a fresh Resampler would produce from that frame on. It returns
// the source frame the underlying source must be positioned at before the
// next read. The one-pole filter used when downsampling restarts there, so
// downsampled output converges on the fresh stream rather than matching it.
func (r *Resampler) SeekTo(outFrame uint64) int64 {
	if r.srcRate > 0 {
		// Keeps outCount*srcRate inside int64.
		outFrame = min(outFrame, math.MaxInt64/r.srcRate)
	}

	r.primed = false
	r.realAhead = 0
	r.outCount = outFrame
	r.base = outFrame * r.srcRate / uint64(r.dstRate)
	r.needPrev, r.havePrev = r.base > 0, false
	r.inPos, r.inLen = 0, 0
	r.srcEOF = false
	r.err = nil
	r.filterInit = false
	clear(r.hist)
	clear(r.filterState)

	if r.needPrev {
		return int64(r.base - 1)
	}
	return 0
}

// readFrame copies the next source frame into dst. It returns false when no
// frame is available, either because the source ended, failed or stalled.
func (r *Resampler) readFrame(dst []float32) bool {
	stalls := 0
	for r.inPos+r.channels > r.inLen {
		if r.srcEOF || r.err != nil || stalls >= maxStalls {
			return false
		}

		n, err := r.src.ReadSamples(r.in)
		n -= n % r.channels
		r.inPos, r.inLen = 0, n

		switch {
		case err == io.EOF:
			r.srcEOF = true
		case err != nil:
			r.err = fmt.Errorf("%w", err)
		case n == 0:
			stalls++
		}
	}

	copy(dst, r.in[r.inPos:r.inPos+r.channels])
	r.inPos += r.channels

	if r.useFilter {
		if !r.filterInit {
			copy(r.filterState, dst)
			r.filterInit = true
		}
		for c := range r.channels {
			// y[n] = alpha * x[n] + (1-alpha) * y[n-1]
			dst[c] = r.filterAlpha*dst[c] + (1-r.filterAlpha)*r.filterState[c]
			r.filterState[c] = dst[c]
		}
	}

	return true
}

func (r *Resampler) frame(k int) []float32 {
	return r.hist[k*r.channels : (k+1)*r.channels]
}

// prime loads the window around base. Frame t-1 is read from the source
// after a seek and duplicates t0 at the start of the stream. Missing frames
// past the end duplicate the last real one.
func (r *Resampler) prime() bool {
	if r.needPrev {
		if !r.readFrame(r.frame(0)) {
			return false
		}
		r.needPrev, r.havePrev = false, true
	}

	if !r.readFrame(r.frame(1)) {
		return false
	}
	if !r.havePrev {
		copy(r.frame(0), r.frame(1))
	}
	r.realAhead = 1

	for k := 2; k < 4; k++ {
		if r.readFrame(r.frame(k)) {
			r.realAhead++
		} else {
			copy(r.frame(k), r.frame(k-1))
		}
	}

	r.primed = true
	return true
}

// advance shifts the window one frame forward. It returns false, leaving
// the window untouched, when the source stalled without ending.
func (r *Resampler) advance() bool {
	ok := r.readFrame(r.next)
	if !ok && !r.srcEOF && r.err == nil {
		return false
	}

	copy(r.hist, r.hist[r.channels:])
	r.realAhead--
	if ok {
		copy(r.frame(3), r.next)
		r.realAhead++
	} else {
		copy(r.frame(3), r.frame(2))
	}

	return true
}

// ReadSamples produces dst samples at the target rate.
// dst length should be a multiple of the channel count.
func (r *Resampler) ReadSamples(dst []float32) (int, error) {
	if len(dst)%r.channels != 0 {
		return 0, ErrInvalidDstSize
	}

	if !r.primed && !r.prime() {
		return 0, r.endErr()
	}

	framesNeeded := len(dst) / r.channels
	written := 0

	dst64 := uint64(r.dstRate)

	for written < framesNeeded {
		num := r.outCount * r.srcRate
		idx := num / dst64
		for r.base < idx {
			if r.realAhead < 1 {
				break
			}
			if !r.advance() {
				return written * r.channels, nil
			}
			r.base++
		}

		if r.realAhead < 1 {
			break
		}

		alpha := float32(float64(num%dst64) / float64(dst64))
		out := dst[written*r.channels : (written+1)*r.channels]
		y0, y1, y2, y3 := r.frame(0), r.frame(1), r.frame(2), r.frame(3)

		switch r.quality {
		case QualityLinear:
			for c := range r.channels {
				out[c] = utils.LinearInterpolate(y1[c], y2[c], alpha)
			}
		default:
			for c := range r.channels {
				out[c] = utils.CubicInterpolate(y0[c], y1[c], y2[c], y3[c], alpha)
			}
		}

		written++
		r.outCount++
	}

	if written < framesNeeded {
		return written * r.channels, r.endErr()
	}

	return written * r.channels, nil
}

func (r *Resampler) endErr() error {
	if r.err != nil {
		return r.err
	}
	if r.srcEOF {
		return io.EOF
	}
	return nil
}
