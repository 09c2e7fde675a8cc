package format

import (
	"encoding/binary"

	"github.com/oov/audio/resampler"
)

const (
	// To avoid reallocating for every chunk, reuse buffers with "enough size".
	// One scheduler turn converts at most one staging buffer of data; 48000Hz
	// stereo at 16 bit with generous staging sizes stays well under 2**15 samples.
	bufferSize int = 32768

	resampleQuality = 10
)

type conversionFunc func(samples []int16) []int16

// Converter rewrites PCM data from a source format into a sink format.
//
// The conversion chain is built once at construction from the format pair:
// bit-depth normalization, mono/stereo conversion, resampling (with an
// optional pitch shift folded into the input rate) and stereo gain staging
// for panned sources. A converter is stateful because the resampler carries
// filter history between chunks, so use one converter per stream and feed it
// chunks in playback order.
//
// Converters are not safe for concurrent use.
type Converter struct {
	source AudioFormat
	sink   AudioFormat
	pitch  float64

	gainLeft  float32
	gainRight float32

	conversions []conversionFunc
	identity    bool

	samples []int16
	out     []byte
}

// NewConverter builds a converter from source into sink at normal pitch.
func NewConverter(source AudioFormat, sink AudioFormat) *Converter {
	return NewPitchedConverter(source, sink, 1.0)
}

// NewPitchedConverter builds a converter that additionally shifts pitch by
// resampling, treating the source as if it were recorded at rate*pitch.
func NewPitchedConverter(source AudioFormat, sink AudioFormat, pitch float64) *Converter {
	if pitch <= 0 {
		pitch = 1.0
	}

	c := &Converter{
		source:    source,
		sink:      sink,
		pitch:     pitch,
		gainLeft:  1,
		gainRight: 1,
	}

	if source.Stereo && !sink.Stereo {
		c.conversions = append(c.conversions, stereoToMono())
	}
	if !source.Stereo && sink.Stereo {
		c.conversions = append(c.conversions, monoToStereo())
	}
	if c.effectiveSourceRate() != sink.SampleRate {
		c.conversions = append(c.conversions, newResampleFunction(c.effectiveSourceRate(), sink.SampleRate, sink.ChannelCount()))
	}

	c.identity = len(c.conversions) == 0 && source.SixteenBit == sink.SixteenBit
	return c
}

// SetStereoGains stages per-channel gains, used to bake stereo panning into
// the converted data. Only meaningful for a stereo sink; for a mono sink the
// two gains are averaged.
func (c *Converter) SetStereoGains(left float32, right float32) {
	c.gainLeft = left
	c.gainRight = right
	if left != 1 || right != 1 {
		c.identity = false
	}
}

func (c *Converter) effectiveSourceRate() int {
	return int(float64(c.source.SampleRate)*c.pitch + 0.5)
}

// SourceBytesFor returns how many source bytes should be fed to Convert so
// the result does not exceed sinkBytes. The estimate rounds down, so the
// converted chunk may come out slightly short of sinkBytes; it never overruns.
func (c *Converter) SourceBytesFor(sinkBytes int) int {
	sinkFrames := sinkBytes / c.sink.BytesPerFrame()
	srcFrames := sinkFrames
	if c.effectiveSourceRate() != c.sink.SampleRate {
		srcFrames = sinkFrames * c.effectiveSourceRate() / c.sink.SampleRate
	}
	if srcFrames < 1 {
		srcFrames = 1
	}
	return srcFrames * c.source.BytesPerFrame()
}

// Convert rewrites one chunk of source-format PCM into sink-format PCM.
// The returned slice is reused between calls; consume it before converting again.
func (c *Converter) Convert(src []byte) []byte {
	if c.identity {
		return src
	}

	samples := c.decodeSource(src)
	for _, f := range c.conversions {
		samples = f(samples)
	}
	samples = c.applyGains(samples)
	return c.encodeSink(samples)
}

func (c *Converter) decodeSource(src []byte) []int16 {
	if c.source.SixteenBit {
		n := len(src) / 2
		c.samples = growInt16(c.samples, n)
		for i := 0; i < n; i++ {
			c.samples[i] = int16(binary.LittleEndian.Uint16(src[2*i:]))
		}
		return c.samples[:n]
	}

	// Eight-bit game sounds are unsigned, centered on 128.
	c.samples = growInt16(c.samples, len(src))
	for i, v := range src {
		c.samples[i] = (int16(v) - 128) << 8
	}
	return c.samples[:len(src)]
}

func (c *Converter) applyGains(samples []int16) []int16 {
	if c.gainLeft == 1 && c.gainRight == 1 {
		return samples
	}

	if c.sink.Stereo {
		for i := 0; i+1 < len(samples); i += 2 {
			samples[i] = scaleSample(samples[i], c.gainLeft)
			samples[i+1] = scaleSample(samples[i+1], c.gainRight)
		}
		return samples
	}

	gain := (c.gainLeft + c.gainRight) / 2
	for i := range samples {
		samples[i] = scaleSample(samples[i], gain)
	}
	return samples
}

func (c *Converter) encodeSink(samples []int16) []byte {
	if c.sink.SixteenBit {
		c.out = growBytes(c.out, 2*len(samples))
		for i, v := range samples {
			binary.LittleEndian.PutUint16(c.out[2*i:], uint16(v))
		}
		return c.out[:2*len(samples)]
	}

	c.out = growBytes(c.out, len(samples))
	for i, v := range samples {
		c.out[i] = byte((v >> 8) + 128)
	}
	return c.out[:len(samples)]
}

// --------------------------------------------------------------------------------

func monoToStereo() conversionFunc {
	buf := make([]int16, bufferSize)
	return func(samples []int16) []int16 {
		for i, v := range samples {
			buf[2*i] = v
			buf[2*i+1] = v
		}
		return buf[:2*len(samples)]
	}
}

func stereoToMono() conversionFunc {
	buf := make([]int16, bufferSize)
	return func(samples []int16) []int16 {
		if len(samples)%2 == 1 {
			samples = samples[:len(samples)-1]
		}

		for i := 0; i < len(samples)/2; i++ {
			buf[i] = int16((int32(samples[2*i]) + int32(samples[2*i+1])) / 2)
		}
		return buf[:len(samples)/2]
	}
}

func newResampleFunction(sourceRate int, sinkRate int, numChannels int) conversionFunc {
	if numChannels == 1 {
		r := resampler.New(1, sourceRate, sinkRate, resampleQuality)
		in := make([]float32, bufferSize)
		out := make([]float32, bufferSize)
		buf := make([]int16, bufferSize)
		return func(samples []int16) []int16 {
			for i, v := range samples {
				in[i] = float32(v) / 32768.0
			}
			_, written := r.ProcessFloat32(0, in[:len(samples)], out)
			for i := 0; i < written; i++ {
				buf[i] = floatToSample(out[i])
			}
			return buf[:written]
		}
	}

	r := resampler.New(2, sourceRate, sinkRate, resampleQuality)
	leftIn := make([]float32, bufferSize/2)
	rightIn := make([]float32, bufferSize/2)
	leftOut := make([]float32, bufferSize/2)
	rightOut := make([]float32, bufferSize/2)
	buf := make([]int16, bufferSize)
	return func(samples []int16) []int16 {
		if len(samples)%2 == 1 {
			samples = samples[:len(samples)-1]
		}

		// The resampler wants planar data, samples are interleaved.
		for i := 0; i < len(samples)/2; i++ {
			leftIn[i] = float32(samples[2*i]) / 32768.0
			rightIn[i] = float32(samples[2*i+1]) / 32768.0
		}

		_, written := r.ProcessFloat32(0, leftIn[:len(samples)/2], leftOut)
		r.ProcessFloat32(1, rightIn[:len(samples)/2], rightOut)

		for i := 0; i < written; i++ {
			buf[2*i] = floatToSample(leftOut[i])
			buf[2*i+1] = floatToSample(rightOut[i])
		}
		return buf[:2*written]
	}
}

// --------------------------------------------------------------------------------

func scaleSample(v int16, gain float32) int16 {
	return clampSample(int32(float32(v) * gain))
}

func floatToSample(v float32) int16 {
	return clampSample(int32(v * 32767.0))
}

func clampSample(v int32) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

func growInt16(buf []int16, n int) []int16 {
	if cap(buf) < n {
		return make([]int16, n)
	}
	return buf[:n]
}

func growBytes(buf []byte, n int) []byte {
	if cap(buf) < n {
		return make([]byte, n)
	}
	return buf[:n]
}
