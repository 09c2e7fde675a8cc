package format

// AudioFormat describes a raw interleaved PCM stream.
//
// Eight-bit data is unsigned (0..255 centered on 128), sixteen-bit data is
// signed little-endian, matching the formats the game's sound resources and
// the playback devices actually use.
type AudioFormat struct {
	SampleRate int
	Stereo     bool
	SixteenBit bool
}

func (f AudioFormat) ChannelCount() int {
	if f.Stereo {
		return 2
	}
	return 1
}

func (f AudioFormat) BytesPerSample() int {
	if f.SixteenBit {
		return 2
	}
	return 1
}

// BytesPerFrame returns the size of one frame (one sample per channel).
func (f AudioFormat) BytesPerFrame() int {
	return f.BytesPerSample() * f.ChannelCount()
}

// FrameCount returns the number of whole frames held in buf.
func (f AudioFormat) FrameCount(buf []byte) int {
	return len(buf) / f.BytesPerFrame()
}
