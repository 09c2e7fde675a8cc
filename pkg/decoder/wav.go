package decoder

import (
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/forgeflow-zz/alephone/pkg/format"
)

// WAVDecoder streams PCM out of a .WAV file. Whatever bit depth the file
// uses, the decoded output is normalized to 16 bit.
type WAVDecoder struct {
	logger *slog.Logger
	path   string

	fileHandle *os.File
	decoder    *wav.Decoder
	fmt        format.AudioFormat
	intBuf     *goaudio.IntBuffer
}

func NewWAVDecoder(audioFilePath string) (*WAVDecoder, error) {
	logger := slog.Default().With("audioFile", audioFilePath)

	f, err := os.Open(audioFilePath)
	if err != nil {
		logger.Error("could not open audio file", "err", err)
		return nil, err
	}

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		logger.Error("could not decode audio file", "err", dec.Err())
		f.Close()
		return nil, errors.New("error while decoding audio file")
	}

	d := &WAVDecoder{
		logger:     logger,
		path:       audioFilePath,
		fileHandle: f,
		decoder:    dec,
		fmt: format.AudioFormat{
			SampleRate: int(dec.SampleRate),
			Stereo:     dec.NumChans == 2,
			SixteenBit: true,
		},
	}

	logger.Debug(
		"loaded audio file",
		"sampleRate", dec.SampleRate,
		"channels", dec.NumChans,
		"bitDepth", dec.BitDepth,
	)
	return d, nil
}

func (d *WAVDecoder) Format() format.AudioFormat {
	return d.fmt
}

func (d *WAVDecoder) Decode(buf []byte) (int, error) {
	samples := len(buf) / 2
	if samples == 0 {
		return 0, nil
	}

	if d.intBuf == nil || len(d.intBuf.Data) < samples {
		d.intBuf = &goaudio.IntBuffer{
			Format: &goaudio.Format{
				NumChannels: int(d.decoder.NumChans),
				SampleRate:  int(d.decoder.SampleRate),
			},
			Data:           make([]int, samples),
			SourceBitDepth: int(d.decoder.BitDepth),
		}
	}
	d.intBuf.Data = d.intBuf.Data[:samples]

	n, err := d.decoder.PCMBuffer(d.intBuf)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, io.EOF
	}

	shift := int(d.decoder.BitDepth) - 16
	for i := 0; i < n; i++ {
		v := d.intBuf.Data[i]
		switch {
		case shift > 0:
			v >>= shift
		case shift < 0:
			// 8-bit wav samples are unsigned.
			v = (v - 128) << 8
		}
		binary.LittleEndian.PutUint16(buf[2*i:], uint16(int16(v)))
	}
	return 2 * n, nil
}

func (d *WAVDecoder) Rewind() error {
	if _, err := d.fileHandle.Seek(0, io.SeekStart); err != nil {
		return err
	}

	dec := wav.NewDecoder(d.fileHandle)
	if !dec.IsValidFile() {
		return errors.New("error while rewinding audio file")
	}
	d.decoder = dec
	return nil
}

func (d *WAVDecoder) Close() error {
	return d.fileHandle.Close()
}
