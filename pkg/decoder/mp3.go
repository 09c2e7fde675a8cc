package decoder

import (
	"io"
	"log/slog"
	"os"

	gomp3 "github.com/hajimehoshi/go-mp3"

	"github.com/forgeflow-zz/alephone/pkg/format"
)

// MP3Decoder streams PCM out of an .mp3 file. go-mp3 always yields 16-bit
// little-endian stereo at the file's sample rate.
type MP3Decoder struct {
	logger *slog.Logger

	fileHandle *os.File
	decoder    *gomp3.Decoder
}

func NewMP3Decoder(audioFilePath string) (*MP3Decoder, error) {
	logger := slog.Default().With("audioFile", audioFilePath)

	f, err := os.Open(audioFilePath)
	if err != nil {
		logger.Error("could not open audio file", "err", err)
		return nil, err
	}

	dec, err := gomp3.NewDecoder(f)
	if err != nil {
		logger.Error("could not decode audio file", "err", err)
		f.Close()
		return nil, err
	}

	logger.Debug("loaded audio file", "sampleRate", dec.SampleRate())
	return &MP3Decoder{
		logger:     logger,
		fileHandle: f,
		decoder:    dec,
	}, nil
}

func (d *MP3Decoder) Format() format.AudioFormat {
	return format.AudioFormat{
		SampleRate: d.decoder.SampleRate(),
		Stereo:     true,
		SixteenBit: true,
	}
}

func (d *MP3Decoder) Decode(buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := d.decoder.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			break
		}
	}
	return total, nil
}

func (d *MP3Decoder) Rewind() error {
	if _, err := d.fileHandle.Seek(0, io.SeekStart); err != nil {
		return err
	}

	dec, err := gomp3.NewDecoder(d.fileHandle)
	if err != nil {
		return err
	}
	d.decoder = dec
	return nil
}

func (d *MP3Decoder) Close() error {
	return d.fileHandle.Close()
}
