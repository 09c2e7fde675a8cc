package decoder

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/forgeflow-zz/alephone/pkg/format"
)

var errDecoderNotImplemented = errors.New("no decoder implemented for this file type")

// StreamDecoder is the contract between the engine and whatever produces
// music data: hand over up to len(buf) bytes of PCM per call, or signal
// exhaustion with io.EOF. Codec work stays entirely behind this interface.
type StreamDecoder interface {
	Format() format.AudioFormat

	// Decode fills buf with the next PCM bytes and returns how many were
	// produced. The end of the stream is io.EOF, possibly alongside a final
	// short count.
	Decode(buf []byte) (int, error)

	// Rewind restarts the stream from the beginning, used for looping music.
	Rewind() error

	Close() error
}

// NewFileDecoder picks a decoder from the file extension.
func NewFileDecoder(path string) (StreamDecoder, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return NewWAVDecoder(path)
	case ".mp3":
		return NewMP3Decoder(path)
	default:
		return nil, errDecoderNotImplemented
	}
}
