package playback

import (
	"io"
	"os"
)

// Source supplies raw PCM for one track. ReadFrame fills buf with up to one
// frame of samples; io.EOF marks exhaustion.
type Source interface {
	ReadFrame(buf []byte) (int, error)
	Close() error
}

// SourceOpener resolves a track locator into a Source.
type SourceOpener func(locator string) (Source, error)

type fileSource struct {
	f *os.File
}

// OpenPCM opens a raw PCM file as a frame source.
func OpenPCM(locator string) (Source, error) {
	f, err := os.Open(locator)
	if err != nil {
		return nil, err
	}
	return &fileSource{f: f}, nil
}

func (s *fileSource) ReadFrame(buf []byte) (int, error) {
	n, err := io.ReadFull(s.f, buf)
	if err == io.ErrUnexpectedEOF {
		// Short final frame; the engine zero-pads the tail.
		return n, nil
	}
	return n, err
}

func (s *fileSource) Close() error {
	return s.f.Close()
}
