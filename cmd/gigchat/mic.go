package main

import (
	"io"
	"os"
	"sync"
)

// captureSource reads raw 16-bit mono PCM from the capture path, which is
// typically a FIFO fed by the platform's recording tool (arecord, sox).
// Frames are 100ms of audio each.
type captureSource struct {
	path      string
	frameSize int

	mu sync.Mutex
	f  *os.File
}

func newCaptureSource(path string, sampleRate int) *captureSource {
	return &captureSource{
		path:      path,
		frameSize: sampleRate / 10 * 2,
	}
}

func (s *captureSource) ReadFrame() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f == nil {
		f, err := os.Open(s.path)
		if err != nil {
			return nil, err
		}
		s.f = f
	}

	frame := make([]byte, s.frameSize)
	n, err := io.ReadFull(s.f, frame)
	if n > 0 {
		return frame[:n], nil
	}
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	return nil, err
}
