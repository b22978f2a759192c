package service

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// FrameSource delivers raw PCM frames from an audio capture device.
// Implementations block until a frame is available and return io.EOF when
// the device stops producing.
type FrameSource interface {
	ReadFrame() ([]byte, error)
}

// Clip is one recorded voice message: mono 16-bit PCM accumulated between
// Start and Stop, playable as a single WAV file.
type Clip struct {
	SampleRate int
	Data       []byte
}

// Duration returns the clip length in seconds.
func (c *Clip) Duration() float64 {
	if c.SampleRate <= 0 {
		return 0
	}
	return float64(len(c.Data)) / float64(c.SampleRate*2)
}

// WAV renders the clip as a complete WAV container.
func (c *Clip) WAV() []byte {
	buf := &bytes.Buffer{}
	dataLen := uint32(len(c.Data))

	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(buf, binary.LittleEndian, uint32(c.SampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(c.SampleRate*2)) // byte rate
	binary.Write(buf, binary.LittleEndian, uint16(2))              // block align
	binary.Write(buf, binary.LittleEndian, uint16(16))             // bits per sample

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, dataLen)
	buf.Write(c.Data)

	return buf.Bytes()
}

// WriteFile writes the WAV rendering to path.
func (c *Clip) WriteFile(path string) error {
	return os.WriteFile(path, c.WAV(), 0600)
}

// Recorder accumulates audio frames between explicit start and stop
// controls into a single playable clip. One recording at a time.
type Recorder struct {
	sampleRate int

	mu        sync.Mutex
	recording bool
	cancel    context.CancelFunc
	done      chan struct{}
	buf       bytes.Buffer
	readErr   error
}

// NewRecorder creates a recorder producing clips at the given sample rate.
func NewRecorder(sampleRate int) *Recorder {
	return &Recorder{sampleRate: sampleRate}
}

// Start begins accumulating frames from src until Stop is called or the
// source is exhausted.
func (r *Recorder) Start(src FrameSource) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recording {
		return fmt.Errorf("recording is already in progress")
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.recording = true
	r.cancel = cancel
	r.done = make(chan struct{})
	r.buf.Reset()
	r.readErr = nil

	go r.capture(ctx, src, r.done)
	return nil
}

func (r *Recorder) capture(ctx context.Context, src FrameSource, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		frame, err := src.ReadFrame()
		// A frame surfacing after Stop gave up on this capture must not
		// leak into the next recording's buffer.
		if ctx.Err() != nil {
			return
		}
		if len(frame) > 0 {
			r.mu.Lock()
			r.buf.Write(frame)
			r.mu.Unlock()
		}
		if err != nil {
			if err != io.EOF {
				r.mu.Lock()
				r.readErr = err
				r.mu.Unlock()
			}
			return
		}
	}
}

// Recording reports whether a capture is in progress.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// stopFlushTimeout bounds how long Stop waits for the in-flight ReadFrame
// to return. A capture source that stalls without delivering EOF (a quiet
// FIFO) must not wedge the recorder.
const stopFlushTimeout = time.Second

// Stop ends the capture and returns the accumulated clip. An empty capture
// yields a nil clip.
func (r *Recorder) Stop() (*Clip, error) {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return nil, fmt.Errorf("no recording in progress")
	}
	cancel := r.cancel
	done := r.done
	r.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-time.After(stopFlushTimeout):
		// The source is stalled mid-read; the canceled context makes the
		// capture goroutine drop whatever it eventually returns.
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.recording = false

	if r.readErr != nil {
		return nil, fmt.Errorf("capture failed: %w", r.readErr)
	}
	if r.buf.Len() == 0 {
		return nil, nil
	}

	data := make([]byte, r.buf.Len())
	copy(data, r.buf.Bytes())
	return &Clip{SampleRate: r.sampleRate, Data: data}, nil
}
