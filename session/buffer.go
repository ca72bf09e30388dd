package session

import (
	"errors"
	"sync"
)

// ErrBufferFull is returned when a chunk would push the buffer past its limit
var ErrBufferFull = errors.New("audio buffer full")

// AudioBuffer accumulates a browser client's turn until end_turn.
type AudioBuffer struct {
	mu        sync.Mutex
	chunks    [][]byte
	totalSize int
	maxSize   int
}

// NewAudioBuffer creates a buffer holding at most maxSize bytes
func NewAudioBuffer(maxSize int) *AudioBuffer {
	return &AudioBuffer{maxSize: maxSize}
}

// MaxSize returns the byte limit
func (ab *AudioBuffer) MaxSize() int {
	return ab.maxSize
}

// Append adds a chunk, or returns ErrBufferFull and keeps the buffer as is
func (ab *AudioBuffer) Append(chunk []byte) error {
	ab.mu.Lock()
	defer ab.mu.Unlock()

	if ab.totalSize+len(chunk) > ab.maxSize {
		return ErrBufferFull
	}
	ab.chunks = append(ab.chunks, chunk)
	ab.totalSize += len(chunk)
	return nil
}

// Drain returns the buffered audio in arrival order with the number of
// chunks joined, and empties the buffer
func (ab *AudioBuffer) Drain() ([]byte, int) {
	ab.mu.Lock()
	defer ab.mu.Unlock()

	n := len(ab.chunks)
	if n == 0 {
		return nil, 0
	}
	out := make([]byte, 0, ab.totalSize)
	for _, chunk := range ab.chunks {
		out = append(out, chunk...)
	}
	ab.chunks, ab.totalSize = nil, 0
	return out, n
}

// Clear drops everything buffered
func (ab *AudioBuffer) Clear() {
	ab.mu.Lock()
	ab.chunks, ab.totalSize = nil, 0
	ab.mu.Unlock()
}
