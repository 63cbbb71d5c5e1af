package mocks

import (
	"context"
	"io"
	"sync"
	"time"

	"invoiceflow/internal/port"
)

// ChunkStream is a scripted port.ChunkStream. It yields Chunks in order,
// then Err (io.EOF when nil). Delay is applied before every chunk and
// honours context cancellation.
type ChunkStream struct {
	Chunks []port.Chunk
	Err    error
	Delay  time.Duration

	mu     sync.Mutex
	pos    int
	closed bool
}

func (s *ChunkStream) Next(ctx context.Context) (port.Chunk, error) {
	if s.Delay > 0 {
		select {
		case <-ctx.Done():
			return port.Chunk{}, ctx.Err()
		case <-time.After(s.Delay):
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos < len(s.Chunks) {
		c := s.Chunks[s.pos]
		s.pos++
		return c, nil
	}
	if s.Err != nil {
		return port.Chunk{}, s.Err
	}
	return port.Chunk{}, io.EOF
}

func (s *ChunkStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (s *ChunkStream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
