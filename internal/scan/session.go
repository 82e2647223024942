package scan

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session ties an acquired stream to its running scan loop. It is created
// by Controller.Start and torn down by Controller.Stop.
type Session struct {
	ID          string
	StartedAt   time.Time
	DecoderKind DecoderKind

	stream  Stream
	track   Track
	decoder Decoder

	mu          sync.Mutex
	lastScanned string

	cancel context.CancelFunc
	done   chan struct{}
}

func newSession(stream Stream, dec Decoder, kind DecoderKind) *Session {
	s := &Session{
		ID:          uuid.NewString(),
		StartedAt:   time.Now(),
		DecoderKind: kind,
		stream:      stream,
		decoder:     dec,
		done:        make(chan struct{}),
	}
	if tracks := stream.VideoTracks(); len(tracks) > 0 {
		s.track = tracks[0]
	}
	return s
}

// LastScanned returns the last payload accepted by the session.
func (s *Session) LastScanned() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastScanned
}

// accept records payload unless it is empty or repeats the previous one.
func (s *Session) accept(payload string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if payload == "" || payload == s.lastScanned {
		return false
	}
	s.lastScanned = payload
	return true
}

// release stops every track of the stream.
func (s *Session) release() {
	for _, t := range s.stream.Tracks() {
		t.Stop()
	}
}
