package h2

import "sync"

// Streams is the connection's live stream registry, keyed by stream ID.
// (The teacher keeps a sorted slice searched with sort.Search; a
// connection here can hold SETTINGS_MAX_CONCURRENT_STREAMS entries at
// once with churn from both directions, so a map trades the slice's
// compactness for O(1) Get/Del under that churn.)
type Streams struct {
	mu   sync.Mutex
	byID map[uint32]*Stream
}

func NewStreams() *Streams {
	return &Streams{byID: make(map[uint32]*Stream)}
}

func (s *Streams) Insert(strm *Stream) {
	s.mu.Lock()
	s.byID[strm.id] = strm
	s.mu.Unlock()
}

func (s *Streams) Get(id uint32) *Stream {
	s.mu.Lock()
	strm := s.byID[id]
	s.mu.Unlock()
	return strm
}

func (s *Streams) Del(id uint32) *Stream {
	s.mu.Lock()
	strm := s.byID[id]
	delete(s.byID, id)
	s.mu.Unlock()
	return strm
}

func (s *Streams) Len() int {
	s.mu.Lock()
	n := len(s.byID)
	s.mu.Unlock()
	return n
}

// Open counts streams not yet Closed, the figure compared against
// SETTINGS_MAX_CONCURRENT_STREAMS for admission control.
func (s *Streams) Open() int {
	s.mu.Lock()
	n := 0
	for _, strm := range s.byID {
		if !strm.IsClosed() {
			n++
		}
	}
	s.mu.Unlock()
	return n
}

// Each visits every live stream; fn must not call back into Streams.
func (s *Streams) Each(fn func(*Stream)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, strm := range s.byID {
		fn(strm)
	}
}
