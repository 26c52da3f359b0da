package playback

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Format fixes the frame cadence shared by every room. Frames carry 16-bit
// interleaved PCM.
type Format struct {
	SampleRate    int
	Channels      int
	FrameDuration time.Duration
}

// SamplesPerFrame returns the per-channel sample count of one frame.
func (f Format) SamplesPerFrame() int {
	return int(int64(f.SampleRate) * int64(f.FrameDuration) / int64(time.Second))
}

// FrameBytes returns the byte size of one frame.
func (f Format) FrameBytes() int {
	return f.SamplesPerFrame() * f.Channels * 2
}

// State is the playback state machine position.
type State int

const (
	StateStopped State = iota
	StatePlaying
	StatePaused
)

func (s State) String() string {
	switch s {
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "stopped"
	}
}

// Frame is one produced media frame. Position is the sample position of the
// first sample; it advances by exactly Samples for every frame emitted,
// silence included.
type Frame struct {
	Room     string
	Position uint64
	Samples  int
	Data     []byte
}

// Sink receives every produced frame. It must not block; fanout decoupling
// is the sink's responsibility.
type Sink func(frame Frame)

// Engine owns one shared playback session per room. All of a room's
// subscribers ride the single producer; nothing is duplicated per subscriber.
type Engine struct {
	format Format
	open   SourceOpener
	sink   Sink
	log    *zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewEngine builds the playback engine.
func NewEngine(format Format, open SourceOpener, sink Sink, logger *zerolog.Logger) *Engine {
	return &Engine{
		format:   format,
		open:     open,
		sink:     sink,
		log:      logger,
		sessions: make(map[string]*Session),
	}
}

// Session returns the room's playback session, creating and starting its
// producer on first use.
func (e *Engine) Session(roomID string) *Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.sessions[roomID]; ok {
		return s
	}
	s := newSession(roomID, e.format, e.open, e.sink, e.log)
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.run(ctx)
	e.sessions[roomID] = s
	return s
}

// Get returns the room's session without creating one.
func (e *Engine) Get(roomID string) (*Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[roomID]
	return s, ok
}

// Close stops and discards a room's session. Called when the room closes.
func (e *Engine) Close(roomID string) {
	e.mu.Lock()
	s, ok := e.sessions[roomID]
	delete(e.sessions, roomID)
	e.mu.Unlock()
	if ok {
		s.cancel()
	}
}

// Shutdown stops every session.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	sessions := make([]*Session, 0, len(e.sessions))
	for _, s := range e.sessions {
		sessions = append(sessions, s)
	}
	e.sessions = make(map[string]*Session)
	e.mu.Unlock()
	for _, s := range sessions {
		s.cancel()
	}
}

// Session is the single shared frame producer for one room. Only its own
// producer goroutine advances it; subscribers receive copies of frames.
type Session struct {
	room   string
	format Format
	open   SourceOpener
	sink   Sink
	log    *zerolog.Logger
	cancel context.CancelFunc

	mu        sync.Mutex
	state     State
	track     Track
	hasTrack  bool
	src       Source
	pos       uint64
	exhausted bool

	errLimiter *rate.Limiter
}

func newSession(roomID string, format Format, open SourceOpener, sink Sink, logger *zerolog.Logger) *Session {
	return &Session{
		room:   roomID,
		format: format,
		open:   open,
		sink:   sink,
		log:    logger,
		// One decode-error log line per 5s keeps a bad source from storming the log.
		errLimiter: rate.NewLimiter(rate.Every(5*time.Second), 1),
	}
}

// Load makes track current and transitions to stopped, tearing down the
// previous source. The sample position restarts for the new track session.
func (s *Session) Load(track Track) error {
	src, err := s.open(track.Locator)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.src != nil {
		_ = s.src.Close()
	}
	s.src = src
	s.track = track
	s.hasTrack = true
	s.state = StateStopped
	s.pos = 0
	s.exhausted = false
	s.mu.Unlock()

	s.log.Info().Str("room_id", s.room).Str("track", track.Name).Msg("track loaded")
	return nil
}

// Play begins or resumes frame production. No-op while already playing.
func (s *Session) Play() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasTrack && s.state != StatePlaying {
		s.state = StatePlaying
	}
	return s.state
}

// Pause substitutes silence for real frames; consumers keep their cadence.
func (s *Session) Pause() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StatePlaying {
		s.state = StatePaused
	}
	return s.state
}

// Stop halts frame production entirely. The current track stays loaded.
func (s *Session) Stop() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateStopped
	return s.state
}

// State returns the current playback state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Position returns the monotonic sample-position counter.
func (s *Session) Position() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

// Track returns the current track.
func (s *Session) Track() (Track, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.track, s.hasTrack
}

func (s *Session) run(ctx context.Context) {
	ticker := time.NewTicker(s.format.FrameDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			if s.src != nil {
				_ = s.src.Close()
				s.src = nil
			}
			s.mu.Unlock()
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

// tick produces at most one frame. Silence frames are byte-for-byte the same
// size as real ones so the position counter advances uniformly.
func (s *Session) tick() {
	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		return
	}

	data := make([]byte, s.format.FrameBytes())
	if s.state == StatePlaying && s.src != nil && !s.exhausted {
		n, err := s.src.ReadFrame(data)
		switch {
		case errors.Is(err, io.EOF):
			s.exhausted = true
			s.log.Info().Str("room_id", s.room).Str("track", s.track.Name).
				Msg("source exhausted, continuing with silence")
			clear(data)
		case err != nil:
			if s.errLimiter.Allow() {
				s.log.Error().Err(err).Str("room_id", s.room).Str("track", s.track.Name).
					Msg("frame decode failed, substituting silence")
			}
			clear(data)
		case n < len(data):
			clear(data[n:])
		}
	}

	frame := Frame{
		Room:     s.room,
		Position: s.pos,
		Samples:  s.format.SamplesPerFrame(),
		Data:     data,
	}
	s.pos += uint64(frame.Samples)
	sink := s.sink
	s.mu.Unlock()

	if sink != nil {
		sink(frame)
	}
}
