package service

import (
	"sync"
)

// Player is the control surface an audio renderer exposes to the session.
type Player interface {
	Pause()
}

// AudioSession enforces the single-globally-playing-audio invariant: at
// most one registered player holds playback at a time, and requesting play
// transfers ownership by pausing the previous holder. This replaces the
// ambient shared "currently playing" variable with an explicit protocol.
type AudioSession struct {
	mu      sync.Mutex
	players map[string]Player
	current string
}

// NewAudioSession creates the session-wide audio coordinator. Constructed
// once at application scope.
func NewAudioSession() *AudioSession {
	return &AudioSession{
		players: make(map[string]Player),
	}
}

// Register adds a player instance under its id.
func (s *AudioSession) Register(id string, p Player) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[id] = p
}

// Unregister removes a player; if it held playback, playback is released.
func (s *AudioSession) Unregister(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.players, id)
	if s.current == id {
		s.current = ""
	}
}

// RequestPlay transfers playback ownership to id, pausing the previous
// holder if it was a different player.
func (s *AudioSession) RequestPlay(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != "" && s.current != id {
		if prev, ok := s.players[s.current]; ok {
			prev.Pause()
		}
	}
	s.current = id
}

// Release gives up playback ownership if id currently holds it.
func (s *AudioSession) Release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == id {
		s.current = ""
	}
}

// Current returns the id of the player holding playback, if any.
func (s *AudioSession) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}
