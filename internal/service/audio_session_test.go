package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakePlayer struct {
	paused int
}

func (p *fakePlayer) Pause() { p.paused++ }

func TestAudioSession_RequestPlayPausesPreviousHolder(t *testing.T) {
	session := NewAudioSession()
	a := &fakePlayer{}
	b := &fakePlayer{}
	session.Register("a", a)
	session.Register("b", b)

	session.RequestPlay("a")
	assert.Equal(t, "a", session.Current())
	assert.Zero(t, a.paused)

	session.RequestPlay("b")
	assert.Equal(t, "b", session.Current())
	assert.Equal(t, 1, a.paused, "starting b must pause a")
	assert.Zero(t, b.paused)
}

func TestAudioSession_RequestPlaySameHolderIsIdempotent(t *testing.T) {
	session := NewAudioSession()
	a := &fakePlayer{}
	session.Register("a", a)

	session.RequestPlay("a")
	session.RequestPlay("a")
	assert.Zero(t, a.paused, "re-requesting the current holder must not pause it")
}

func TestAudioSession_Release(t *testing.T) {
	session := NewAudioSession()
	session.Register("a", &fakePlayer{})

	session.RequestPlay("a")
	session.Release("a")
	assert.Empty(t, session.Current())

	// Releasing a non-holder is a no-op.
	session.RequestPlay("a")
	session.Release("b")
	assert.Equal(t, "a", session.Current())
}

func TestAudioSession_UnregisterReleasesPlayback(t *testing.T) {
	session := NewAudioSession()
	a := &fakePlayer{}
	session.Register("a", a)
	session.RequestPlay("a")

	session.Unregister("a")
	assert.Empty(t, session.Current())

	// A later request must not try to pause the removed player.
	b := &fakePlayer{}
	session.Register("b", b)
	session.RequestPlay("b")
	assert.Equal(t, "b", session.Current())
	assert.Zero(t, a.paused)
}
