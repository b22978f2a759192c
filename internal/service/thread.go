package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"gigchat/internal/errors"
	"gigchat/internal/metrics"
	"gigchat/internal/models"
	"gigchat/internal/privacy"
	"gigchat/internal/security"
	"gigchat/pkg/api"
	"gigchat/pkg/upload"
)

// ThreadState is the lifecycle of an active conversation view.
type ThreadState int

const (
	ThreadLoading ThreadState = iota
	ThreadReady
	ThreadSending
)

func (s ThreadState) String() string {
	switch s {
	case ThreadLoading:
		return "loading"
	case ThreadReady:
		return "ready"
	case ThreadSending:
		return "sending"
	default:
		return "unknown"
	}
}

// Uploader is the chunked upload collaborator the composer depends on.
type Uploader interface {
	Upload(ctx context.Context, path, contentType string, progress upload.ProgressFunc) (*models.UploadResult, error)
}

// Emitter pushes a persisted message to the remote peer over the realtime
// channel.
type Emitter interface {
	EmitMessage(ctx context.Context, msg models.Message) error
}

// Draft is the composer's pending input: free text, at most one attached
// file, and at most one recorded voice clip. All three may be empty, in
// which case a send is rejected before any network call.
type Draft struct {
	Text                  string
	AttachmentPath        string
	AttachmentContentType string
	Clip                  *Clip
}

// Empty reports whether the draft has nothing to send.
func (d Draft) Empty() bool {
	return d.Text == "" && d.AttachmentPath == "" && d.Clip == nil
}

// Thread is the message history and send pipeline for one active
// conversation. Messages are append-only and chronological: the order is
// whatever order the local-send and remote-receive paths fire in.
type Thread struct {
	conversationID string
	userID         string
	otherUserID    string

	client   api.Client
	uploader Uploader
	emitter  Emitter
	presence *PresenceTracker
	logger   *logrus.Logger
	registry *metrics.Registry

	mu       sync.RWMutex
	state    ThreadState
	messages []models.Message
	draft    Draft
	lastErr  error
}

// NewThread creates a thread for one conversation. It starts in the
// Loading state; call Load to fetch history.
func NewThread(conv models.Conversation, userID string, client api.Client, uploader Uploader, emitter Emitter, presence *PresenceTracker, logger *logrus.Logger, registry *metrics.Registry) *Thread {
	return &Thread{
		conversationID: conv.ID,
		userID:         userID,
		otherUserID:    conv.OtherParticipant.ID,
		client:         client,
		uploader:       uploader,
		emitter:        emitter,
		presence:       presence,
		logger:         logger,
		registry:       registry,
		state:          ThreadLoading,
	}
}

// Load fetches the conversation's history. On failure the thread stays in
// Loading so the view keeps offering a retry.
func (t *Thread) Load(ctx context.Context) ([]models.Message, error) {
	messages, err := t.client.GetMessages(ctx, t.conversationID)
	if err != nil {
		t.mu.Lock()
		t.lastErr = err
		t.mu.Unlock()
		return nil, err
	}

	t.mu.Lock()
	t.messages = messages
	t.state = ThreadReady
	t.lastErr = nil
	result := t.snapshotLocked()
	t.mu.Unlock()

	return result, nil
}

// State returns the current lifecycle state.
func (t *Thread) State() ThreadState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Messages returns a copy of the ordered message sequence.
func (t *Thread) Messages() []models.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshotLocked()
}

// ConversationID returns the owning conversation id.
func (t *Thread) ConversationID() string {
	return t.conversationID
}

// OtherOnline reports the tracked presence of the other participant,
// defaulting to offline until an event arrives.
func (t *Thread) OtherOnline() bool {
	return t.presence.IsOnline(t.otherUserID)
}

// IsOwn reports whether a message was sent by the session user, which
// controls bubble alignment.
func (t *Thread) IsOwn(msg models.Message) bool {
	return msg.SenderID == t.userID
}

// Draft returns a copy of the pending composer input.
func (t *Thread) Draft() Draft {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.draft
}

// SetText updates the draft text.
func (t *Thread) SetText(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.draft.Text = text
}

// Attach validates and records one file attachment, replacing any previous
// one. The file is not uploaded until Send.
func (t *Thread) Attach(path, contentType string) error {
	if err := security.ValidateAttachmentPath(path); err != nil {
		return errors.Wrap(err, errors.ErrCodeValidationFailed, "invalid attachment").
			WithUserMessage("That file cannot be attached")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.draft.AttachmentPath = path
	t.draft.AttachmentContentType = contentType
	return nil
}

// ClearAttachment drops the pending attachment.
func (t *Thread) ClearAttachment() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.draft.AttachmentPath = ""
	t.draft.AttachmentContentType = ""
}

// SetClip records one voice clip, replacing any previous one.
func (t *Thread) SetClip(clip *Clip) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.draft.Clip = clip
}

// ClearClip drops the recorded voice clip.
func (t *Thread) ClearClip() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.draft.Clip = nil
}

// Append adds a message to the ordered sequence exactly once; a message
// already present (by id) is ignored. Used by both the local send path and
// remote pushes.
func (t *Thread) Append(msg models.Message) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.appendLocked(msg)
}

func (t *Thread) appendLocked(msg models.Message) bool {
	for i := range t.messages {
		if t.messages[i].ID != "" && t.messages[i].ID == msg.ID {
			return false
		}
	}
	t.messages = append(t.messages, msg)
	return true
}

// Send runs the full composer pipeline: empty-message guard, media upload,
// persistence, local append, realtime emit. Either a message with all its
// resolved media URLs is persisted or nothing is. On failure the draft is
// preserved so the user can retry without re-selecting anything.
func (t *Thread) Send(ctx context.Context, progress upload.ProgressFunc) (*models.Message, error) {
	t.mu.Lock()
	if t.state == ThreadSending {
		t.mu.Unlock()
		return nil, errors.New(errors.ErrCodeValidationFailed, "a send is already in flight")
	}
	if t.draft.Empty() {
		t.mu.Unlock()
		return nil, errors.New(errors.ErrCodeEmptyMessage, "nothing to send").
			WithUserMessage("Type a message or attach something first")
	}
	draft := t.draft
	t.state = ThreadSending
	t.mu.Unlock()

	start := time.Now()
	msg, err := t.send(ctx, draft, progress)

	t.mu.Lock()
	t.state = ThreadReady
	if err != nil {
		// Draft kept intact for manual retry
		t.lastErr = err
		t.mu.Unlock()
		return nil, err
	}
	t.appendLocked(*msg)
	kept := Draft{}
	if draft.AttachmentPath != "" && draft.Clip != nil {
		// The attachment won this send; the clip waits for the next one.
		kept.Clip = draft.Clip
	}
	t.draft = kept
	t.lastErr = nil
	t.mu.Unlock()

	t.registry.Increment(metrics.MessagesSent)
	t.registry.Observe(metrics.SendDuration, time.Since(start))

	// Best-effort push to the peer; the message is already persisted, so a
	// dead channel only costs the peer a fetch round-trip.
	if err := t.emitter.EmitMessage(ctx, *msg); err != nil {
		errors.LogWarn(t.logger, err, "Failed to emit message over realtime channel", logrus.Fields{
			"conversation_id": privacy.MaskID(t.conversationID),
		})
	}

	return msg, nil
}

func (t *Thread) send(ctx context.Context, draft Draft, progress upload.ProgressFunc) (*models.Message, error) {
	out := api.OutgoingMessage{
		SenderID:       t.userID,
		ConversationID: t.conversationID,
		Text:           draft.Text,
	}

	// One attachment per message: an attached file wins over a recorded
	// clip; the clip stays in the draft for a follow-up send.
	switch {
	case draft.AttachmentPath != "":
		result, err := t.uploader.Upload(ctx, draft.AttachmentPath, draft.AttachmentContentType, progress)
		if err != nil {
			return nil, err
		}
		out.MediaURL = result.ResolvedURL()
		out.MediaKind = models.KindFromContentType(draft.AttachmentContentType)

	case draft.Clip != nil:
		clipPath, cleanup, err := t.writeClip(draft.Clip)
		if err != nil {
			return nil, err
		}
		defer cleanup()

		result, err := t.uploader.Upload(ctx, clipPath, "audio/wav", progress)
		if err != nil {
			return nil, err
		}
		out.MediaURL = result.ResolvedURL()
		out.MediaKind = models.MediaKindAudio
	}

	return t.client.SendMessage(ctx, out)
}

// writeClip packages a recorded clip as a temporary WAV file so it goes
// through the same upload pipeline as picked files.
func (t *Thread) writeClip(clip *Clip) (string, func(), error) {
	dir := os.TempDir()
	path := filepath.Join(dir, fmt.Sprintf("voice-%d.wav", time.Now().UnixNano()))
	if err := clip.WriteFile(path); err != nil {
		return "", nil, fmt.Errorf("failed to write voice clip: %w", err)
	}
	return path, func() { os.Remove(path) }, nil
}

// LastError returns the most recent surfaced error, if any.
func (t *Thread) LastError() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastErr
}

func (t *Thread) snapshotLocked() []models.Message {
	out := make([]models.Message, len(t.messages))
	copy(out, t.messages)
	return out
}
