package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"gigchat/internal/models"
	"gigchat/internal/render"
	"gigchat/internal/service"
	"gigchat/pkg/upload"
)

type conversationsLoadedMsg struct {
	conversations []models.Conversation
}

type conversationsFailedMsg struct {
	err error
}

type historyLoadedMsg struct {
	conversationID string
	messages       []models.Message
}

type historyFailedMsg struct {
	conversationID string
	err            error
}

type sentMsg struct {
	message models.Message
	clipPCM []byte
}

type sendFailedMsg struct {
	err error
}

type uploadProgressMsg struct {
	sent  int64
	total int64
}

type realtimeMsg struct {
	event service.Event
}

type clipRecordedMsg struct {
	clip *service.Clip
}

type clipLoadedMsg struct {
	messageID string
	pcm       []byte
}

type clipLoadFailedMsg struct {
	err error
}

type recordFailedMsg struct {
	err error
}

// loadConversationsCmd fetches the list; failures surface a manual retry.
func loadConversationsCmd(ctx context.Context, list *service.ListService) tea.Cmd {
	return func() tea.Msg {
		conversations, err := list.Load(ctx)
		if err != nil {
			return conversationsFailedMsg{err: err}
		}
		return conversationsLoadedMsg{conversations: conversations}
	}
}

func loadHistoryCmd(ctx context.Context, thread *service.Thread) tea.Cmd {
	return func() tea.Msg {
		messages, err := thread.Load(ctx)
		if err != nil {
			return historyFailedMsg{conversationID: thread.ConversationID(), err: err}
		}
		return historyLoadedMsg{conversationID: thread.ConversationID(), messages: messages}
	}
}

// sendDraftCmd runs the composer pipeline off the update loop, streaming
// upload progress through progressCh. When the draft's voice clip was
// sent, its samples ride along so the waveform renders without a fetch.
func sendDraftCmd(ctx context.Context, thread *service.Thread, progressCh chan<- uploadProgressMsg) tea.Cmd {
	return func() tea.Msg {
		draft := thread.Draft()
		progress := upload.ProgressFunc(func(sent, total int64) {
			select {
			case progressCh <- uploadProgressMsg{sent: sent, total: total}:
			default:
			}
		})

		msg, err := thread.Send(ctx, progress)
		if err != nil {
			return sendFailedMsg{err: err}
		}

		out := sentMsg{message: *msg}
		if msg.MediaKind == models.MediaKindAudio && draft.Clip != nil {
			out.clipPCM = draft.Clip.Data
		}
		return out
	}
}

// loadClipCmd fetches a WAV voice message so its waveform can be drawn in
// place of the generic playback bar.
func loadClipCmd(ctx context.Context, fetcher MediaFetcher, msg models.Message) tea.Cmd {
	return func() tea.Msg {
		data, err := fetcher.Fetch(ctx, msg.MediaURL)
		if err != nil {
			return clipLoadFailedMsg{err: err}
		}
		return clipLoadedMsg{messageID: msg.ID, pcm: render.PCMFromWAV(data)}
	}
}

type channelReconnectedMsg struct{}

type reconnectFailedMsg struct {
	err error
}

// reconnectChannelCmd re-dials the realtime channel after a drop. A no-op
// while the channel is still up, so the list retry key can always issue it.
func reconnectChannelCmd(ctx context.Context, conn *service.ConnectionManager) tea.Cmd {
	return func() tea.Msg {
		if conn.Connected() {
			return nil
		}
		if err := conn.Reconnect(ctx); err != nil {
			return reconnectFailedMsg{err: err}
		}
		return channelReconnectedMsg{}
	}
}

// waitRealtimeCmd blocks on the connection manager's event stream. The
// update loop re-issues it after every delivery.
func waitRealtimeCmd(events <-chan service.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return nil
		}
		return realtimeMsg{event: event}
	}
}

func waitProgressCmd(progressCh <-chan uploadProgressMsg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-progressCh
		if !ok {
			return nil
		}
		return msg
	}
}

// stopRecordingCmd finalizes the in-flight capture into a single clip.
func stopRecordingCmd(recorder *service.Recorder) tea.Cmd {
	return func() tea.Msg {
		clip, err := recorder.Stop()
		if err != nil {
			return recordFailedMsg{err: err}
		}
		return clipRecordedMsg{clip: clip}
	}
}
