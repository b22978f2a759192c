package tui

import (
	"context"
	"mime"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"gigchat/internal/errors"
	"gigchat/internal/models"
	"gigchat/internal/render"
	"gigchat/internal/service"
)

type screen int

const (
	screenList screen = iota
	screenThread
)

type focusArea int

const (
	focusComposer focusArea = iota
	focusMessages
)

// DownloadTracker is the local-store subset the document renderer uses for
// its download-once affordance.
type DownloadTracker interface {
	MarkDownloaded(ctx context.Context, fileName string) error
	IsDownloaded(ctx context.Context, fileName string) (bool, error)
}

// MediaFetcher retrieves uploaded media by its remote URL. Used to pull
// WAV voice messages so their waveform can be drawn.
type MediaFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// ThreadFactory builds a Thread for a selected conversation with all of
// its collaborators wired.
type ThreadFactory func(conv models.Conversation) *service.Thread

// Model is the root bubbletea model: a conversation list screen and a
// message thread screen over the chat services.
type Model struct {
	ctx    context.Context
	logger *logrus.Logger
	userID string

	list      *service.ListService
	conn      *service.ConnectionManager
	newThread ThreadFactory
	session   *service.AudioSession
	recorder  *service.Recorder
	mic       service.FrameSource
	downloads DownloadTracker
	media     MediaFetcher

	width  int
	height int
	screen screen
	focus  focusArea

	// conversation list state
	conversations []models.Conversation
	cursor        int
	loadingList   bool
	listErr       string

	// thread state
	conv       models.Conversation
	thread     *service.Thread
	msgs       []models.Message
	msgCursor  int
	downloaded map[string]bool
	clipPCM    map[string][]byte
	threadErr  string
	statusMsg  string

	// composer state
	input      textarea.Model
	attachIn   textinput.Model
	attaching  bool
	recording  bool
	sending    bool
	uploadFrac float64
	progressCh chan uploadProgressMsg

	viewport viewport.Model
	spin     spinner.Model
	prog     progress.Model
}

// New assembles the root model.
func New(ctx context.Context, userID string, list *service.ListService, conn *service.ConnectionManager, factory ThreadFactory, session *service.AudioSession, recorder *service.Recorder, mic service.FrameSource, downloads DownloadTracker, media MediaFetcher, logger *logrus.Logger) Model {
	input := textarea.New()
	input.Placeholder = "Type a message..."
	input.CharLimit = 2000
	input.SetHeight(3)
	input.ShowLineNumbers = false
	input.Focus()

	attachIn := textinput.New()
	attachIn.Placeholder = "Path to file..."

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		ctx:         ctx,
		logger:      logger,
		userID:      userID,
		list:        list,
		conn:        conn,
		newThread:   factory,
		session:     session,
		recorder:    recorder,
		mic:         mic,
		downloads:   downloads,
		media:       media,
		screen:      screenList,
		loadingList: true,
		input:       input,
		attachIn:    attachIn,
		spin:        sp,
		prog:        progress.New(progress.WithDefaultGradient()),
		viewport:    viewport.New(80, 20),
		progressCh:  make(chan uploadProgressMsg, 16),
		downloaded:  make(map[string]bool),
		clipPCM:     make(map[string][]byte),
	}
	// Cached conversations paint immediately; the first fetch replaces them.
	m.conversations = list.LoadCached(ctx)
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		loadConversationsCmd(m.ctx, m.list),
		waitRealtimeCmd(m.conn.Events()),
		waitProgressCmd(m.progressCh),
		m.spin.Tick,
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - 9
		m.input.SetWidth(msg.Width - 4)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case conversationsLoadedMsg:
		m.loadingList = false
		m.listErr = ""
		m.conversations = msg.conversations
		if m.cursor >= len(m.conversations) {
			m.cursor = 0
		}
		return m, nil

	case conversationsFailedMsg:
		m.loadingList = false
		m.listErr = errors.GetUserMessage(msg.err)
		errors.LogError(m.logger, msg.err, "Failed to load conversations")
		return m, nil

	case historyLoadedMsg:
		if m.thread != nil && m.thread.ConversationID() == msg.conversationID {
			m.msgs = msg.messages
			m.threadErr = ""
			m.loadDownloadFlags()
			m.refreshViewport()
			return m, m.loadClipCmds()
		}
		return m, nil

	case historyFailedMsg:
		if m.thread != nil && m.thread.ConversationID() == msg.conversationID {
			m.threadErr = errors.GetUserMessage(msg.err)
		}
		return m, nil

	case sentMsg:
		m.sending = false
		m.uploadFrac = 0
		m.threadErr = ""
		m.input.Reset()
		if len(msg.clipPCM) > 0 {
			m.clipPCM[msg.message.ID] = msg.clipPCM
		}
		if m.thread != nil {
			m.msgs = m.thread.Messages()
			m.refreshViewport()
		}
		return m, nil

	case sendFailedMsg:
		m.sending = false
		m.uploadFrac = 0
		m.threadErr = errors.GetUserMessage(msg.err)
		errors.LogError(m.logger, msg.err, "Failed to send message")
		return m, nil

	case uploadProgressMsg:
		if msg.total > 0 {
			m.uploadFrac = float64(msg.sent) / float64(msg.total)
		}
		return m, waitProgressCmd(m.progressCh)

	case channelReconnectedMsg:
		m.logger.Info("Realtime channel reconnected")
		return m, nil

	case reconnectFailedMsg:
		errors.LogWarn(m.logger, msg.err, "Realtime reconnect failed")
		return m, nil

	case realtimeMsg:
		return m.handleRealtime(msg.event)

	case clipRecordedMsg:
		m.recording = false
		if m.thread != nil && msg.clip != nil {
			m.thread.SetClip(msg.clip)
		}
		return m, nil

	case clipLoadedMsg:
		if len(msg.pcm) > 0 {
			m.clipPCM[msg.messageID] = msg.pcm
			m.refreshViewport()
		}
		return m, nil

	case clipLoadFailedMsg:
		m.logger.WithError(msg.err).Debug("Failed to fetch voice clip")
		return m, nil

	case recordFailedMsg:
		m.recording = false
		m.threadErr = errors.GetUserMessage(msg.err)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleRealtime(event service.Event) (tea.Model, tea.Cmd) {
	switch event := event.(type) {
	case service.PresenceChanged:
		// Presence is read straight from the tracker at render time; the
		// event only forces a repaint.
	case service.ConversationUpdated:
		m.conversations = m.list.Conversations()
		if m.thread != nil && m.thread.ConversationID() == event.ConversationID {
			if m.thread.Append(event.Message) {
				m.msgs = m.thread.Messages()
				m.refreshViewport()
				return m, tea.Batch(waitRealtimeCmd(m.conn.Events()), m.loadClipCmds())
			}
		}
	case service.ChannelDown:
		m.logger.Warn("Realtime channel down; presence is stale until reconnect")
	}
	return m, waitRealtimeCmd(m.conn.Events())
}

// loadClipCmds issues a fetch for every WAV voice message whose samples
// are not cached yet.
func (m Model) loadClipCmds() tea.Cmd {
	if m.media == nil {
		return nil
	}
	var cmds []tea.Cmd
	for _, msg := range m.msgs {
		if msg.Kind() != models.MediaKindAudio {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(render.FileNameFromURL(msg.MediaURL)), ".wav") {
			continue
		}
		if _, ok := m.clipPCM[msg.ID]; ok {
			continue
		}
		cmds = append(cmds, loadClipCmd(m.ctx, m.media, msg))
	}
	if len(cmds) == 0 {
		return nil
	}
	return tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	if m.screen == screenList {
		return m.handleListKey(msg)
	}
	return m.handleThreadKey(msg)
}

func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.conversations)-1 {
			m.cursor++
		}
	case "r":
		// Manual retry covers both surfaces: the REST list fetch and, when
		// the channel dropped, a realtime re-dial.
		m.loadingList = true
		m.listErr = ""
		return m, tea.Batch(
			loadConversationsCmd(m.ctx, m.list),
			reconnectChannelCmd(m.ctx, m.conn),
		)
	case "enter":
		if m.cursor < len(m.conversations) {
			conv := m.conversations[m.cursor]
			m.conv = conv
			m.thread = m.newThread(conv)
			m.msgs = nil
			m.msgCursor = 0
			m.threadErr = ""
			m.screen = screenThread
			m.focus = focusComposer
			m.input.Focus()
			return m, loadHistoryCmd(m.ctx, m.thread)
		}
	case "q":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) handleThreadKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// The attach prompt captures all input while open.
	if m.attaching {
		switch msg.Type {
		case tea.KeyEnter:
			path := strings.TrimSpace(m.attachIn.Value())
			m.attaching = false
			m.attachIn.Reset()
			if path != "" && m.thread != nil {
				contentType := mime.TypeByExtension(filepath.Ext(path))
				if err := m.thread.Attach(path, contentType); err != nil {
					m.threadErr = errors.GetUserMessage(err)
				}
			}
			return m, nil
		case tea.KeyEsc:
			m.attaching = false
			m.attachIn.Reset()
			return m, nil
		}
		var cmd tea.Cmd
		m.attachIn, cmd = m.attachIn.Update(msg)
		return m, cmd
	}

	switch msg.Type {
	case tea.KeyEsc:
		m.screen = screenList
		m.thread = nil
		return m, nil
	case tea.KeyTab:
		if m.focus == focusComposer {
			m.focus = focusMessages
			m.input.Blur()
		} else {
			m.focus = focusComposer
			m.input.Focus()
		}
		return m, nil
	case tea.KeyCtrlO:
		m.attaching = true
		m.attachIn.Focus()
		return m, nil
	case tea.KeyCtrlR:
		return m.toggleRecording()
	case tea.KeyEnter:
		if m.focus == focusComposer {
			return m.submit()
		}
		return m.activateMessage()
	}

	if m.focus == focusMessages {
		return m.handleMessageKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.thread != nil {
		m.thread.SetText(m.input.Value())
	}
	return m, cmd
}

func (m Model) handleMessageKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.msgCursor > 0 {
			m.msgCursor--
		}
		m.refreshViewport()
	case "down", "j":
		if m.msgCursor < len(m.msgs)-1 {
			m.msgCursor++
		}
		m.refreshViewport()
	case "d":
		return m.downloadSelected()
	case "o":
		return m.openSelected()
	}
	return m, nil
}

// submit runs the send pipeline unless one is already in flight. The
// empty-message guard lives in the thread, before any network call.
func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.thread == nil || m.sending {
		return m, nil
	}
	m.thread.SetText(strings.TrimSpace(m.input.Value()))
	if m.thread.Draft().Empty() {
		m.threadErr = "Type a message or attach something first"
		return m, nil
	}
	m.sending = true
	m.threadErr = ""
	m.uploadFrac = 0
	return m, sendDraftCmd(m.ctx, m.thread, m.progressCh)
}

func (m Model) toggleRecording() (tea.Model, tea.Cmd) {
	if m.recorder == nil || m.mic == nil {
		m.threadErr = "Voice capture is not configured"
		return m, nil
	}
	if m.recording {
		return m, stopRecordingCmd(m.recorder)
	}
	if err := m.recorder.Start(m.mic); err != nil {
		m.threadErr = errors.GetUserMessage(err)
		return m, nil
	}
	m.recording = true
	return m, nil
}

// activateMessage handles enter on a selected message: audio toggles
// playback ownership through the session, other media open externally.
func (m Model) activateMessage() (tea.Model, tea.Cmd) {
	if m.msgCursor >= len(m.msgs) {
		return m, nil
	}
	msg := m.msgs[m.msgCursor]
	if !msg.HasMedia() {
		return m, nil
	}

	if msg.Kind() == models.MediaKindAudio {
		if m.session.Current() == msg.ID {
			m.session.Release(msg.ID)
		} else {
			m.session.Register(msg.ID, noopPlayer{})
			m.session.RequestPlay(msg.ID)
		}
		m.refreshViewport()
	}
	return m, nil
}

// loadDownloadFlags restores the download-once markers for the documents
// in the loaded history.
func (m *Model) loadDownloadFlags() {
	if m.downloads == nil {
		return
	}
	for _, msg := range m.msgs {
		if msg.Kind() != models.MediaKindDocument {
			continue
		}
		name := render.FileNameFromURL(msg.MediaURL)
		downloaded, err := m.downloads.IsDownloaded(m.ctx, name)
		if err != nil {
			m.logger.WithError(err).Debug("Failed to read download flag")
			continue
		}
		if downloaded {
			m.downloaded[name] = true
		}
	}
}

type noopPlayer struct{}

func (noopPlayer) Pause() {}
