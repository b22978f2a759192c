package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"gigchat/internal/constants"
	"gigchat/internal/models"
)

// conversationRecord is the stub's storage shape: both participants plus
// the denormalized preview fields the list endpoint serves.
type conversationRecord struct {
	id           string
	participants [2]models.Participant
	lastMessage  *models.MessageSummary
	updatedAt    time.Time
}

// chunkSession is one in-flight chunked upload, keyed by its upload id.
// Chunks must arrive in strictly increasing offset order; there is no
// resume.
type chunkSession struct {
	name     string
	data     []byte
	received int64
	total    int64
}

type storedMedia struct {
	name        string
	contentType string
	data        []byte
}

// Server is the development backend: the REST chat API, the upload
// endpoint, and the realtime websocket hub in one process.
type Server struct {
	router *mux.Router
	logger *logrus.Logger
	hub    *hub
	server *http.Server

	mu            sync.Mutex
	conversations map[string]*conversationRecord
	messages      map[string][]models.Message
	chunks        map[string]*chunkSession
	media         map[string]storedMedia
}

func NewServer(logger *logrus.Logger) *Server {
	s := &Server{
		router:        mux.NewRouter(),
		logger:        logger,
		hub:           newHub(logger),
		conversations: make(map[string]*conversationRecord),
		messages:      make(map[string][]models.Message),
		chunks:        make(map[string]*chunkSession),
		media:         make(map[string]storedMedia),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth()).Methods(http.MethodGet)
	s.router.HandleFunc("/conversations/{userId}", s.handleConversations()).Methods(http.MethodGet)
	s.router.HandleFunc("/messages/{conversationId}", s.handleMessages()).Methods(http.MethodGet)
	s.router.HandleFunc("/messages/send", s.handleSend()).Methods(http.MethodPost)
	s.router.HandleFunc("/upload", s.handleUpload()).Methods(http.MethodPost)
	s.router.HandleFunc("/media/{publicId}", s.handleMedia()).Methods(http.MethodGet)
	s.router.HandleFunc("/ws", s.handleWebsocket())
}

func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  constants.DefaultServerReadTimeoutSec * time.Second,
		WriteTimeout: constants.DefaultServerWriteTimeoutSec * time.Second,
		IdleTimeout:  constants.DefaultServerIdleTimeoutSec * time.Second,
	}

	s.logger.Infof("Starting chat stub on %s", addr)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// seedConversation registers a conversation between two users with an
// optional opening exchange.
func (s *Server) seedConversation(id string, a, b models.Participant, opening []models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := &conversationRecord{
		id:           id,
		participants: [2]models.Participant{a, b},
		updatedAt:    time.Now().UTC(),
	}
	for _, msg := range opening {
		msg.ConversationID = id
		s.messages[id] = append(s.messages[id], msg)
		summary := msg.Summary()
		rec.lastMessage = &summary
		rec.updatedAt = msg.CreatedAt
	}
	s.conversations[id] = rec
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}
}

func (s *Server) handleConversations() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := mux.Vars(r)["userId"]

		s.mu.Lock()
		result := make([]models.Conversation, 0)
		for _, rec := range s.conversations {
			other, ok := rec.otherOf(userID)
			if !ok {
				continue
			}
			result = append(result, models.Conversation{
				ID:               rec.id,
				OtherParticipant: other,
				LastMessage:      rec.lastMessage,
				UpdatedAt:        rec.updatedAt,
			})
		}
		s.mu.Unlock()

		// Most recently active first, like the production list endpoint.
		sort.Slice(result, func(i, j int) bool {
			return result[i].UpdatedAt.After(result[j].UpdatedAt)
		})
		writeJSON(w, http.StatusOK, result)
	}
}

func (rec *conversationRecord) otherOf(userID string) (models.Participant, bool) {
	switch userID {
	case rec.participants[0].ID:
		return rec.participants[1], true
	case rec.participants[1].ID:
		return rec.participants[0], true
	}
	return models.Participant{}, false
}

func (s *Server) handleMessages() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conversationID := mux.Vars(r)["conversationId"]

		s.mu.Lock()
		_, known := s.conversations[conversationID]
		history := append([]models.Message(nil), s.messages[conversationID]...)
		s.mu.Unlock()

		if !known {
			http.Error(w, "conversation not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, history)
	}
}

func (s *Server) handleSend() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, "invalid multipart form", http.StatusBadRequest)
			return
		}

		senderID := r.FormValue("senderId")
		conversationID := r.FormValue("conversationId")
		text := r.FormValue("text")
		mediaURL := r.FormValue("media")
		mediaType := r.FormValue("mediaType")

		if senderID == "" || conversationID == "" {
			http.Error(w, "senderId and conversationId are required", http.StatusBadRequest)
			return
		}
		if text == "" && mediaURL == "" {
			http.Error(w, "message has no content", http.StatusBadRequest)
			return
		}

		msg := models.Message{
			ID:             uuid.New().String(),
			ConversationID: conversationID,
			SenderID:       senderID,
			Text:           text,
			MediaURL:       mediaURL,
			MediaKind:      models.MediaKind(mediaType),
			CreatedAt:      time.Now().UTC(),
		}
		if msg.MediaURL != "" && msg.MediaKind == "" {
			msg.MediaKind = models.MediaKindDocument
		}

		s.mu.Lock()
		rec, known := s.conversations[conversationID]
		if known {
			s.messages[conversationID] = append(s.messages[conversationID], msg)
			summary := msg.Summary()
			rec.lastMessage = &summary
			rec.updatedAt = msg.CreatedAt
		}
		s.mu.Unlock()

		if !known {
			http.Error(w, "conversation not found", http.StatusNotFound)
			return
		}

		writeJSON(w, http.StatusCreated, msg)
	}
}

// handleUpload accepts both single-shot and chunked uploads. Chunked
// requests carry X-Unique-Upload-Id and a Content-Range header; the final
// chunk's response carries the resolved URL.
func (s *Server) handleUpload() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			http.Error(w, "invalid multipart form", http.StatusBadRequest)
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "file part is required", http.StatusBadRequest)
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			http.Error(w, "failed to read file part", http.StatusBadRequest)
			return
		}

		uploadID := r.Header.Get("X-Unique-Upload-Id")
		contentRange := r.Header.Get("Content-Range")
		if contentRange == "" {
			result := s.storeMedia(r, header.Filename, header.Header.Get("Content-Type"), data)
			writeJSON(w, http.StatusOK, result)
			return
		}

		if uploadID == "" {
			http.Error(w, "X-Unique-Upload-Id is required for chunked uploads", http.StatusBadRequest)
			return
		}

		start, end, total, err := parseContentRange(contentRange)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		s.mu.Lock()
		session, ok := s.chunks[uploadID]
		if !ok {
			session = &chunkSession{name: header.Filename, total: total}
			s.chunks[uploadID] = session
		}
		if start != session.received {
			s.mu.Unlock()
			http.Error(w, fmt.Sprintf("chunk out of order: got offset %d, want %d", start, session.received), http.StatusConflict)
			return
		}
		session.data = append(session.data, data...)
		session.received = end + 1
		done := session.received >= session.total
		if done {
			delete(s.chunks, uploadID)
		}
		s.mu.Unlock()

		if !done {
			w.WriteHeader(http.StatusOK)
			return
		}

		result := s.storeMedia(r, session.name, header.Header.Get("Content-Type"), session.data)
		writeJSON(w, http.StatusOK, result)
	}
}

func (s *Server) storeMedia(r *http.Request, name, contentType string, data []byte) models.UploadResult {
	publicID := uuid.New().String()
	if ext := extensionOf(name); ext != "" {
		publicID += ext
	}

	s.mu.Lock()
	s.media[publicID] = storedMedia{name: name, contentType: contentType, data: data}
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"public_id": publicID,
		"size":      len(data),
	}).Info("Media stored")

	return models.UploadResult{
		SecureURL: fmt.Sprintf("http://%s/media/%s", r.Host, publicID),
		PublicID:  publicID,
	}
}

func extensionOf(name string) string {
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		return name[idx:]
	}
	return ""
}

// parseContentRange parses "bytes start-end/total".
func parseContentRange(value string) (start, end, total int64, err error) {
	if _, scanErr := fmt.Sscanf(value, "bytes %d-%d/%d", &start, &end, &total); scanErr != nil {
		return 0, 0, 0, fmt.Errorf("malformed Content-Range %q", value)
	}
	if start < 0 || end < start || total <= end {
		return 0, 0, 0, fmt.Errorf("invalid Content-Range bounds %q", value)
	}
	return start, end, total, nil
}

func (s *Server) handleMedia() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		publicID := mux.Vars(r)["publicId"]

		s.mu.Lock()
		item, ok := s.media[publicID]
		s.mu.Unlock()

		if !ok {
			http.Error(w, "media not found", http.StatusNotFound)
			return
		}
		if item.contentType != "" {
			w.Header().Set("Content-Type", item.contentType)
		}
		w.Write(item.data)
	}
}

// handleWebsocket upgrades the connection and requires a join event as the
// first frame before any traffic flows.
func (s *Server) handleWebsocket() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			s.logger.WithError(err).Warn("Websocket accept failed")
			return
		}

		ctx := r.Context()

		var env models.Envelope
		if err := wsjson.Read(ctx, conn, &env); err != nil || env.Event != constants.EventJoin {
			conn.Close(websocket.StatusPolicyViolation, "expected a join event")
			return
		}
		var join models.JoinEvent
		if err := json.Unmarshal(env.Data, &join); err != nil || join.UserID == "" {
			conn.Close(websocket.StatusPolicyViolation, "malformed join event")
			return
		}

		s.hub.join(ctx, join.UserID, conn)
		defer s.hub.leave(context.Background(), join.UserID, conn)

		for {
			var env models.Envelope
			if err := wsjson.Read(ctx, conn, &env); err != nil {
				return
			}
			if env.Event != constants.EventSendMessage {
				continue
			}

			var msg models.Message
			if err := json.Unmarshal(env.Data, &msg); err != nil {
				s.logger.WithError(err).Warn("Malformed sendMessage event")
				continue
			}

			s.mu.Lock()
			rec, known := s.conversations[msg.ConversationID]
			var recipient models.Participant
			if known {
				recipient, known = rec.otherOf(msg.SenderID)
			}
			s.mu.Unlock()
			if !known {
				continue
			}

			s.hub.deliver(ctx, recipient.ID, msg)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
