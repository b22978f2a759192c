package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"gigchat/internal/constants"
	"gigchat/internal/models"
)

var (
	addr    = flag.String("addr", ":8082", "Listen address")
	verbose = flag.Bool("verbose", false, "Enable verbose logging")
)

func main() {
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := NewServer(logger)
	seed(server)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(*addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server error: %v", err)
		}
	case <-ctx.Done():
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.DefaultGracefulShutdownSec*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("Shutdown error: %v", err)
		}
	}
}

// seed loads a small cast of users and conversations so the client has
// something to show on first run.
func seed(s *Server) {
	alice := models.Participant{ID: "u-alice", Username: "alice.designs", AvatarURL: "https://i.pravatar.cc/150?u=alice"}
	bob := models.Participant{ID: "u-bob", Username: "bob_builds", AvatarURL: "https://i.pravatar.cc/150?u=bob"}
	carol := models.Participant{ID: "u-carol", Username: "carol.writes", AvatarURL: "https://i.pravatar.cc/150?u=carol"}

	now := time.Now().UTC()

	s.seedConversation("c-alice-bob", alice, bob, []models.Message{
		{
			ID:        "m-1",
			SenderID:  bob.ID,
			Text:      "Hi! I saw your logo design gig. Is the 3-day turnaround still available?",
			CreatedAt: now.Add(-2 * time.Hour),
		},
		{
			ID:        "m-2",
			SenderID:  alice.ID,
			Text:      "Yes it is. Send over your brief and any brand colors you already use.",
			CreatedAt: now.Add(-110 * time.Minute),
		},
	})

	s.seedConversation("c-alice-carol", alice, carol, []models.Message{
		{
			ID:        "m-3",
			SenderID:  carol.ID,
			Text:      "Draft copy for the landing page is ready whenever you want to review.",
			CreatedAt: now.Add(-26 * time.Hour),
		},
	})

	s.seedConversation("c-bob-carol", bob, carol, nil)
}
