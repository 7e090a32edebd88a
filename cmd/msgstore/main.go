// Command msgstore serves an in-memory message store with the same REST
// endpoints as the real one, for local development against msglist.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/adi-253/msglist/internal/logger"
	"github.com/adi-253/msglist/internal/models"
	"github.com/adi-253/msglist/internal/storetest"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("could not read .env", "err", err)
	}
	if err := logger.Init(getEnv("MSGSTORE_LOG_LEVEL", "info"), "stderr"); err != nil {
		fatal("failed to set up logging", err)
	}
	defer logger.Sync()

	store := storetest.New(seedMessages()...)
	if mode := os.Getenv("MSGSTORE_MODE"); mode != "" {
		m, err := parseMode(mode)
		if err != nil {
			fatal("invalid MSGSTORE_MODE", err)
		}
		store.SetMode(m)
	}
	if delay := os.Getenv("MSGSTORE_DELAY"); delay != "" {
		d, err := time.ParseDuration(delay)
		if err != nil {
			fatal("invalid MSGSTORE_DELAY", err)
		}
		store.SetDelay(d)
	}

	// Set up router with middleware
	r := chi.NewRouter()
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: requestLog{}, NoColor: true}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Mount("/", store.Handler())

	addr := fmt.Sprintf(":%s", getEnv("MSGSTORE_PORT", "8080"))
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "err", err)
		}
	}()

	logger.Info("message store listening", "addr", addr, "messages", len(store.Messages()))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fatal("server stopped", err)
	}
}

// requestLog sends chi's access log lines through the process logger.
type requestLog struct{}

func (requestLog) Print(v ...interface{}) {
	logger.Info(fmt.Sprint(v...))
}

func fatal(msg string, err error) {
	logger.Error(msg, "err", err)
	_ = logger.Sync()
	os.Exit(1)
}

// seedMessages reads MSGSTORE_SEED, a comma-separated list of message texts.
// Seeded ids count back from now so the first text is the newest.
func seedMessages() []models.Message {
	seed := os.Getenv("MSGSTORE_SEED")
	if seed == "" {
		return nil
	}
	now := time.Now().UnixMilli()
	var msgs []models.Message
	for i, text := range strings.Split(seed, ",") {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		msgs = append(msgs, models.Message{ID: now - int64(i), Text: text})
	}
	return msgs
}

func parseMode(s string) (storetest.Mode, error) {
	switch strings.ToLower(s) {
	case "normal":
		return storetest.ModeNormal, nil
	case "reject":
		return storetest.ModeReject, nil
	case "broken":
		return storetest.ModeBroken, nil
	case "garbage":
		return storetest.ModeGarbage, nil
	default:
		return 0, fmt.Errorf("unknown MSGSTORE_MODE %q", s)
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
