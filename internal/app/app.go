// Package app wires the process together: configuration from the
// environment, the logging router, the room store and hub, and the HTTP
// surface. Command main stays a thin shell around Run.
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	server "hexworld/server"
	servernet "hexworld/server/internal/net"
	"hexworld/server/logging"
	loggingSinks "hexworld/server/logging/sinks"
	"hexworld/server/models"
)

type Config struct {
	// Addr is the listen address. PORT overrides the port part.
	Addr string
	// Logger is the fallback standard logger.
	Logger *log.Logger
}

// Run starts the server and blocks until the listener fails or ctx is
// cancelled, at which point it shuts down gracefully.
func Run(ctx context.Context, cfg Config) error {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	addr := cfg.Addr
	if addr == "" {
		addr = ":8080"
	}
	if raw := os.Getenv("PORT"); raw != "" {
		if _, err := strconv.Atoi(raw); err == nil {
			addr = ":" + raw
		} else {
			logger.Printf("invalid PORT=%q: %v", raw, err)
		}
	}

	logConfig := logging.DefaultConfig()
	if raw := os.Getenv("LOG_SINKS"); raw != "" {
		logConfig.EnabledSinks = splitSinks(raw)
	}
	if raw := os.Getenv("LOG_JSON_PATH"); raw != "" {
		logConfig.JSON.FilePath = raw
	}

	var namedSinks []logging.NamedSink
	if logConfig.HasSink("console") {
		namedSinks = append(namedSinks, logging.NamedSink{
			Name: "console",
			Sink: loggingSinks.NewConsole(os.Stdout, logConfig.Console),
		})
	}
	if logConfig.HasSink("json") && logConfig.JSON.FilePath != "" {
		file, err := os.OpenFile(logConfig.JSON.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file %s: %w", logConfig.JSON.FilePath, err)
		}
		defer file.Close()
		namedSinks = append(namedSinks, logging.NamedSink{
			Name: "json",
			Sink: loggingSinks.NewJSON(file, logConfig.JSON.FlushInterval),
		})
	}

	router, err := logging.NewRouter(nil, logConfig, namedSinks)
	if err != nil {
		return fmt.Errorf("construct logging router: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if cerr := router.Close(closeCtx); cerr != nil {
			logger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	seed := time.Now().UnixNano()
	if raw := os.Getenv("ROOM_CODE_SEED"); raw != "" {
		if value, err := strconv.ParseInt(raw, 10, 64); err == nil {
			seed = value
		} else {
			logger.Printf("invalid ROOM_CODE_SEED=%q: %v", raw, err)
		}
	}

	catalog := models.Default()
	if raw := os.Getenv("MODEL_CATALOG"); raw != "" {
		loaded, err := models.Load(raw)
		if err != nil {
			return fmt.Errorf("load model catalog: %w", err)
		}
		catalog = loaded
	}

	store := server.NewRoomStore(seed)
	hub := server.NewHub(store, router)

	handler := servernet.NewHTTPHandler(hub, catalog, servernet.HTTPHandlerConfig{
		Logger:      logger,
		RouterStats: router.Stats,
		CORSOrigin:  os.Getenv("CORS_ORIGIN"),
	})

	srv := &http.Server{Addr: addr, Handler: handler}
	logger.Printf("server listening on %s", srv.Addr)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func splitSinks(raw string) []string {
	parts := strings.Split(raw, ",")
	sinks := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			sinks = append(sinks, trimmed)
		}
	}
	return sinks
}
