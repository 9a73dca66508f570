package notify

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/voxkey/voxkey/internal/settings"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Loopback-only service; the bind address is the boundary.
		return true
	},
}

// Server exposes the hub's subscription endpoint on a loopback address.
type Server struct {
	echo   *echo.Echo
	hub    *Hub
	logger *slog.Logger
}

// SnapshotFunc returns the canonical settings for newly subscribed contexts.
type SnapshotFunc func() settings.Settings

// NewServer mounts /ws and /healthz. Each new subscriber immediately
// receives the current snapshot so it never renders stale defaults.
func NewServer(hub *Hub, snapshot SnapshotFunc, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"status":   "ok",
			"service":  "voxkey",
			"contexts": hub.Count(),
		})
	})

	e.GET("/ws", func(c echo.Context) error {
		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", "error", err.Error())
			return nil
		}
		id := hub.Attach(conn)
		if snapshot != nil {
			if err := hub.Send(id, snapshot()); err != nil {
				logger.Debug("initial snapshot delivery failed", "context", id, "error", err.Error())
			}
		}
		return nil
	})

	return &Server{echo: e, hub: hub, logger: logger}
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start(addr string) error {
	err := s.echo.Start(addr)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the HTTP surface and disconnects subscribers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.echo.Shutdown(shutdownCtx)
}
