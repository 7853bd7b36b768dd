package statusd

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"gcsync/internal/logger"
)

// Server exposes one State over HTTP at GET /status.
type Server struct {
	echo  *echo.Echo
	state *State
	addr  string
}

func NewServer(addr string, state *State) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{echo: e, state: state, addr: addr}
	e.GET("/status", s.handleStatus)
	return s
}

func (s *Server) handleStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, s.state.Snapshot())
}

// Start runs the server in the background. Errors other than a clean
// shutdown are logged, not returned, matching the teacher's
// fire-and-forget daemon.Server.Start.
func (s *Server) Start() {
	go func() {
		logger.Log.Info("status server started", zap.String("addr", s.addr))
		if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error("status server error", zap.Error(err))
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
