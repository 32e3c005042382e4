package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/dashboard"
	"github.com/trezcool/alama/core/mark"
	"github.com/trezcool/alama/core/roster"
	"github.com/trezcool/alama/core/school"
	"github.com/trezcool/alama/core/user"
)

type (
	Options struct {
		Address        string
		DisableReqLogs bool
	}

	Deps struct {
		Conf         *core.Config
		Logger       core.Logger
		Validate     *validator.Validate
		Translator   ut.Translator
		UserSvc      *user.Service
		SchoolSvc    *school.Service
		RosterSvc    *roster.Service
		MarkSvc      *mark.Service
		DashboardSvc *dashboard.Service
	}

	Server struct {
		opts     Options
		deps     Deps
		app      *echo.Echo
		auth     *Authenticator
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(opts Options, deps Deps) *Server {
	s := &Server{
		opts:     opts,
		deps:     deps,
		app:      echo.New(),
		auth:     NewAuthenticator(deps.Conf),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug && !conf.TestMode

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(s.auth.jwtConfig)

	registerUserAPI(v1, jwt, s.auth, s.deps.UserSvc, s.deps.Validate)
	registerSchoolAPI(v1, jwt, s.deps.SchoolSvc, s.deps.Validate)
	registerRosterAPI(v1, jwt, s.deps.RosterSvc, s.deps.Validate)
	registerMarkAPI(v1, jwt, s.auth, s.deps.UserSvc, s.deps.MarkSvc, s.deps.Validate)
	registerDashboardAPI(v1, jwt, s.deps.DashboardSvc)
}

// Start listens on Options.Address. Listener errors are sent to Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.opts.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}
