package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // register the /debug/pprof handlers
	"os"

	"github.com/go-playground/validator/v10"

	echoapi "github.com/trezcool/alama/apps/api/echo"
	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/dashboard"
	"github.com/trezcool/alama/core/mark"
	"github.com/trezcool/alama/core/roster"
	"github.com/trezcool/alama/core/school"
	"github.com/trezcool/alama/core/user"
	logsvc "github.com/trezcool/alama/services/logger"
	"github.com/trezcool/alama/storage"
	"github.com/trezcool/alama/storage/database"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	defer logger.Close()

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	// set up storage
	repos, err := setUpStorage(conf, dbLogger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up storage: %v", err), err)
	}
	defer func() {
		if err = repos.Close(context.Background()); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()

	// set up services
	usrSvc := user.NewService(repos.Users)
	schoolSvc := school.NewService(repos.Schools)
	rosterSvc := roster.NewService(repos.Roster)
	markSvc := mark.NewService(repos.Marks, repos.Roster)
	dashSvc := dashboard.NewService(usrSvc, schoolSvc, rosterSvc, markSvc)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	mark.InitValidators(validate, translator)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.Options{Address: conf.Server.Address},
		echoapi.Deps{
			Conf:         conf,
			Logger:       logger,
			Validate:     validate,
			Translator:   translator,
			UserSvc:      usrSvc,
			SchoolSvc:    schoolSvc,
			RosterSvc:    rosterSvc,
			MarkSvc:      markSvc,
			DashboardSvc: dashSvc,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpStorage(conf *core.Config, logger core.Logger) (*storage.Repositories, error) {
	ctx := context.Background()
	if conf.Database.Engine == storage.EnginePostgres {
		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			return nil, err
		}
	}

	repos, err := storage.Open(ctx, conf, logger)
	if err != nil {
		return nil, err
	}

	if repos.SQL != nil {
		if err = database.Migrate(repos.SQL.DB); err != nil {
			_ = repos.Close(ctx)
			return nil, err
		}
	}
	return repos, nil
}
