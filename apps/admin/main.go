package main

import (
	"context"
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/roster"
	"github.com/trezcool/alama/core/user"
	logsvc "github.com/trezcool/alama/services/logger"
	"github.com/trezcool/alama/storage"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewStdLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf.Debug)

	ctx := context.Background()
	repos, err := storage.Open(ctx, conf, logger)
	if err != nil {
		logger.Fatal("opening storage", err)
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	cli := commandLine{
		usrSvc:    user.NewService(repos.Users),
		rosterSvc: roster.NewService(repos.Roster),
		validate:  validate,
	}
	if repos.SQL != nil {
		cli.db = repos.SQL.DB
	}

	err = cli.run(os.Args)
	if cerr := repos.Close(ctx); cerr != nil {
		logger.Error("closing storage", cerr)
	}
	if err != nil {
		if err != errHelp {
			logger.Error("command failed", err)
		}
		os.Exit(1)
	}
}
