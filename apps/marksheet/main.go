// Command marksheet records and reviews exam marks through the Alama API.
package main

import (
	"log"
	"os"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/services/apiclient"
	logsvc "github.com/trezcool/alama/services/logger"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewStdLogger(log.New(os.Stderr, "MARKSHEET : ", log.LstdFlags), conf.Debug)

	client := apiclient.New(conf.Client, logger)
	cli := commandLine{
		backend:      client,
		auth:         client,
		logger:       logger,
		out:          os.Stdout,
		workers:      conf.Client.Workers,
		defaultTotal: conf.Client.DefaultTotal,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("command failed", err)
		}
		os.Exit(1)
	}
}
