package main

import (
	"log"
	"os"

	"github.com/aminofabian/squlll/core"
	logsvc "github.com/aminofabian/squlll/services/logger"
)

func main() {
	conf := core.NewConfig()

	stdLogger := log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")

	// start CLI
	cli := newCommandLine(conf, logger, os.Stdin, os.Stdout)
	err := cli.run(os.Args)
	cli.close()
	if err != nil {
		if err != errHelp {
			stdLogger.Printf("\nerror: %s\n", core.Message(err))
		}
		os.Exit(1)
	}
}
