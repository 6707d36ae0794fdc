package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/subcommands"
	log "github.com/sirupsen/logrus"

	"vision-platform-client/internal/config"
)

func main() {
	configPath := flag.String("config", "", "config file (default $HOME/"+config.DefaultCfgName+".yaml)")
	platformURL := flag.String("url", "", "platform base URL, overrides the config file")
	verbose := flag.Bool("v", false, "debug logging")

	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")

	subcommands.Register(&createProjectCmd{}, "projects")
	subcommands.Register(&trainCmd{}, "training")
	subcommands.Register(&jobsCmd{}, "training")
	subcommands.Register(&exportCmd{}, "transfer")
	subcommands.Register(&importCmd{}, "transfer")
	subcommands.Register(&reuploadCmd{}, "transfer")
	subcommands.Register(&deployCmd{}, "deployment")
	subcommands.Register(&servingCmd{}, "deployment")

	subcommands.ImportantFlag("config")
	subcommands.ImportantFlag("url")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Errorf("load config: %v", err)
		os.Exit(int(subcommands.ExitUsageError))
	}
	if *platformURL != "" {
		cfg.Platform.URL = *platformURL
	}
	if *verbose {
		cfg.Logger.Level = "debug"
	}
	initLogger(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	os.Exit(int(subcommands.Execute(ctx, &app{cfg: cfg})))
}

func initLogger(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.Logger.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetOutput(os.Stderr)

	if cfg.Logger.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
