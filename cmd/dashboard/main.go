package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"jobtrack/pkg/config"
	"jobtrack/pkg/dashboard"
	"jobtrack/pkg/scorer"
	"jobtrack/pkg/store"
)

func main() {
	godotenv.Load()

	var (
		configFlag  = flag.String("config", "config/config.json", "Path to configuration file")
		addrFlag    = flag.String("addr", ":5000", "Listen address")
		verboseFlag = flag.Bool("verbose", false, "Verbose logging")
	)
	flag.Parse()

	logger := logrus.New()
	if *verboseFlag {
		logger.SetLevel(logrus.DebugLevel)
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	st, err := store.Open(cfg.DatabasePath, logger)
	if err != nil {
		logger.Fatalf("Failed to open database: %v", err)
	}
	defer st.Close()

	sc := scorer.New(cfg.ResumePath, logger)
	srv := dashboard.NewServer(st, sc, logger)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		logger.Infof("Shutting down")
		if err := srv.Shutdown(); err != nil {
			logger.Errorf("Shutdown error: %v", err)
		}
	}()

	if err := srv.Listen(*addrFlag); err != nil {
		logger.Fatalf("Server error: %v", err)
	}
}
