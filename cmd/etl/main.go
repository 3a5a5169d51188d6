package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"stocketl/internal/config"
	"stocketl/internal/loader"
	"stocketl/internal/pipeline"
	"stocketl/internal/runlock"
	"stocketl/internal/scheduler"
	"stocketl/internal/transformer"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	flag.StringVar(&cfgPath, "config", cfgPath, "path to the YAML config file")
	inputDir := flag.String("input_dir", "", "directory containing *_stock_data.csv files")
	dbFile := flag.String("db_file", "", "SQLite database file")
	schedule := flag.String("schedule", "", "6-field cron spec; empty runs once and exits")
	flag.Parse()

	// Load config
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if *inputDir != "" {
		cfg.Input.Dir = *inputDir
	}
	if *dbFile != "" {
		cfg.UseSQLiteFile(*dbFile)
	}
	if *schedule != "" {
		cfg.Schedule.Cron = *schedule
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	store, err := loader.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		log.Fatalf("[FATAL] open database: %v", err)
	}

	// Init run lock
	var locker runlock.Locker
	if cfg.Lock.RedisURL != "" {
		rl, err := runlock.NewRedisLocker(cfg.Lock.RedisURL, cfg.Lock.Key, cfg.Lock.TTL)
		if err != nil {
			store.Close()
			log.Fatalf("[FATAL] init redis lock: %v", err)
		}
		locker = rl
	} else {
		locker = runlock.NewLocalLocker()
	}

	p := pipeline.New(cfg.Input.Dir, cfg.Input.Pattern, transformer.New(cfg.Input.DefaultTicker), store, locker)

	ctx, cancel := context.WithCancel(context.Background())

	if cfg.Schedule.Cron == "" {
		_, err := p.Run(ctx)
		cancel()
		locker.Close()
		store.Close()
		if err != nil {
			os.Exit(1)
		}
		return
	}

	sched := scheduler.NewScheduler(ctx, p)
	if err := sched.Register(cfg.Schedule.Cron); err != nil {
		log.Fatalf("[FATAL] register cron task: %v", err)
	}
	sched.Start()
	log.Printf("[INFO] stocketl is running on schedule %q. Press Ctrl+C to stop.", cfg.Schedule.Cron)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	sched.Stop()
	locker.Close()
	store.Close()
	log.Println("[INFO] stocketl stopped")
}
