// Command recover rebuilds conversation records from the event log kept by
// the file store. With -id it rebuilds one conversation, otherwise all of them.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/socratic-tutor/backend/internal/infrastructure/config"
	"github.com/socratic-tutor/backend/internal/logger"
	"github.com/socratic-tutor/backend/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	dataDir := flag.String("data-dir", cfg.DataDir, "directory holding conversations.log")
	convID := flag.String("id", "", "rebuild only this conversation")
	flag.Parse()

	log, err := logger.New(logger.FormatText, cfg.LogLevel, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	st, err := store.NewFileStore(*dataDir, log)
	if err != nil {
		log.Error("failed to open store", logger.Err(err))
		os.Exit(1)
	}
	defer st.Close()

	ctx := context.Background()

	if *convID != "" {
		c, err := st.Recover(ctx, *convID)
		if c == nil {
			log.Error("recovery failed", "conversation_id", *convID, logger.Err(err))
			os.Exit(1)
		}
		if err != nil {
			log.Warn("recovered with problems", "conversation_id", *convID, logger.Err(err))
		}
		log.Info("conversation recovered", "conversation_id", c.ID, "turns", len(c.Messages))
		return
	}

	n, err := st.RecoverAll(ctx)
	if err != nil {
		log.Warn("some entries could not be recovered", logger.Err(err))
	}
	log.Info("recovery finished", "conversations", n, "log", st.LogPath())
	if err != nil && n == 0 {
		os.Exit(1)
	}
}
