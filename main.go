package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"ratwatch/cmd"
	"ratwatch/database"
)

func main() {
	// "ratwatch migrate ..." manages the schema without starting the bot
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := runMigrationCommand(os.Args[2:]); err != nil {
			log.Fatal("migration failed: ", err)
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// SIGINT/SIGTERM stop the scheduler and disconnect from Discord
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("shutdown signal received, stopping ratwatch")
		cancel()
	}()

	if err := cmd.Run(ctx); err != nil {
		log.Fatal("ratwatch exited with error: ", err)
	}
}

func runMigrationCommand(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: ratwatch migrate [up|down|status] [args...]")
	}

	switch args[0] {
	case "up":
		return database.MigrateUp()
	case "down":
		steps := "1"
		if len(args) > 1 {
			steps = args[1]
		}
		return database.MigrateDown(steps)
	case "status":
		return database.MigrateStatus()
	default:
		return fmt.Errorf("unknown migration command: %s", args[0])
	}
}
