package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/readledger/readledger/internal/config"
	"github.com/readledger/readledger/internal/database"
	"github.com/readledger/readledger/internal/database/userbooks"
	"github.com/readledger/readledger/internal/entrypoint"
	"github.com/readledger/readledger/internal/progress"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	// If no arguments or "serve" command, run the HTTP server
	if len(os.Args) < 2 || os.Args[1] == "serve" {
		cfg := config.NewConfig()
		entrypoint.Run(cfg, Version)
		return
	}

	switch os.Args[1] {
	case "reconcile":
		if err := runReconcile(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	case "-h", "--help", "help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// runReconcile re-derives every user-book's cached progress from the
// reading ledger, synchronously. Useful after restoring a database or
// editing ledger rows by hand.
func runReconcile() error {
	cfg := config.NewConfig()

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	links, err := userbooks.NewRepository(db.DB).GetAllLinks()
	if err != nil {
		return fmt.Errorf("list user books: %w", err)
	}

	service := progress.NewService(db.DB)
	failed := 0
	for _, link := range links {
		if err := service.Reconcile(context.Background(), link.UserID, link.BookID); err != nil {
			log.Printf("reconcile user %d book %d: %v", link.UserID, link.BookID, err)
			failed++
		}
	}

	log.Printf("Reconciled %d of %d user books", len(links)-failed, len(links))
	if failed > 0 {
		return fmt.Errorf("%d user books failed to reconcile", failed)
	}
	return nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  serve       Start the HTTP server (default if no command given)\n")
	fmt.Fprintf(os.Stderr, "  reconcile   Recompute cached progress for every user book\n")
}
