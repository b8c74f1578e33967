/*
main.go - the daily accrual/carryover/expiration worker process (spec §4.13).
Runs as a separate process from cmd/server so a stuck tick never blocks the
HTTP surface, mirroring the teacher's single-process design split into two
binaries sharing the same store package.
*/
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dayledger/pto/internal/directory"
	"github.com/dayledger/pto/internal/service/accrualservice"
	"github.com/dayledger/pto/internal/service/audit"
	"github.com/dayledger/pto/internal/service/carryoverservice"
	"github.com/dayledger/pto/internal/service/expirationservice"
	"github.com/dayledger/pto/internal/store/postgres"
	"github.com/dayledger/pto/internal/worker"
)

func main() {
	dsn := flag.String("database-url", os.Getenv("DATABASE_URL"), "Postgres connection string")
	interval := flag.Duration("interval", 24*time.Hour, "tick interval")
	flag.Parse()

	if *dsn == "" {
		log.Fatal("database-url is required (flag or DATABASE_URL)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgStore, err := postgres.New(ctx, *dsn)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer pgStore.Close()

	auditWriter := audit.New()
	employees := directory.NewMemoryDirectory()

	w := worker.New(
		accrualservice.New(pgStore, employees, auditWriter),
		carryoverservice.New(pgStore, auditWriter),
		expirationservice.New(pgStore, auditWriter),
		*interval,
	)

	log.Printf("worker starting, interval=%s", interval.String())
	w.Run(ctx)
	log.Println("worker stopped")
}
