/*
main.go - the HTTP server entry point (spec §6).

STARTUP SEQUENCE:
  1. Parse flags / environment
  2. Open the Postgres pool, optionally apply the bundled schema
  3. Wire directories, services, and the chi router
  4. Serve until SIGINT/SIGTERM, then drain in-flight requests

Grounded on the teacher's cmd/server/main.go signal-handling and
http.Server lifecycle, adapted from the teacher's SQLite store to the
pgx-backed postgres.Store this project uses instead.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dayledger/pto/internal/directory"
	"github.com/dayledger/pto/internal/httpapi"
	"github.com/dayledger/pto/internal/service/accrualservice"
	"github.com/dayledger/pto/internal/service/assignmentservice"
	"github.com/dayledger/pto/internal/service/audit"
	"github.com/dayledger/pto/internal/service/holidayservice"
	"github.com/dayledger/pto/internal/service/policyservice"
	"github.com/dayledger/pto/internal/service/reportingservice"
	"github.com/dayledger/pto/internal/service/requestservice"
	"github.com/dayledger/pto/internal/service/snapshotservice"
	"github.com/dayledger/pto/internal/store/postgres"
)

func main() {
	port := flag.Int("port", 8080, "HTTP server port")
	dsn := flag.String("database-url", os.Getenv("DATABASE_URL"), "Postgres connection string")
	migrate := flag.Bool("migrate", false, "apply the bundled schema before serving")
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

	if *migrate {
		if err := applySchema(ctx, *dsn); err != nil {
			log.Fatalf("failed to apply schema: %v", err)
		}
		log.Println("schema applied")
	}

	auditWriter := audit.New()
	employees := directory.NewMemoryDirectory()

	server := &httpapi.Server{
		Store:      pgStore,
		Employees:  employees,
		Companies:  employees.Companies(),
		Policy:     policyservice.New(pgStore, auditWriter),
		Assignment: assignmentservice.New(pgStore, auditWriter),
		Request:    requestservice.New(pgStore, employees, auditWriter),
		Snapshot:   snapshotservice.New(pgStore),
		Accrual:    accrualservice.New(pgStore, employees, auditWriter),
		Holiday:    holidayservice.New(pgStore, auditWriter),
		Reporting:  reportingservice.New(pgStore),
	}

	router := httpapi.NewRouter(server)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("server listening on :%d", *port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}
	log.Println("server stopped")
}
