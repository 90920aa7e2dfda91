package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"

	"github.com/smartcampus/facilities/pkg/storage"
)

var (
	dbURL            = flag.String("db-url", getEnv("CAMPUS_DATABASE_URL", "postgres://localhost/campus?sslmode=disable"), "PostgreSQL connection URL")
	snapshotSchedule = flag.String("snapshot-schedule", "5 0 * * *", "Cron schedule for the daily analytics snapshot (default: 00:05 UTC)")
	pruneSchedule    = flag.String("prune-schedule", "30 0 * * 0", "Cron schedule for snapshot retention pruning (default: Sunday 00:30 UTC)")
	retentionDays    = flag.Int("retention-days", 180, "How many days of analytics snapshots to keep")
	runOnce          = flag.Bool("run-once", false, "Run the snapshot once and exit (for testing or backfilling)")
	snapshotDate     = flag.String("date", "", "Date to snapshot (YYYY-MM-DD). If empty, snapshots yesterday. Only used with --run-once")
)

func main() {
	flag.Parse()

	db, err := sql.Open("postgres", *dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	if *runOnce {
		date := time.Now().UTC().AddDate(0, 0, -1)
		if *snapshotDate != "" {
			date, err = time.Parse("2006-01-02", *snapshotDate)
			if err != nil {
				log.Fatalf("Invalid date format: %v", err)
			}
		}

		log.Printf("Running analytics snapshot for %s", date.Format("2006-01-02"))
		if err := storage.SnapshotAnalytics(context.Background(), db, date); err != nil {
			log.Fatalf("Snapshot failed: %v", err)
		}
		log.Println("Snapshot completed successfully")
		return
	}

	c := cron.New()

	_, err = c.AddFunc(*snapshotSchedule, func() {
		yesterday := time.Now().UTC().AddDate(0, 0, -1)
		log.Printf("Starting daily analytics snapshot for %s", yesterday.Format("2006-01-02"))

		if err := storage.SnapshotAnalytics(context.Background(), db, yesterday); err != nil {
			log.Printf("Daily snapshot failed: %v", err)
		} else {
			log.Println("Daily snapshot completed successfully")
		}
	})
	if err != nil {
		log.Fatalf("Failed to schedule daily snapshot: %v", err)
	}

	_, err = c.AddFunc(*pruneSchedule, func() {
		cutoff := time.Now().UTC().AddDate(0, 0, -*retentionDays)
		log.Printf("Pruning analytics snapshots older than %s", cutoff.Format("2006-01-02"))

		removed, err := storage.PruneAnalytics(context.Background(), db, cutoff)
		if err != nil {
			log.Printf("Snapshot pruning failed: %v", err)
		} else {
			log.Printf("Pruned %d snapshots", removed)
		}
	})
	if err != nil {
		log.Fatalf("Failed to schedule snapshot pruning: %v", err)
	}

	c.Start()
	log.Println("Campus janitor started")
	log.Printf("Snapshot schedule: %s", *snapshotSchedule)
	log.Printf("Prune schedule: %s (retention: %d days)", *pruneSchedule, *retentionDays)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Println("Shutting down gracefully...")

	ctx := c.Stop()
	<-ctx.Done()
	log.Println("Janitor stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
