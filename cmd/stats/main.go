package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/alexivanou/georef/internal/config"
	"github.com/alexivanou/georef/internal/database"
	"github.com/alexivanou/georef/internal/stats"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	db, err := database.Connect(context.Background(), cfg.DB)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatal("Failed to ping database", zap.Error(err))
	}

	logger.Info("Collecting statistics...", zap.String("db_type", string(cfg.DB.Type)))

	collector := stats.NewCollector(db, cfg.DB)

	ctx := context.Background()
	statistics, err := collector.Collect(ctx)
	if err != nil {
		logger.Fatal("Failed to collect statistics", zap.Error(err))
	}

	outputFormat := os.Getenv("OUTPUT_FORMAT")
	if outputFormat == "" {
		outputFormat = "json"
	}

	switch outputFormat {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(statistics); err != nil {
			logger.Fatal("Failed to encode statistics", zap.Error(err))
		}
	case "text", "human":
		printHumanReadable(statistics)
	default:
		logger.Fatal("Unknown output format", zap.String("format", outputFormat))
	}
}

func printHumanReadable(s *stats.Stats) {
	fmt.Println("=== Gazetteer Statistics ===")
	fmt.Printf("Timestamp: %s\n", s.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Println()

	fmt.Println("--- Memory Statistics ---")
	fmt.Printf("Allocated:        %s\n", humanize.IBytes(s.Memory.Alloc))
	fmt.Printf("Total Allocated:  %s\n", humanize.IBytes(s.Memory.TotalAlloc))
	fmt.Println()

	fmt.Println("--- Database Statistics ---")
	fmt.Printf("Type:            %s\n", s.Database.Type)
	fmt.Printf("Size:            %s\n", humanize.IBytes(uint64(s.Database.SizeBytes)))
	fmt.Printf("Total Records:   %s\n", humanize.Comma(s.Database.TotalRecords))
	fmt.Println()
	fmt.Println("Table Statistics:")
	for _, ts := range s.Database.TableStats {
		fmt.Printf("  %-25s: %12s rows", ts.Name, humanize.Comma(ts.RowCount))
		if ts.SizeBytes > 0 {
			fmt.Printf(" (%s)", humanize.IBytes(uint64(ts.SizeBytes)))
		}
		fmt.Println()
	}
	fmt.Println()

	g := s.Gazetteer
	fmt.Println("--- Gazetteer ---")
	fmt.Printf("Enabled countries:   %s\n", humanize.Comma(g.EnabledCountries))
	fmt.Printf("Enabled localities:  %s\n", humanize.Comma(g.EnabledLocalities))
	fmt.Printf("Disabled localities: %s\n", humanize.Comma(g.DisabledLocalities))
	fmt.Printf("Without timezone:    %s\n", humanize.Comma(g.MissingTimezones))
	if g.LatestUpdate != nil {
		fmt.Printf("Last load:           %s (%s, run %s)\n",
			g.LatestUpdate.UpdatedAt.Format("2006-01-02 15:04:05"),
			humanize.Time(g.LatestUpdate.UpdatedAt),
			g.LatestUpdate.ID)
	} else {
		fmt.Println("Last load:           never")
	}
	fmt.Println()

	fmt.Println("--- Runtime Statistics ---")
	fmt.Printf("Goroutines:      %d\n", s.Runtime.NumGoroutines)
	fmt.Printf("Uptime:          %ds\n", s.Runtime.UptimeSeconds)
}
