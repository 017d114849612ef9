package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/shirts/opencv-tracking/internal/config"
	"github.com/shirts/opencv-tracking/internal/repository/sqlite"
	"github.com/shirts/opencv-tracking/internal/service/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	artifactsDir := flag.String("artifacts", cfg.ArtifactDirectory, "Directory containing detection artifacts")
	dbPath := flag.String("db", cfg.DatabasePath, "Database path")
	prune := flag.Bool("prune", false, "Remove index rows whose file no longer exists")
	flag.Parse()

	fmt.Printf("Indexing artifacts from %s into %s\n", *artifactsDir, *dbPath)

	db, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	repo := sqlite.NewArtifactRepository(db)

	result, err := storage.Reindex(*artifactsDir, repo, *prune)
	if err != nil {
		log.Fatalf("Failed to index artifacts: %v", err)
	}
	for _, s := range result.Skipped {
		log.Printf("⚠️  Skipping %s", s)
	}

	fmt.Printf("✅ Indexed %d artifacts\n", result.Indexed)
	if len(result.Skipped) > 0 {
		fmt.Printf("⚠️  Skipped %d files (invalid name or errors)\n", len(result.Skipped))
	}
	if result.Pruned > 0 {
		fmt.Printf("🧹 Pruned %d missing artifacts\n", result.Pruned)
	}

	counts, err := repo.CountByClass()
	if err != nil {
		return
	}
	fmt.Printf("\n📊 Index Statistics:\n")
	for class, count := range counts {
		fmt.Printf("   - %s: %d artifacts\n", class, count)
	}
}
