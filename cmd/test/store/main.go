package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"go-outreach-automation/internal/config"
	"go-outreach-automation/internal/store"
)

func main() {
	path := flag.String("config", "configs/config.yaml", "config file")
	check := flag.String("check", "", "report whether this posting ID is recorded")
	record := flag.String("record", "", "record this posting ID")
	flag.Parse()

	cfg, err := config.Load(*path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	fmt.Printf("Opening %s store...\n", cfg.Store.Driver)
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		log.Fatalf("❌ Failed to open store: %v", err)
	}
	defer st.Close()

	n, err := st.Count(ctx)
	if err != nil {
		log.Fatalf("❌ Count failed: %v", err)
	}
	fmt.Printf("📦 Processed postings: %d\n", n)

	if *check != "" {
		ok, err := st.Contains(ctx, *check)
		if err != nil {
			log.Fatalf("❌ Lookup failed: %v", err)
		}
		fmt.Printf("   №%s recorded: %t\n", *check, ok)
	}
	if *record != "" {
		if err := st.Record(ctx, *record); err != nil {
			log.Fatalf("❌ Record failed: %v", err)
		}
		fmt.Printf("✅ Recorded №%s\n", *record)
	}
}
