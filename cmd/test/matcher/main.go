package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"go-outreach-automation/internal/config"
	"go-outreach-automation/internal/logger"
	"go-outreach-automation/internal/matcher"
	"go-outreach-automation/internal/page/htmlpage"
)

// Runs the posting matcher against a saved listing page.
func main() {
	path := flag.String("config", "configs/config.yaml", "config file")
	htmlPath := flag.String("html", "", "saved listing page")
	flag.Parse()

	if *htmlPath == "" {
		log.Fatal("-html is required")
	}

	cfg, err := config.Load(*path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	lg, err := logger.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	content, err := os.ReadFile(*htmlPath)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", *htmlPath, err)
	}
	abs, _ := filepath.Abs(*htmlPath)
	url := "file://" + abs

	b := htmlpage.New(htmlpage.Site{url: string(content)})
	if err := b.Navigate(url); err != nil {
		log.Fatalf("Failed to parse page: %v", err)
	}

	m := matcher.New(cfg.Matcher, cfg.Outreach.Categories, lg)
	postings := m.Find(b)
	fmt.Printf("🔍 Found %d postings\n", len(postings))
	for i, p := range postings {
		id := p.ID
		if id == "" {
			id = "(no id)"
		}
		fmt.Printf("%3d. №%s  %s\n", i+1, id, p.Category)
	}
}
