package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"go-outreach-automation/internal/agent"
	"go-outreach-automation/internal/browser"
	"go-outreach-automation/internal/config"
	"go-outreach-automation/internal/logger"
	"go-outreach-automation/utils"
)

func main() {
	path := flag.String("config", "configs/config.yaml", "config file")
	flag.Parse()

	fmt.Println("🌐 Testing browser launch and login...")

	cfg, err := config.Load(*path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	lg, err := logger.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	launcher := browser.NewLauncher(cfg.Browser, lg)
	defer launcher.Shutdown()

	session, err := launcher.Launch(ctx)
	if err != nil {
		log.Fatalf("Failed to launch browser: %v", err)
	}
	defer session.Close()
	fmt.Println("✅ Browser launched")

	shots := utils.NewScreenshotDebugger(cfg.Browser.ScreenshotDir, lg)
	auth := agent.NewAuthenticator(cfg, utils.NewPacer(cfg.Pacing), shots, lg)
	if !auth.Authenticate(ctx, session) {
		log.Fatalf("❌ Login failed")
	}

	url, _ := session.CurrentURL()
	title, _ := session.Title()
	fmt.Printf("✅ Logged in: %s (%s)\n", url, title)
	fmt.Printf("   healthy: %t\n", agent.IsHealthy(session))

	if path := shots.Capture(session, "browser-test"); path != "" {
		fmt.Printf("📸 Screenshot saved: %s\n", path)
	}
	fmt.Println("✨ Test complete!")
}
