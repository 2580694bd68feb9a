package utils

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"go-outreach-automation/internal/page"
)

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// ScreenshotDebugger saves full-page screenshots on failures.
type ScreenshotDebugger struct {
	outputDir string
	logger    *slog.Logger
}

// NewScreenshotDebugger returns nil when dir is empty, and a nil debugger
// captures nothing.
func NewScreenshotDebugger(dir string, logger *slog.Logger) *ScreenshotDebugger {
	if dir == "" {
		return nil
	}
	return &ScreenshotDebugger{outputDir: dir, logger: logger}
}

// Capture writes <name>_<timestamp>.png if the session can take screenshots
// and returns the file path. Failures are logged, never returned.
func (s *ScreenshotDebugger) Capture(session page.Session, name string) string {
	if s == nil {
		return ""
	}
	shooter, ok := session.(page.Screenshotter)
	if !ok {
		return ""
	}
	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		s.logger.Warn("failed to create screenshot directory", "error", err)
		return ""
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	path := filepath.Join(s.outputDir, fmt.Sprintf("%s_%s.png", unsafeName.ReplaceAllString(name, "_"), timestamp))
	if err := shooter.Screenshot(path); err != nil {
		s.logger.Warn("failed to capture screenshot", "error", err)
		return ""
	}

	s.logger.Info("screenshot saved", "path", path)
	return path
}
