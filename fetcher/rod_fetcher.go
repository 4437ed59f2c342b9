package fetcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"review-scraper/dom"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/gofrs/flock"
	"go.uber.org/zap"
)

// Options configures the browser launch
type Options struct {
	Headless    bool
	UserDataDir string        // Browser profile directory; BOT_DATA_DIR or /tmp/review-scraper-data when empty
	LoadTimeout time.Duration // Upper bound for a page to finish loading and stabilize
}

// RodFetcher implements the Fetcher interface using rod (headless or headed Chrome)
type RodFetcher struct {
	browser     *rod.Browser
	lock        *flock.Flock
	loadTimeout time.Duration
	logger      *zap.Logger
}

// NewRodFetcher launches a browser and connects to it
func NewRodFetcher(opts Options, logger *zap.Logger) (*RodFetcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = 15 * time.Second
	}

	// Get user data directory from options, environment or default
	userDataDir := opts.UserDataDir
	if userDataDir == "" {
		userDataDir = os.Getenv("BOT_DATA_DIR")
	}
	if userDataDir == "" {
		userDataDir = "/tmp/review-scraper-data"
	}

	if err := os.MkdirAll(userDataDir, 0755); err != nil {
		logger.Warn("failed to create browser data directory", zap.String("dir", userDataDir), zap.Error(err))
		userDataDir = ""
	}

	// Two processes must not share one Chrome profile
	var lock *flock.Flock
	if userDataDir != "" {
		lock = flock.New(filepath.Join(userDataDir, ".review-scraper.lock"))
		locked, err := lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("failed to lock browser data directory: %w", err)
		}
		if !locked {
			return nil, fmt.Errorf("browser data directory %s is in use by another process", userDataDir)
		}
	}

	l := launcher.New().
		Headless(opts.Headless).
		Set("disable-blink-features", "AutomationControlled").
		NoSandbox(true).
		Leakless(false). // Disable leakless to avoid antivirus issues
		// Additional flags for Linux compatibility
		Set("disable-dev-shm-usage").
		Set("disable-gpu").
		Set("no-first-run").
		Set("no-default-browser-check").
		Set("disable-extensions").
		Set("disable-background-timer-throttling").
		Set("disable-renderer-backgrounding").
		Set("disable-backgrounding-occluded-windows").
		Set("disable-breakpad").
		Set("disable-popup-blocking").
		Set("disable-sync").
		Set("disable-translate").
		Set("mute-audio").
		Set("log-level", "3").
		Set("disable-features", "TranslateUI,BlinkGenPropertyTrees")
	if userDataDir != "" {
		l = l.UserDataDir(userDataDir)
	}

	if bin := findChrome(); bin != "" {
		l = l.Bin(bin)
	}

	logger.Info("configuring browser", zap.Bool("headless", opts.Headless), zap.String("profile", userDataDir))

	browserURL, err := l.Launch()
	if err != nil {
		releaseLock(lock)
		return nil, fmt.Errorf("failed to launch browser: %w\n\nNote: On Linux, you may need to install Chromium dependencies:\n  apt-get update && apt-get install -y chromium chromium-sandbox || yum install -y chromium", err)
	}

	browser := rod.New().ControlURL(browserURL)
	if err := browser.Connect(); err != nil {
		releaseLock(lock)
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	return &RodFetcher{
		browser:     browser,
		lock:        lock,
		loadTimeout: opts.LoadTimeout,
		logger:      logger,
	}, nil
}

// findChrome prefers a system Chrome/Chromium over rod's downloaded build
func findChrome() string {
	paths := []string{
		"/usr/bin/google-chrome",
		"/usr/bin/google-chrome-stable",
		"/usr/bin/chromium",
		"/usr/bin/chromium-browser",
		"/snap/bin/chromium",
		`C:\Program Files\Google\Chrome\Application\chrome.exe`,
		`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
	}
	if username := os.Getenv("USERNAME"); username != "" {
		paths = append(paths, `C:\Users\`+username+`\AppData\Local\Google\Chrome\Application\chrome.exe`)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func releaseLock(lock *flock.Flock) {
	if lock != nil {
		_ = lock.Unlock()
	}
}

// NewPage opens a new tab
func (rf *RodFetcher) NewPage(ctx context.Context) (dom.Page, error) {
	var page *rod.Page
	var pageErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				pageErr = fmt.Errorf("panic while creating page: %v", r)
			}
		}()
		page, pageErr = rf.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	}()
	if pageErr != nil {
		return nil, fmt.Errorf("failed to create page: %w", pageErr)
	}

	return &rodPage{page: page, loadTimeout: rf.loadTimeout, logger: rf.logger}, nil
}

// Close closes the browser and releases the profile lock
func (rf *RodFetcher) Close() error {
	defer releaseLock(rf.lock)
	if rf.browser != nil {
		return rf.browser.Close()
	}
	return nil
}
