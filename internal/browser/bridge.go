package browser

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// Bridge launches headless Chrome instances, one per Session.
type Bridge struct {
	headless   bool
	insecure   bool
	execPath   string
	navTimeout time.Duration
	logger     *slog.Logger
}

// BridgeConfig holds configuration for the browser bridge.
type BridgeConfig struct {
	Headless   bool          // Run headless (true) or with visible UI (false)
	Insecure   bool          // Accept self-signed panel certificates
	ExecPath   string        // Chrome binary; empty lets chromedp search the usual locations
	NavTimeout time.Duration // Upper bound for each page operation
	Logger     *slog.Logger
}

func NewBridge(cfg BridgeConfig) *Bridge {
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Bridge{
		headless:   cfg.Headless,
		insecure:   cfg.Insecure,
		execPath:   cfg.ExecPath,
		navTimeout: cfg.NavTimeout,
		logger:     cfg.Logger,
	}
}

// allocatorOptions returns the exec allocator options for a fresh profile.
func (b *Bridge) allocatorOptions(profileDir string) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserDataDir(profileDir),
		chromedp.NoSandbox,
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("exclude-switches", "enable-automation"),
		chromedp.UserAgent(defaultUserAgent),
	)

	if b.headless {
		opts = append(opts, chromedp.Headless)
	} else {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if b.insecure {
		opts = append(opts, chromedp.IgnoreCertErrors)
	}
	if b.execPath != "" {
		opts = append(opts, chromedp.ExecPath(b.execPath))
	}
	return opts
}

// Open launches a new Chrome process with a throwaway profile directory.
// Nothing is shared between sessions. The caller MUST call Close.
func (b *Bridge) Open(parentCtx context.Context) (*Session, error) {
	profileDir, err := os.MkdirTemp("", "panelkeeper-profile-*")
	if err != nil {
		return nil, fmt.Errorf("create profile dir: %w", err)
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parentCtx, b.allocatorOptions(profileDir)...)
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)

	s := &Session{
		ctx:        taskCtx,
		cancel:     func() { taskCancel(); allocCancel() },
		profileDir: profileDir,
		navTimeout: b.navTimeout,
		logger:     b.logger,
	}

	// Start the browser without a deadline so a later step timeout
	// only cancels that step, not the whole process.
	if err := chromedp.Run(taskCtx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("launch chrome: %w", err)
	}

	b.logger.Debug("browser session opened", "profile", profileDir)
	return s, nil
}

// Session is one isolated browser tab backed by its own Chrome process.
type Session struct {
	ctx        context.Context
	cancel     context.CancelFunc
	profileDir string
	navTimeout time.Duration
	logger     *slog.Logger
	closed     bool
}

func (s *Session) run(actions ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(s.ctx, s.navTimeout)
	defer cancel()
	return chromedp.Run(ctx, actions...)
}

// Navigate loads url and waits for the document body.
func (s *Session) Navigate(url string) error {
	if err := s.run(chromedp.Navigate(url), chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

// Exists reports whether the CSS selector matches any element right now.
// Unlike chromedp's query actions it never waits for the element to appear.
func (s *Session) Exists(sel string) (bool, error) {
	var found bool
	if err := s.run(chromedp.Evaluate(existsScript(sel), &found)); err != nil {
		return false, fmt.Errorf("query %s: %w", sel, err)
	}
	return found, nil
}

func existsScript(sel string) string {
	return fmt.Sprintf(`document.querySelector(%q) !== null`, sel)
}

// Clear empties a prefilled input.
func (s *Session) Clear(sel string) error {
	if err := s.run(chromedp.Clear(sel, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("clear %s: %w", sel, err)
	}
	return nil
}

// Type sends keystrokes to the element matched by sel.
func (s *Session) Type(sel, text string) error {
	if err := s.run(chromedp.SendKeys(sel, text, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("type into %s: %w", sel, err)
	}
	return nil
}

// ClickAndWait clicks sel and blocks until the next page load event.
func (s *Session) ClickAndWait(sel string) error {
	ctx, cancel := context.WithTimeout(s.ctx, s.navTimeout)
	defer cancel()

	loaded := make(chan struct{}, 1)
	chromedp.ListenTarget(ctx, func(ev any) {
		if _, ok := ev.(*page.EventLoadEventFired); ok {
			select {
			case loaded <- struct{}{}:
			default:
			}
		}
	})

	if err := chromedp.Run(ctx, chromedp.Click(sel, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("click %s: %w", sel, err)
	}

	select {
	case <-loaded:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for navigation: %w", ctx.Err())
	}
}

// Close shuts Chrome down and removes the profile directory. Safe to call
// more than once.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	err := chromedp.Cancel(s.ctx)
	s.cancel()
	if rmErr := os.RemoveAll(s.profileDir); rmErr != nil && err == nil {
		err = fmt.Errorf("remove profile dir: %w", rmErr)
	}
	s.logger.Debug("browser session closed", "profile", s.profileDir)
	return err
}
