// Package login drives one scripted login attempt per account and turns
// whatever happens into a domain.Outcome.
package login

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"panelkeeper/internal/browser"
	"panelkeeper/internal/domain"
)

// Selectors the target panels expose. These must not change.
const (
	SelUsername = "#id_username"
	SelPassword = "#id_password"
	SelSubmit   = "#submit"
	SelLogout   = `a[href="/logout/"]`
)

// Pacing window applied after every attempt: [PaceMin, PaceMin+PaceSpread).
const (
	PaceMin    = 1000 * time.Millisecond
	PaceSpread = 5000 * time.Millisecond
)

var (
	ErrUsernameFieldNotFound = errors.New("username field not found")
	ErrPasswordFieldNotFound = errors.New("password field not found")
	ErrButtonNotFound        = errors.New("login button not found")
	ErrInvalidPanel          = errors.New("panel must be a bare hostname")
)

// Page is the subset of browser operations a login attempt needs.
// *browser.Session implements it.
type Page interface {
	Navigate(url string) error
	Exists(sel string) (bool, error)
	Clear(sel string) error
	Type(sel, text string) error
	ClickAndWait(sel string) error
	Close() error
}

// Opener acquires a fresh, isolated Page.
type Opener func(ctx context.Context) (Page, error)

// BridgeOpener adapts a browser.Bridge to an Opener.
func BridgeOpener(b *browser.Bridge) Opener {
	return func(ctx context.Context) (Page, error) {
		s, err := b.Open(ctx)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// Driver implements domain.Checker on top of a browser.
type Driver struct {
	open   Opener
	now    func() time.Time
	pace   func() time.Duration
	sleep  func(ctx context.Context, d time.Duration)
	logger *slog.Logger
}

type DriverConfig struct {
	Open   Opener
	Logger *slog.Logger

	// Test hooks; zero values use the real clock, rand and timer.
	Now   func() time.Time
	Pace  func() time.Duration
	Sleep func(ctx context.Context, d time.Duration)
}

var _ domain.Checker = (*Driver)(nil)

func NewDriver(cfg DriverConfig) *Driver {
	d := &Driver{
		open:   cfg.Open,
		now:    cfg.Now,
		pace:   cfg.Pace,
		sleep:  cfg.Sleep,
		logger: cfg.Logger,
	}
	if d.now == nil {
		d.now = time.Now
	}
	if d.pace == nil {
		d.pace = RandomPace
	}
	if d.sleep == nil {
		d.sleep = sleepCtx
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d
}

// RandomPace samples uniformly from [PaceMin, PaceMin+PaceSpread) at
// millisecond granularity.
func RandomPace() time.Duration {
	return PaceMin + time.Duration(rand.Int63n(PaceSpread.Milliseconds()))*time.Millisecond
}

func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// Check runs one login attempt. It always returns exactly one Outcome, the
// page is closed before the pacing delay starts, and panics inside the
// browser layer are reported as errors.
func (d *Driver) Check(ctx context.Context, acct domain.Account) (out domain.Outcome) {
	defer func() {
		delay := d.pace()
		d.logger.Debug("pacing before next account", "username", acct.Username, "delay", delay)
		d.sleep(ctx, delay)
	}()

	pg, err := d.open(ctx)
	if err != nil {
		return domain.Failed(acct.Username, fmt.Errorf("open browser: %w", err))
	}
	defer func() {
		if r := recover(); r != nil {
			out = domain.Failed(acct.Username, fmt.Errorf("panic: %v", r))
		}
		if err := pg.Close(); err != nil {
			d.logger.Warn("browser session close failed", "username", acct.Username, "err", err)
		}
	}()

	loggedIn, err := d.attempt(pg, acct)
	if err != nil {
		return domain.Failed(acct.Username, err)
	}
	if !loggedIn {
		return domain.AuthFailure(acct.Username)
	}
	return domain.Success(acct.Username, d.now())
}

func (d *Driver) attempt(pg Page, acct domain.Account) (bool, error) {
	if strings.ContainsAny(acct.Panel, "/?#") {
		return false, fmt.Errorf("%w: %q", ErrInvalidPanel, acct.Panel)
	}
	if err := pg.Navigate(acct.LoginURL()); err != nil {
		return false, err
	}

	ok, err := pg.Exists(SelUsername)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, ErrUsernameFieldNotFound
	}
	if err := pg.Clear(SelUsername); err != nil {
		return false, err
	}
	if err := pg.Type(SelUsername, acct.Username); err != nil {
		return false, err
	}

	ok, err = pg.Exists(SelPassword)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, ErrPasswordFieldNotFound
	}
	if err := pg.Type(SelPassword, acct.Password); err != nil {
		return false, err
	}

	ok, err = pg.Exists(SelSubmit)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, ErrButtonNotFound
	}
	if err := pg.ClickAndWait(SelSubmit); err != nil {
		return false, err
	}

	return pg.Exists(SelLogout)
}
