package chp

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/smartcart/backend/config"
	"github.com/smartcart/backend/internal/domain"
)

// Page controls on chp.co.il
const (
	locationInputSelector = "#shopping_address"
	productInputSelector  = "#product_name_or_barcode"
	resultsTableSelector  = ".results-table"
)

// domStableWindow is how long the page must stay unchanged after a submit
// before the autocomplete/navigation settle is considered finished
const domStableWindow = 300 * time.Millisecond

// SessionFactory launches browser sessions against chp.co.il. A weighted
// semaphore bounds the number of concurrently live browsers, since every
// in-flight batch owns its session exclusively.
type SessionFactory struct {
	cfg config.CHPConfig
	sem *semaphore.Weighted
}

// NewSessionFactory creates a session factory from CHP configuration.
func NewSessionFactory(cfg config.CHPConfig) *SessionFactory {
	maxSessions := cfg.MaxSessions
	if maxSessions <= 0 {
		maxSessions = 1
	}
	return &SessionFactory{
		cfg: cfg,
		sem: semaphore.NewWeighted(int64(maxSessions)),
	}
}

// NewSession launches a browser, loads the site and returns a ready session.
// The semaphore slot is held until the session is closed. Any failure here is
// fatal to the caller's batch: no item can be searched without a loaded site.
func (f *SessionFactory) NewSession(ctx context.Context) (domain.PriceSession, error) {
	if err := f.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquiring session slot: %w", err)
	}

	session, err := newSession(ctx, f.cfg, func() { f.sem.Release(1) })
	if err != nil {
		f.sem.Release(1)
		return nil, err
	}
	return session, nil
}

// sessionState tracks the per-item protocol position. Steps advance the
// state; submitting the next item's location loops back from resultsReady.
type sessionState int

const (
	stateCreated sessionState = iota
	stateReady
	stateLocationSet
	stateProductSet
	stateResultsReady
	stateClosed
)

// Session drives one rod browser through the chp.co.il search protocol. All
// methods must be called from a single flow; the session is not safe for
// concurrent use, matching its one-batch ownership.
type Session struct {
	cfg      config.CHPConfig
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	limiter  *rate.Limiter
	state    sessionState

	closeOnce sync.Once
	release   func()
}

func newSession(ctx context.Context, cfg config.CHPConfig, release func()) (*Session, error) {
	// Steps-per-minute keeps interaction with the site polite
	perSecond := rate.Limit(float64(cfg.StepsPerMinute) / 60.0)
	if cfg.StepsPerMinute <= 0 {
		perSecond = rate.Inf
	}

	s := &Session{
		cfg:     cfg,
		limiter: rate.NewLimiter(perSecond, 1),
		state:   stateCreated,
		release: release,
	}

	log.Printf("[CHP] launching browser (headless=%v)", cfg.Headless)

	// Leakless deadlocks on Windows, see go-rod/rod#853
	s.launcher = launcher.New().
		Headless(cfg.Headless).
		Leakless(runtime.GOOS != "windows")

	controlURL, err := s.launcher.Launch()
	if err != nil {
		s.launcher.Cleanup()
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	s.browser = rod.New().ControlURL(controlURL)
	if err := s.browser.Connect(); err != nil {
		s.launcher.Cleanup()
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}

	s.page, err = stealth.Page(s.browser)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("creating page: %w", err)
	}

	if err := s.navigate(ctx); err != nil {
		s.Close()
		return nil, err
	}

	s.state = stateReady
	log.Printf("[CHP] session ready at %s", cfg.BaseURL)
	return s, nil
}

// navigate loads the target site and waits for it to become interactive.
func (s *Session) navigate(ctx context.Context) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	page := s.page.Context(ctx).Timeout(s.cfg.PageLoadTimeout)
	if err := page.Navigate(s.cfg.BaseURL); err != nil {
		return fmt.Errorf("navigating to %s: %w", s.cfg.BaseURL, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("loading %s: %w", s.cfg.BaseURL, err)
	}
	return nil
}

// SubmitLocation types the shopping address into the location control and
// submits it. Failure is per-item: the session stays usable for the next
// item. Typing select-all-then-input overwrites whatever the previous item
// left in the field, so no stale location leaks between items.
func (s *Session) SubmitLocation(ctx context.Context, location string) error {
	if s.state == stateClosed || s.state == stateCreated {
		return fmt.Errorf("session not ready for location input")
	}

	if err := s.fillAndSubmit(ctx, locationInputSelector, location); err != nil {
		return err
	}

	s.state = stateLocationSet
	return nil
}

// SubmitProduct types the localized product term into the product control and
// submits it. Requires a submitted location for the current item.
func (s *Session) SubmitProduct(ctx context.Context, term string) error {
	if s.state != stateLocationSet {
		return fmt.Errorf("session has no submitted location")
	}

	if err := s.fillAndSubmit(ctx, productInputSelector, term); err != nil {
		return err
	}

	s.state = stateProductSet
	return nil
}

// fillAndSubmit locates a control within the element timeout, replaces its
// content with text, presses Enter and waits for the page to settle.
func (s *Session) fillAndSubmit(ctx context.Context, selector, text string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	el, err := s.page.Context(ctx).Timeout(s.cfg.ElementTimeout).Element(selector)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrControlUnavailable, selector, err)
	}

	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("%w: clearing %s: %v", domain.ErrControlUnavailable, selector, err)
	}
	if err := el.Input(text); err != nil {
		return fmt.Errorf("%w: typing into %s: %v", domain.ErrControlUnavailable, selector, err)
	}
	if err := el.Type(input.Enter); err != nil {
		return fmt.Errorf("%w: submitting %s: %v", domain.ErrControlUnavailable, selector, err)
	}

	// Let client-side autocomplete/navigation finish; a page that never
	// settles inside the window is not an item failure
	if err := s.page.Context(ctx).Timeout(s.cfg.SettleTimeout).WaitStable(domStableWindow); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("[CHP] page did not settle after %s: %v", selector, err)
	}

	return nil
}

// ResultsHTML waits for the results table and returns the page markup. A page
// where the table never appears yields an empty string and no error, so the
// item reports empty offer lists instead of failing the batch.
func (s *Session) ResultsHTML(ctx context.Context) (string, error) {
	if s.state != stateProductSet {
		return "", fmt.Errorf("session has no submitted product")
	}
	// Next item starts over from location input
	s.state = stateResultsReady

	_, err := s.page.Context(ctx).Timeout(s.cfg.ResultsTimeout).Element(resultsTableSelector)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		log.Printf("[CHP] results table did not appear: %v", err)
		return "", nil
	}

	html, err := s.page.HTML()
	if err != nil {
		return "", fmt.Errorf("reading results page: %w", err)
	}
	return html, nil
}

// Close releases the page, the browser and the launcher, and frees the
// factory's session slot. Safe to call more than once; resources are
// released exactly once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.state = stateClosed

		if s.page != nil {
			if err := s.page.Close(); err != nil {
				log.Printf("[CHP] closing page: %v", err)
			}
		}
		if s.browser != nil {
			if err := s.browser.Close(); err != nil {
				log.Printf("[CHP] closing browser: %v", err)
			}
		}
		if s.launcher != nil {
			s.launcher.Cleanup()
		}
		if s.release != nil {
			s.release()
		}

		log.Printf("[CHP] session closed")
	})
	return nil
}
