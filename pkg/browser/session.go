package browser

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/avatarcrew/crewd/pkg/logging"
)

// Session owns a single browser process, one isolation context, and one
// page. It is either fully started (all handles populated) or fully
// stopped (all handles nil); no partial state survives a call boundary.
//
// All actions are serialized through a mutex: at most one action runs
// against the page at any time. A failed action never poisons the
// session; the next action on the same session is attempted fresh.
type Session struct {
	mu sync.Mutex

	engine  Engine
	browser Browser
	context Context
	page    Page

	opts Options
	log  *logging.Logger
}

// NewSession creates a stopped session bound to the given engine. The
// engine's own lifecycle (runtime start/stop) belongs to the caller; the
// session only launches and closes browsers through it.
func NewSession(engine Engine, opts Options) *Session {
	opts.applyDefaults()
	log, _ := logging.NewLogger("browser") // falls back to stderr on error
	return &Session{
		engine: engine,
		opts:   opts,
		log:    log,
	}
}

// Running reports whether the session is started.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page != nil
}

// Start launches the browser, creates the isolation context, and opens
// the page. Starting an already-started session is rejected; the caller
// must Close first. (Silently replacing the handles would leak the prior
// browser process.)
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.page != nil {
		return errAlreadyStarted()
	}

	browser, err := s.engine.Launch(LaunchOptions{Headless: s.opts.Headless})
	if err != nil {
		s.log.Errorf("failed to launch browser: %v", err)
		return errEngine("failed to launch browser", err)
	}

	context, err := browser.NewContext(s.opts.Viewport)
	if err != nil {
		_ = browser.Close()
		s.log.Errorf("failed to create context: %v", err)
		return errEngine("failed to create context", err)
	}

	page, err := context.NewPage()
	if err != nil {
		_ = context.Close()
		_ = browser.Close()
		s.log.Errorf("failed to create page: %v", err)
		return errEngine("failed to create page", err)
	}

	page.SetDefaultTimeout(s.opts.TimeoutMs)

	s.browser = browser
	s.context = context
	s.page = page
	s.log.Infof("browser started (headless=%v, viewport=%dx%d)",
		s.opts.Headless, s.opts.Viewport.Width, s.opts.Viewport.Height)
	return nil
}

// Navigate loads a URL. The wait strategy degrades in three tiers:
//
//  1. goto waiting for domcontentloaded, then up to half the budget for
//     the network to go idle;
//  2. if the idle wait fails, report a soft success: the DOM did load,
//     so return the current URL/title with a warning and status 200;
//  3. if goto itself fails, reload the page once waiting for
//     domcontentloaded and report a recovery warning on success, or a
//     structured error with a retry suggestion on failure.
//
// Ads, trackers, and slow third-party scripts routinely prevent a clean
// network-idle signal; the policy favors returning something usable over
// raising whenever DOM content is present.
func (s *Session) Navigate(url string, timeoutMs float64) (*NavigationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.page == nil {
		return nil, errNotInitialized()
	}
	if timeoutMs <= 0 {
		timeoutMs = s.opts.TimeoutMs
	}

	url = normalizeURL(url)
	s.log.Infof("navigating to %s (timeout=%.0fms)", url, timeoutMs)

	status, err := s.page.Goto(url, WaitDOMContentLoaded, timeoutMs)
	if err != nil {
		return s.recoverNavigation(url, err)
	}

	if idleErr := s.page.WaitForLoadState(WaitNetworkIdle, timeoutMs/2); idleErr != nil {
		// The DOM is loaded; only background network activity is still
		// pending. Report what is there.
		s.log.Warnf("navigation to %s timed out, continuing with partial load: %v", url, idleErr)
		title, _ := s.page.Title()
		return &NavigationResult{
			URL:     s.page.URL(),
			Title:   title,
			Status:  200,
			Warning: fmt.Sprintf("navigation timed out but continuing with available content: %v", idleErr),
			Message: fmt.Sprintf("navigation to %s timed out, but continuing with available content", url),
		}, nil
	}

	if status == 0 {
		status = 200
	}
	title, _ := s.page.Title()
	final := s.page.URL()
	return &NavigationResult{
		URL:     final,
		Title:   title,
		Status:  status,
		Message: fmt.Sprintf("successfully navigated to %s", final),
	}, nil
}

// recoverNavigation is tier three: goto failed outright (DNS failure,
// connection refused, navigation timeout). One reload is attempted; a
// second failure surfaces as a structured error with a suggestion, since
// a partial page may still be present.
func (s *Session) recoverNavigation(url string, navErr error) (*NavigationResult, error) {
	s.log.Errorf("navigation to %s failed: %v", url, navErr)

	reloadErr := s.page.Reload(WaitDOMContentLoaded)
	if reloadErr == nil {
		title, _ := s.page.Title()
		s.log.Infof("page recovered after navigation error")
		return &NavigationResult{
			URL:     s.page.URL(),
			Title:   title,
			Status:  200,
			Warning: fmt.Sprintf("recovered from navigation error: %v", navErr),
			Message: "page recovered after navigation error",
		}, nil
	}
	s.log.Errorf("failed to recover page after navigation error: %v", reloadErr)

	kind := KindEngineFailure
	if errors.Is(navErr, ErrEngineTimeout) {
		kind = KindTimeout
	}
	return nil, &Error{
		Kind:       kind,
		Message:    fmt.Sprintf("navigation to %s failed: %v", url, navErr),
		Suggestion: "The page may have loaded partially. Try getting content or taking a screenshot.",
		cause:      navErr,
	}
}

// Click clicks the first element matching the selector, waiting up to
// the default budget for it to become actionable. No retry is attempted;
// the caller decides whether to retry with a different selector.
func (s *Session) Click(selector string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.page == nil {
		return errNotInitialized()
	}

	if err := s.page.Click(selector, DefaultTimeoutMs); err != nil {
		if errors.Is(err, ErrEngineTimeout) {
			s.log.Errorf("click timed out: %s", selector)
			return &Error{
				Kind:    KindTimeout,
				Message: fmt.Sprintf("click timed out: %s", selector),
				cause:   err,
			}
		}
		s.log.Errorf("click failed: %v", err)
		return errEngine("click failed", err)
	}
	return nil
}

// TypeText fills the input matching the selector with text, replacing
// any existing value.
func (s *Session) TypeText(selector, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.page == nil {
		return errNotInitialized()
	}

	if err := s.page.Fill(selector, text, DefaultTimeoutMs); err != nil {
		if errors.Is(err, ErrEngineTimeout) {
			s.log.Errorf("type text timed out: %s", selector)
			return &Error{
				Kind:    KindTimeout,
				Message: fmt.Sprintf("type text timed out: %s", selector),
				cause:   err,
			}
		}
		s.log.Errorf("type text failed: %v", err)
		return errEngine("type text failed", err)
	}
	return nil
}

// GetContent extracts the page's main text: the first non-empty match in
// a ladder of semantic containers, whitespace-collapsed and capped at
// DefaultMaxLength characters. On failure the result shape is still
// returned (empty fields, current URL) alongside the error so callers
// always receive something well-formed.
func (s *Session) GetContent() (*ContentResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.page == nil {
		return &ContentResult{}, errNotInitialized()
	}

	title, err := s.page.Title()
	if err != nil {
		s.log.Errorf("failed to get page title: %v", err)
		return &ContentResult{URL: s.page.URL()}, errEngine("failed to get page content", err)
	}

	value, err := s.page.Evaluate(mainContentScript)
	if err != nil {
		s.log.Errorf("failed to get page content: %v", err)
		return &ContentResult{URL: s.page.URL()}, errEngine("failed to get page content", err)
	}

	content, _ := value.(string)
	content = truncate(collapseWhitespace(content), DefaultMaxLength)

	return &ContentResult{
		Title:   title,
		Content: content,
		URL:     s.page.URL(),
	}, nil
}

// GetHTML returns the page HTML reduced to its semantic structure
// (scripts, styles, and presentation noise removed), capped at
// DefaultMaxLength characters of text.
func (s *Session) GetHTML() (*HTMLResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.page == nil {
		return &HTMLResult{}, errNotInitialized()
	}

	raw, err := s.page.Content()
	if err != nil {
		s.log.Errorf("failed to get page html: %v", err)
		return &HTMLResult{URL: s.page.URL()}, errEngine("failed to get page html", err)
	}

	reduced, err := reduceHTML(raw, DefaultMaxLength)
	if err != nil {
		s.log.Errorf("failed to reduce page html: %v", err)
		return &HTMLResult{URL: s.page.URL()}, errEngine("failed to reduce page html", err)
	}

	title := reduced.Title
	if title == "" {
		title, _ = s.page.Title()
	}

	return &HTMLResult{
		Title:     title,
		HTML:      reduced.HTML,
		URL:       s.page.URL(),
		Truncated: reduced.Truncated,
	}, nil
}

// TakeScreenshot captures the page as a PNG, base64-encoded. Capture can
// fail while the page is in a navigating transient state; that surfaces
// as a structured error like any other engine failure.
func (s *Session) TakeScreenshot() (*ScreenshotResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.page == nil {
		return nil, errNotInitialized()
	}

	data, err := s.page.Screenshot()
	if err != nil {
		s.log.Errorf("screenshot failed: %v", err)
		return nil, errEngine("screenshot failed", err)
	}

	return &ScreenshotResult{
		Screenshot:  base64.StdEncoding.EncodeToString(data),
		ContentType: "image/png",
	}, nil
}

// GetCookies returns the isolation context's cookies as-is.
func (s *Session) GetCookies() ([]Cookie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.page == nil {
		return nil, errNotInitialized()
	}

	cookies, err := s.context.Cookies()
	if err != nil {
		s.log.Errorf("failed to get cookies: %v", err)
		return nil, errEngine("failed to get cookies", err)
	}
	return cookies, nil
}

// AddCookies adds cookies to the isolation context. Cookie shape is not
// validated beyond what the engine itself enforces.
func (s *Session) AddCookies(cookies []Cookie) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.page == nil {
		return errNotInitialized()
	}

	if err := s.context.AddCookies(cookies); err != nil {
		s.log.Errorf("failed to add cookies: %v", err)
		return errEngine("failed to add cookies", err)
	}
	return nil
}

// DeleteCookies removes the context cookies matching each entry's name,
// domain, and path. Entries with none of those fields set are skipped
// rather than wiping the whole store.
func (s *Session) DeleteCookies(cookies []Cookie) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.page == nil {
		return errNotInitialized()
	}

	// A failed entry must not leave the rest of the list unapplied, so
	// every entry is attempted and failures are reported together.
	var errs []error
	for _, c := range cookies {
		filter := CookieFilter{Name: c.Name, Domain: c.Domain, Path: c.Path}
		if filter.IsZero() {
			continue
		}
		if err := s.context.ClearCookies(filter); err != nil {
			s.log.Errorf("failed to delete cookie %q: %v", c.Name, err)
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		msg := fmt.Sprintf("failed to delete %d of %d cookie entries", len(errs), len(cookies))
		return errEngine(msg, errors.Join(errs...))
	}
	return nil
}

// Close tears down page, context, and browser and resets the session to
// stopped. It is idempotent: closing a stopped session is a no-op
// success. Teardown errors are ignored so cleanup always completes.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.page == nil && s.browser == nil {
		return nil
	}

	if s.page != nil {
		_ = s.page.Close()
	}
	if s.context != nil {
		_ = s.context.Close()
	}
	if s.browser != nil {
		_ = s.browser.Close()
	}

	s.page = nil
	s.context = nil
	s.browser = nil
	s.log.Infof("browser closed")
	return nil
}

// normalizeURL prefixes https:// when no scheme is present.
func normalizeURL(url string) string {
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return url
	}
	return "https://" + url
}
