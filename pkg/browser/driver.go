package browser

import "errors"

// ErrEngineTimeout marks engine errors caused by an exhausted wait budget.
// Driver implementations wrap their runtime's timeout errors with this
// sentinel so the controller can distinguish timeouts from other failures.
var ErrEngineTimeout = errors.New("engine timeout")

// WaitState names the load milestones a navigation can wait for.
type WaitState string

const (
	WaitLoad             WaitState = "load"
	WaitDOMContentLoaded WaitState = "domcontentloaded"
	WaitNetworkIdle      WaitState = "networkidle"
)

// Engine is the controller's gateway to the browser automation runtime.
// The production implementation drives Playwright; tests substitute stubs.
type Engine interface {
	// Launch starts a browser process.
	Launch(opts LaunchOptions) (Browser, error)

	// Stop shuts down the runtime itself. Launched browsers must be
	// closed separately before calling Stop.
	Stop() error
}

// Browser is a running browser process.
type Browser interface {
	// NewContext creates an isolated cookie/storage scope.
	NewContext(viewport Viewport) (Context, error)

	Close() error
}

// Context is an isolation context: cookies and storage set here are
// invisible to other contexts of the same browser.
type Context interface {
	// NewPage opens a page within the context.
	NewPage() (Page, error)

	Cookies() ([]Cookie, error)
	AddCookies(cookies []Cookie) error

	// ClearCookies removes the cookies matching the filter. A zero
	// filter matches nothing.
	ClearCookies(filter CookieFilter) error

	Close() error
}

// Page is a single open page. All waits take a millisecond budget; a
// budget of zero means the page's default timeout.
type Page interface {
	// Goto navigates and waits for the given load state. It returns the
	// HTTP status of the main document, or 0 when the engine produced no
	// response object (e.g. about: URLs).
	Goto(url string, waitUntil WaitState, timeoutMs float64) (status int, err error)

	// WaitForLoadState waits until the page reaches the given state.
	WaitForLoadState(state WaitState, timeoutMs float64) error

	// Reload re-navigates to the current URL.
	Reload(waitUntil WaitState) error

	Click(selector string, timeoutMs float64) error
	Fill(selector, value string, timeoutMs float64) error

	// Evaluate runs a script in the page and returns its value.
	Evaluate(script string) (any, error)

	// Content returns the page's full HTML.
	Content() (string, error)

	// Screenshot captures the page as PNG bytes.
	Screenshot() ([]byte, error)

	Title() (string, error)
	URL() string

	SetDefaultTimeout(timeoutMs float64)
	Close() error
}

// Cookie is an opaque cookie record. The controller passes cookies
// through without interpreting them; validation is the engine's job.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain,omitempty"`
	Path     string  `json:"path,omitempty"`
	URL      string  `json:"url,omitempty"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"httpOnly,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	SameSite string  `json:"sameSite,omitempty"`
}

// CookieFilter selects cookies for removal. Empty fields are wildcards,
// but at least one field must be set.
type CookieFilter struct {
	Name   string
	Domain string
	Path   string
}

// IsZero reports whether the filter would match nothing.
func (f CookieFilter) IsZero() bool {
	return f.Name == "" && f.Domain == "" && f.Path == ""
}
