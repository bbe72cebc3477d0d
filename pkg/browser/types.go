package browser

// Options configures a session before Start.
type Options struct {
	// Headless controls whether the browser runs without a visible window
	Headless bool

	// Viewport sets the initial viewport size
	Viewport Viewport

	// TimeoutMs sets the default timeout for operations (in milliseconds)
	TimeoutMs float64
}

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int
	Height int
}

// LaunchOptions configures the browser process itself.
type LaunchOptions struct {
	Headless bool
}

// NavigationResult reports the outcome of a navigation. Warning is set
// when the navigation degraded but usable content is present.
type NavigationResult struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Status  int    `json:"status"`
	Message string `json:"message,omitempty"`
	Warning string `json:"warning,omitempty"`
}

// ContentResult carries extracted page text. The shape is always fully
// populated on success and zero-valued (except URL) on failure, so callers
// never have to branch on missing fields.
type ContentResult struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	URL     string `json:"url"`
}

// HTMLResult carries reduced page HTML.
type HTMLResult struct {
	Title     string `json:"title"`
	HTML      string `json:"html"`
	URL       string `json:"url"`
	Truncated bool   `json:"truncated"`
}

// ScreenshotResult carries a base64-encoded capture of the page.
type ScreenshotResult struct {
	Screenshot  string `json:"screenshot"`
	ContentType string `json:"type"`
}

// Default values for session operations
const (
	DefaultTimeoutMs      = 30000.0 // 30 seconds in milliseconds
	DefaultMaxLength      = 10000   // 10,000 characters
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
)

func (o *Options) applyDefaults() {
	if o.Viewport.Width == 0 {
		o.Viewport.Width = DefaultViewportWidth
	}
	if o.Viewport.Height == 0 {
		o.Viewport.Height = DefaultViewportHeight
	}
	if o.TimeoutMs == 0 {
		o.TimeoutMs = DefaultTimeoutMs
	}
}
