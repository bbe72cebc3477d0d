package browser

import (
	"errors"
	"fmt"
	"io"

	"github.com/playwright-community/playwright-go"
)

// playwrightEngine adapts the Playwright runtime to the Engine interface.
type playwrightEngine struct {
	pw *playwright.Playwright
}

// NewPlaywrightEngine installs the Playwright driver and browsers if
// needed and starts the runtime. Driver output is discarded; it would
// otherwise interleave with the daemon's own logs.
func NewPlaywrightEngine() (Engine, error) {
	opts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}

	if err := playwright.Install(opts); err != nil {
		return nil, fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	return &playwrightEngine{pw: pw}, nil
}

func (e *playwrightEngine) Launch(opts LaunchOptions) (Browser, error) {
	b, err := e.pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		return nil, wrapEngineErr(err)
	}
	return &playwrightBrowser{browser: b}, nil
}

func (e *playwrightEngine) Stop() error {
	return e.pw.Stop()
}

type playwrightBrowser struct {
	browser playwright.Browser
}

func (b *playwrightBrowser) NewContext(viewport Viewport) (Context, error) {
	ctx, err := b.browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  viewport.Width,
			Height: viewport.Height,
		},
	})
	if err != nil {
		return nil, wrapEngineErr(err)
	}
	return &playwrightContext{ctx: ctx}, nil
}

func (b *playwrightBrowser) Close() error {
	return b.browser.Close()
}

type playwrightContext struct {
	ctx playwright.BrowserContext
}

func (c *playwrightContext) NewPage() (Page, error) {
	page, err := c.ctx.NewPage()
	if err != nil {
		return nil, wrapEngineErr(err)
	}
	return &playwrightPage{page: page}, nil
}

func (c *playwrightContext) Cookies() ([]Cookie, error) {
	raw, err := c.ctx.Cookies()
	if err != nil {
		return nil, wrapEngineErr(err)
	}

	cookies := make([]Cookie, 0, len(raw))
	for _, pc := range raw {
		cookie := Cookie{
			Name:     pc.Name,
			Value:    pc.Value,
			Domain:   pc.Domain,
			Path:     pc.Path,
			Expires:  pc.Expires,
			HTTPOnly: pc.HttpOnly,
			Secure:   pc.Secure,
		}
		if pc.SameSite != nil {
			cookie.SameSite = string(*pc.SameSite)
		}
		cookies = append(cookies, cookie)
	}
	return cookies, nil
}

func (c *playwrightContext) AddCookies(cookies []Cookie) error {
	converted := make([]playwright.OptionalCookie, 0, len(cookies))
	for _, ck := range cookies {
		oc := playwright.OptionalCookie{
			Name:  ck.Name,
			Value: ck.Value,
		}
		if ck.URL != "" {
			oc.URL = playwright.String(ck.URL)
		}
		if ck.Domain != "" {
			oc.Domain = playwright.String(ck.Domain)
		}
		if ck.Path != "" {
			oc.Path = playwright.String(ck.Path)
		}
		if ck.Expires != 0 {
			oc.Expires = playwright.Float(ck.Expires)
		}
		if ck.HTTPOnly {
			oc.HttpOnly = playwright.Bool(true)
		}
		if ck.Secure {
			oc.Secure = playwright.Bool(true)
		}
		if ck.SameSite != "" {
			sameSite := playwright.SameSiteAttribute(ck.SameSite)
			oc.SameSite = &sameSite
		}
		converted = append(converted, oc)
	}

	if err := c.ctx.AddCookies(converted); err != nil {
		return wrapEngineErr(err)
	}
	return nil
}

func (c *playwrightContext) ClearCookies(filter CookieFilter) error {
	opts := playwright.BrowserContextClearCookiesOptions{}
	if filter.Name != "" {
		opts.Name = filter.Name
	}
	if filter.Domain != "" {
		opts.Domain = filter.Domain
	}
	if filter.Path != "" {
		opts.Path = filter.Path
	}
	if err := c.ctx.ClearCookies(opts); err != nil {
		return wrapEngineErr(err)
	}
	return nil
}

func (c *playwrightContext) Close() error {
	return c.ctx.Close()
}

type playwrightPage struct {
	page playwright.Page
}

func (p *playwrightPage) Goto(url string, waitUntil WaitState, timeoutMs float64) (int, error) {
	opts := playwright.PageGotoOptions{
		WaitUntil: waitUntilState(waitUntil),
	}
	if timeoutMs > 0 {
		opts.Timeout = playwright.Float(timeoutMs)
	}

	resp, err := p.page.Goto(url, opts)
	if err != nil {
		return 0, wrapEngineErr(err)
	}
	if resp == nil {
		return 0, nil
	}
	return resp.Status(), nil
}

func (p *playwrightPage) WaitForLoadState(state WaitState, timeoutMs float64) error {
	opts := playwright.PageWaitForLoadStateOptions{
		State: loadState(state),
	}
	if timeoutMs > 0 {
		opts.Timeout = playwright.Float(timeoutMs)
	}
	if err := p.page.WaitForLoadState(opts); err != nil {
		return wrapEngineErr(err)
	}
	return nil
}

func (p *playwrightPage) Reload(waitUntil WaitState) error {
	_, err := p.page.Reload(playwright.PageReloadOptions{
		WaitUntil: waitUntilState(waitUntil),
	})
	if err != nil {
		return wrapEngineErr(err)
	}
	return nil
}

func (p *playwrightPage) Click(selector string, timeoutMs float64) error {
	opts := playwright.PageClickOptions{}
	if timeoutMs > 0 {
		opts.Timeout = playwright.Float(timeoutMs)
	}
	if err := p.page.Click(selector, opts); err != nil {
		return wrapEngineErr(err)
	}
	return nil
}

func (p *playwrightPage) Fill(selector, value string, timeoutMs float64) error {
	opts := playwright.PageFillOptions{}
	if timeoutMs > 0 {
		opts.Timeout = playwright.Float(timeoutMs)
	}
	if err := p.page.Fill(selector, value, opts); err != nil {
		return wrapEngineErr(err)
	}
	return nil
}

func (p *playwrightPage) Evaluate(script string) (any, error) {
	value, err := p.page.Evaluate(script)
	if err != nil {
		return nil, wrapEngineErr(err)
	}
	return value, nil
}

func (p *playwrightPage) Content() (string, error) {
	content, err := p.page.Content()
	if err != nil {
		return "", wrapEngineErr(err)
	}
	return content, nil
}

func (p *playwrightPage) Screenshot() ([]byte, error) {
	data, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		Type: playwright.ScreenshotTypePng,
	})
	if err != nil {
		return nil, wrapEngineErr(err)
	}
	return data, nil
}

func (p *playwrightPage) Title() (string, error) {
	return p.page.Title()
}

func (p *playwrightPage) URL() string {
	return p.page.URL()
}

func (p *playwrightPage) SetDefaultTimeout(timeoutMs float64) {
	p.page.SetDefaultTimeout(timeoutMs)
}

func (p *playwrightPage) Close() error {
	return p.page.Close()
}

// waitUntilState maps a WaitState to Playwright's navigation enum.
func waitUntilState(state WaitState) *playwright.WaitUntilState {
	switch state {
	case WaitDOMContentLoaded:
		return playwright.WaitUntilStateDomcontentloaded
	case WaitNetworkIdle:
		return playwright.WaitUntilStateNetworkidle
	default:
		return playwright.WaitUntilStateLoad
	}
}

// loadState maps a WaitState to Playwright's load-state enum.
func loadState(state WaitState) *playwright.LoadState {
	switch state {
	case WaitDOMContentLoaded:
		return playwright.LoadStateDomcontentloaded
	case WaitNetworkIdle:
		return playwright.LoadStateNetworkidle
	default:
		return playwright.LoadStateLoad
	}
}

// wrapEngineErr tags Playwright timeout errors with ErrEngineTimeout so
// the controller can classify them without importing the driver package.
func wrapEngineErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%w: %v", ErrEngineTimeout, err)
	}
	return err
}
