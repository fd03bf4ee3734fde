package scraper

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
)

type BrowserOptions struct {
	Headless          bool
	ProfileDir        string
	NavigationTimeout time.Duration
}

// BrowserFetcher drives a Chrome instance whose profile directory keeps the
// login session between restarts.
type BrowserFetcher struct {
	site    SiteConfig
	opts    BrowserOptions
	mu      sync.Mutex
	browser *rod.Browser
	page    *rod.Page
}

func NewBrowserFetcher(site SiteConfig, opts BrowserOptions) *BrowserFetcher {
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = 30 * time.Second
	}
	return &BrowserFetcher{site: site, opts: opts}
}

func (f *BrowserFetcher) ensurePage() (*rod.Page, error) {
	if f.page != nil {
		return f.page, nil
	}

	launch := launcher.New().
		Headless(f.opts.Headless).
		Set(flags.Flag("disable-blink-features"), "AutomationControlled").
		Set(flags.Flag("user-agent"), f.site.UserAgent).
		Set(flags.Flag("no-sandbox")).
		Set(flags.Flag("disable-dev-shm-usage"))
	if f.opts.ProfileDir != "" {
		if err := os.MkdirAll(f.opts.ProfileDir, 0o755); err != nil {
			return nil, fmt.Errorf("create profile dir: %w", err)
		}
		launch = launch.UserDataDir(f.opts.ProfileDir)
	}

	browser, err := startBrowser(launch, f.opts.ProfileDir == "", connectBrowser)
	if err != nil {
		return nil, err
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("open page: %w", err)
	}

	f.browser = browser
	f.page = page
	return page, nil
}

// chromeProcess is the part of *launcher.Launcher that startBrowser drives.
type chromeProcess interface {
	Launch() (string, error)
	Kill()
	Cleanup()
}

// startBrowser launches Chrome and connects to it. A failed connect kills the
// process; Cleanup also deletes the user data dir, so it only runs for
// throwaway profiles.
func startBrowser(proc chromeProcess, tempProfile bool, connect func(controlURL string) (*rod.Browser, error)) (*rod.Browser, error) {
	controlURL, err := proc.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chrome: %w", err)
	}
	browser, err := connect(controlURL)
	if err != nil {
		proc.Kill()
		if tempProfile {
			proc.Cleanup()
		}
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}
	return browser, nil
}

func connectBrowser(controlURL string) (*rod.Browser, error) {
	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, err
	}
	return browser, nil
}

func (f *BrowserFetcher) Fetch(ctx context.Context, rawURL string) (*Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	page, err := f.ensurePage()
	if err != nil {
		return nil, err
	}

	scoped := page.Context(ctx).Timeout(f.opts.NavigationTimeout)
	if err := scoped.Navigate(rawURL); err != nil {
		return nil, fmt.Errorf("navigate %s: %w", rawURL, err)
	}
	if err := scoped.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait load %s: %w", rawURL, err)
	}
	return snapshot(scoped)
}

// Search types the phrase into the site search box and submits it.
func (f *BrowserFetcher) Search(ctx context.Context, phrase string) (*Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	page, err := f.ensurePage()
	if err != nil {
		return nil, err
	}

	scoped := page.Context(ctx).Timeout(f.opts.NavigationTimeout)
	if err := scoped.Navigate(f.site.BaseURL); err != nil {
		return nil, fmt.Errorf("navigate home: %w", err)
	}
	if err := scoped.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait home: %w", err)
	}

	field, err := scoped.Element(f.site.Search.Input)
	if err != nil {
		return nil, fmt.Errorf("find search input: %w", err)
	}
	if err := field.SelectAllText(); err == nil {
		_ = field.Input("")
	}
	if err := field.Input(phrase); err != nil {
		return nil, fmt.Errorf("type search phrase: %w", err)
	}

	wait := scoped.WaitNavigation(proto.PageLifecycleEventNameLoad)
	if err := field.Type(input.Enter); err != nil {
		return nil, fmt.Errorf("submit search: %w", err)
	}
	wait()

	// The results container is optional; an empty search renders without it.
	_, _ = scoped.Timeout(5 * time.Second).Element(f.site.Search.Container)
	return snapshot(scoped)
}

func (f *BrowserFetcher) SetCookies(ctx context.Context, cookies []Cookie) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	page, err := f.ensurePage()
	if err != nil {
		return err
	}

	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, cookie := range cookies {
		param := &proto.NetworkCookieParam{
			Name:     cookie.Name,
			Value:    cookie.Value,
			Domain:   cookie.Domain,
			Path:     cookie.Path,
			Secure:   cookie.Secure,
			HTTPOnly: cookie.HTTPOnly,
		}
		if cookie.Expires > 0 {
			param.Expires = proto.TimeSinceEpoch(cookie.Expires)
		}
		params = append(params, param)
	}

	if err := page.Context(ctx).SetCookies(params); err != nil {
		return fmt.Errorf("set browser cookies: %w", err)
	}
	return nil
}

func (f *BrowserFetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.browser == nil {
		return nil
	}
	err := f.browser.Close()
	f.browser = nil
	f.page = nil
	if err != nil {
		return fmt.Errorf("close browser: %w", err)
	}
	return nil
}

func snapshot(page *rod.Page) (*Document, error) {
	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("read page html: %w", err)
	}
	info, err := page.Info()
	if err != nil {
		return nil, fmt.Errorf("read page info: %w", err)
	}
	return &Document{URL: info.URL, Body: []byte(html)}, nil
}
