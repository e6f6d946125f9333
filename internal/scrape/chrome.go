package scrape

import (
	"context"
	"errors"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const screenshotTimeout = 30 * time.Second

// ChromeOptions configures the headless Chrome browser.
type ChromeOptions struct {
	Headless  bool
	ExecPath  string
	UserAgent string
}

// ChromeBrowser drives a local Chrome/Chromium through the DevTools protocol.
type ChromeBrowser struct {
	opts ChromeOptions
}

// NewChromeBrowser creates a ChromeBrowser.
func NewChromeBrowser(opts ChromeOptions) *ChromeBrowser {
	return &ChromeBrowser{opts: opts}
}

// Open starts a browser process with a single tab.
func (b *ChromeBrowser) Open(ctx context.Context) (Session, error) {
	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts, chromedp.Flag("headless", b.opts.Headless))
	if b.opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(b.opts.ExecPath))
	}
	if b.opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(b.opts.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	// The first Run starts the browser. Later timeouts derive from tabCtx
	// and must not own the browser's lifetime.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, eris.Wrap(err, "chrome: start browser")
	}

	return &chromeSession{
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
	}, nil
}

type chromeSession struct {
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
}

func (s *chromeSession) Navigate(ctx context.Context, url string, timeout time.Duration) (*Snapshot, error) {
	loadCtx, cancel := context.WithTimeout(s.tabCtx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	idle := make(chan struct{}, 1)
	chromedp.ListenTarget(loadCtx, func(ev any) {
		if e, ok := ev.(*page.EventLifecycleEvent); ok && e.Name == "networkIdle" {
			select {
			case idle <- struct{}{}:
			default:
			}
		}
	})

	if err := chromedp.Run(loadCtx,
		page.SetLifecycleEventsEnabled(true),
		chromedp.Navigate(url),
	); err != nil {
		return nil, eris.Wrapf(err, "chrome: navigate %s", url)
	}

	select {
	case <-idle:
	case <-loadCtx.Done():
		if ctx.Err() != nil {
			return nil, eris.Wrapf(ctx.Err(), "chrome: navigate %s", url)
		}
		// The load event fired; long-polling pages may never go idle.
		zap.L().Debug("chrome: network idle not reached, using loaded page", zap.String("url", url))
	}

	readCtx, readCancel := context.WithTimeout(s.tabCtx, timeout)
	defer readCancel()

	var snap Snapshot
	if err := chromedp.Run(readCtx,
		chromedp.Location(&snap.URL),
		chromedp.OuterHTML("html", &snap.HTML, chromedp.ByQuery),
	); err != nil {
		return nil, eris.Wrapf(err, "chrome: read page %s", url)
	}
	return &snap, nil
}

func (s *chromeSession) Screenshot(ctx context.Context) ([]byte, error) {
	shotCtx, cancel := context.WithTimeout(s.tabCtx, screenshotTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var buf []byte
	// Quality 100 selects PNG encoding.
	if err := chromedp.Run(shotCtx, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return nil, eris.Wrap(err, "chrome: screenshot")
	}
	return buf, nil
}

func (s *chromeSession) Close() error {
	err := chromedp.Cancel(s.tabCtx)
	s.tabCancel()
	s.allocCancel()
	if err != nil && !errors.Is(err, context.Canceled) {
		return eris.Wrap(err, "chrome: close")
	}
	return nil
}
