package scrape

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
)

// ErrScreenshotUnsupported is returned by sessions that cannot render pages.
var ErrScreenshotUnsupported = eris.New("screenshot not supported by this browser")

// Snapshot is the rendered state of a page after navigation.
type Snapshot struct {
	// URL is the final URL after redirects.
	URL  string
	HTML string
}

// Browser opens browsing sessions.
type Browser interface {
	Open(ctx context.Context) (Session, error)
}

// Session is one browser instance. Callers must Close it on every path.
type Session interface {
	// Navigate loads url and waits for the network to settle, bounded by timeout.
	Navigate(ctx context.Context, url string, timeout time.Duration) (*Snapshot, error)
	// Screenshot captures the current page as a full-page PNG.
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

// WithSession opens a session, runs fn, and always closes the session, even
// when fn panics. A panic is returned as an error.
func WithSession(ctx context.Context, b Browser, fn func(Session) error) (err error) {
	sess, err := b.Open(ctx)
	if err != nil {
		return eris.Wrap(err, "browser: open session")
	}
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("browser: session panic: %v", r)
		}
		if cerr := sess.Close(); cerr != nil && err == nil {
			err = eris.Wrap(cerr, "browser: close session")
		}
	}()
	return fn(sess)
}
