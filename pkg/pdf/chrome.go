package pdf

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

const defaultRenderTimeout = 60 * time.Second

// ChromeEngine renders HTML to PDF with headless Chromium.
//
// The browser is started (or attached to, when a control URL is set) on first use
// and shared; each render opens its own page.
type ChromeEngine struct {
	controlURL string
	binPath    string
	noSandbox  bool
	timeout    time.Duration

	mu       sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher
	closed   bool
}

// ChromeOption configures a ChromeEngine.
type ChromeOption func(*ChromeEngine)

// WithControlURL attaches to a running browser's DevTools endpoint instead of launching one.
func WithControlURL(u string) ChromeOption {
	return func(e *ChromeEngine) {
		e.controlURL = u
	}
}

// WithBrowserBin sets the Chromium binary used when launching.
func WithBrowserBin(path string) ChromeOption {
	return func(e *ChromeEngine) {
		e.binPath = path
	}
}

// WithNoSandbox disables the Chromium sandbox, needed in most containers.
func WithNoSandbox(v bool) ChromeOption {
	return func(e *ChromeEngine) {
		e.noSandbox = v
	}
}

// WithRenderTimeout bounds a single render.
func WithRenderTimeout(d time.Duration) ChromeOption {
	return func(e *ChromeEngine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// NewChromeEngine creates an engine. No browser is started until the first render.
func NewChromeEngine(opts ...ChromeOption) *ChromeEngine {
	e := &ChromeEngine{timeout: defaultRenderTimeout}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Render implements Engine.
func (e *ChromeEngine) Render(ctx context.Context, html string, ps PageSettings) ([]byte, error) {
	browser, err := e.connect()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	page, err := browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer page.Close()

	if err := page.SetDocumentContent(html); err != nil {
		return nil, fmt.Errorf("set content: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait load: %w", err)
	}

	width, height, margin := ps.dimensions()
	stream, err := page.PDF(&proto.PagePrintToPDF{
		Landscape:       ps.Landscape,
		PrintBackground: true,
		PaperWidth:      &width,
		PaperHeight:     &height,
		MarginTop:       &margin,
		MarginBottom:    &margin,
		MarginLeft:      &margin,
		MarginRight:     &margin,
	})
	if err != nil {
		return nil, fmt.Errorf("print: %w", err)
	}

	return io.ReadAll(stream)
}

// Ping reports whether the browser can be reached.
func (e *ChromeEngine) Ping(ctx context.Context) error {
	browser, err := e.connect()
	if err != nil {
		return err
	}
	_, err = browser.Context(ctx).Version()
	return err
}

// Close shuts the browser down. It is safe to call more than once.
func (e *ChromeEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.closed = true
	var err error
	if e.browser != nil {
		err = e.browser.Close()
		e.browser = nil
	}
	if e.launcher != nil {
		e.launcher.Cleanup()
		e.launcher = nil
	}
	return err
}

func (e *ChromeEngine) connect() (*rod.Browser, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrEngineClosed
	}
	if e.browser != nil {
		return e.browser, nil
	}

	controlURL := e.controlURL
	if controlURL != "" {
		u, err := launcher.ResolveURL(controlURL)
		if err != nil {
			return nil, fmt.Errorf("resolve browser url: %w", err)
		}
		controlURL = u
	} else {
		l := launcher.New().Headless(true).NoSandbox(e.noSandbox)
		if e.binPath != "" {
			l = l.Bin(e.binPath)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		e.launcher = l
		controlURL = u
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		if e.launcher != nil {
			e.launcher.Kill()
			e.launcher = nil
		}
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	e.browser = browser
	return browser, nil
}
