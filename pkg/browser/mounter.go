package browser

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/playwright-community/playwright-go"

	"github.com/g4-api/g4-plugins-go/pkg/session"
)

// Mounter attaches to externally running browsers and hands out
// session.Context handles. Mounted connections are cached by driver URL and
// session ID so repeated invocations against one session reuse one driver.
// The mounter owns the driver lifecycle; the dispatcher only borrows.
type Mounter struct {
	mu          sync.Mutex
	playwright  *playwright.Playwright
	mounted     map[string]*session.Context
	initialized bool
}

// NewMounter creates an uninitialized mounter. Initialize must be called
// before the first Mount.
func NewMounter() *Mounter {
	return &Mounter{
		mounted: make(map[string]*session.Context),
	}
}

// Initialize installs and starts the Playwright runtime. Output is
// discarded so driver noise never reaches the service logs unfiltered.
func (m *Mounter) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}
	opts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	if err := playwright.Install(opts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}
	pw, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}
	m.playwright = pw
	m.initialized = true
	return nil
}

// Mount attaches to the browser behind driverURL and binds it to the given
// session identity. Subsequent mounts with the same URL and session return
// the cached context.
func (m *Mounter) Mount(_ context.Context, driverURL, sessionID string) (*session.Context, error) {
	key := driverURL + "|" + sessionID

	m.mu.Lock()
	defer m.mu.Unlock()

	if sess, ok := m.mounted[key]; ok {
		return sess, nil
	}
	if !m.initialized {
		return nil, fmt.Errorf("mounter not initialized")
	}

	browser, err := m.playwright.Chromium.ConnectOverCDP(driverURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to driver at %s: %w", driverURL, err)
	}

	page, err := firstPage(browser)
	if err != nil {
		browser.Close()
		return nil, err
	}

	sess := &session.Context{
		ID:     sessionID,
		Driver: &driver{browser: browser, page: page},
	}
	m.mounted[key] = sess
	return sess, nil
}

// firstPage returns the browser's current page, creating a context and page
// when the remote end has none yet.
func firstPage(browser playwright.Browser) (playwright.Page, error) {
	contexts := browser.Contexts()
	if len(contexts) > 0 {
		if pages := contexts[0].Pages(); len(pages) > 0 {
			return pages[0], nil
		}
		page, err := contexts[0].NewPage()
		if err != nil {
			return nil, fmt.Errorf("failed to open page on mounted browser: %w", err)
		}
		return page, nil
	}
	browserCtx, err := browser.NewContext()
	if err != nil {
		return nil, fmt.Errorf("failed to create context on mounted browser: %w", err)
	}
	page, err := browserCtx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to open page on mounted browser: %w", err)
	}
	return page, nil
}

// Unmount drops a cached session and closes its driver.
func (m *Mounter) Unmount(driverURL, sessionID string) error {
	key := driverURL + "|" + sessionID

	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.mounted[key]
	if !ok {
		return fmt.Errorf("session %q not mounted", sessionID)
	}
	delete(m.mounted, key)
	return sess.Driver.Close()
}

// Shutdown closes every mounted driver and stops the Playwright runtime.
func (m *Mounter) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for key, sess := range m.mounted {
		if err := sess.Driver.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(m.mounted, key)
	}
	if m.initialized && m.playwright != nil {
		if err := m.playwright.Stop(); err != nil {
			errs = append(errs, err)
		}
		m.initialized = false
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors during mounter shutdown: %v", errs)
	}
	return nil
}
