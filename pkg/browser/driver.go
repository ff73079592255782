// Package browser implements the session.Driver boundary on Playwright and
// mounts remote browser sessions by driver URL and session ID.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/g4-api/g4-plugins-go/pkg/session"
)

// driver adapts one Playwright page to the session.Driver contract. The
// dispatcher serializes access per session, so no internal locking is
// needed.
type driver struct {
	browser playwright.Browser
	page    playwright.Page
}

func (d *driver) Navigate(_ context.Context, url string) error {
	if _, err := d.page.Goto(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (d *driver) WaitForElement(_ context.Context, strategy session.Strategy, selector string, timeout time.Duration) (session.Element, error) {
	sel, err := playwrightSelector(strategy, selector)
	if err != nil {
		return nil, err
	}
	handle, err := d.page.WaitForSelector(sel, playwright.PageWaitForSelectorOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return nil, fmt.Errorf("failed waiting for element %s: %w", selector, err)
	}
	if handle == nil {
		return nil, fmt.Errorf("element %s not found", selector)
	}
	return &element{handle: handle}, nil
}

func (d *driver) PageSource(_ context.Context) (string, error) {
	content, err := d.page.Content()
	if err != nil {
		return "", fmt.Errorf("failed to read page source: %w", err)
	}
	return content, nil
}

func (d *driver) URL() string {
	return d.page.URL()
}

func (d *driver) Close() error {
	if err := d.browser.Close(); err != nil {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	return nil
}

// playwrightSelector maps an engine locator strategy onto Playwright
// selector syntax.
func playwrightSelector(strategy session.Strategy, selector string) (string, error) {
	switch strategy {
	case session.StrategyXpath:
		return "xpath=" + selector, nil
	case session.StrategyCssSelector:
		return "css=" + selector, nil
	case session.StrategyLinkText:
		return fmt.Sprintf(`a:has-text(%q)`, selector), nil
	case session.StrategyTagName:
		return selector, nil
	default:
		return "", fmt.Errorf("unsupported locator strategy %q", strategy)
	}
}

// element adapts a Playwright element handle.
type element struct {
	handle playwright.ElementHandle
}

func (e *element) Click() error {
	if err := e.handle.Click(); err != nil {
		return fmt.Errorf("failed to click element: %w", err)
	}
	return nil
}

func (e *element) Fill(text string) error {
	if err := e.handle.Fill(text); err != nil {
		return fmt.Errorf("failed to fill element: %w", err)
	}
	return nil
}

func (e *element) Text() (string, error) {
	text, err := e.handle.TextContent()
	if err != nil {
		return "", fmt.Errorf("failed to read element text: %w", err)
	}
	return text, nil
}
