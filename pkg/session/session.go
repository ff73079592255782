// Package session defines the boundary to the external browser driver: the
// single-writer driver handle, element strategies, and the per-session
// serialization guards the dispatcher acquires around every Action
// invocation.
package session

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Strategy selects how an element is located on the page.
type Strategy string

const (
	StrategyXpath       Strategy = "Xpath"
	StrategyCssSelector Strategy = "CssSelector"
	StrategyLinkText    Strategy = "LinkText"
	StrategyTagName     Strategy = "TagName"
)

// ParseStrategy normalizes a locator string from an action rule. An empty
// locator selects Xpath, the engine default.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "xpath":
		return StrategyXpath, nil
	case "cssselector", "css":
		return StrategyCssSelector, nil
	case "linktext":
		return StrategyLinkText, nil
	case "tagname":
		return StrategyTagName, nil
	default:
		return "", fmt.Errorf("unknown locator strategy %q", s)
	}
}

// Element is one located page element.
type Element interface {
	Click() error
	Fill(text string) error
	Text() (string, error)
}

// Driver is the externally supplied browser handle. A Driver processes one
// command at a time per session; callers must hold the session guard while
// using it.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	WaitForElement(ctx context.Context, strategy Strategy, selector string, timeout time.Duration) (Element, error)
	PageSource(ctx context.Context) (string, error)
	URL() string
	Close() error
}

// Context binds one session identity to its driver handle. The mount layer
// owns the handle's lifecycle; the dispatcher only borrows it for the
// duration of one invocation and never destroys it.
type Context struct {
	ID     string
	Driver Driver
}
