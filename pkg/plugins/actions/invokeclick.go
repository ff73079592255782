// Package actions contains the built-in Action plugins: session-bound
// operations executed through the dispatcher against a borrowed driver
// handle.
package actions

import (
	"context"
	"time"

	"github.com/g4-api/g4-plugins-go/pkg/session"
	"github.com/g4-api/g4-plugins-go/pkg/types"
)

// DefaultWaitTimeout bounds how long element-targeting actions wait for
// their element to appear.
const DefaultWaitTimeout = 10 * time.Second

// InvokeClick waits for the element addressed by the rule's locator and
// clicks it.
type InvokeClick struct {
	Session     *session.Context
	WaitTimeout time.Duration
}

// Invoke implements registry.Action.
func (a *InvokeClick) Invoke(ctx context.Context, rule *types.ActionRule) (*types.PluginResponse, error) {
	element, err := waitForRuleElement(ctx, a.Session, rule, a.WaitTimeout)
	if err != nil {
		return nil, err
	}
	if err := element.Click(); err != nil {
		return nil, err
	}
	return types.NewPluginResponse(), nil
}

// waitForRuleElement resolves the rule's locator strategy (Xpath when
// absent) and waits for the addressed element.
func waitForRuleElement(ctx context.Context, sess *session.Context, rule *types.ActionRule, timeout time.Duration) (session.Element, error) {
	strategy, err := session.ParseStrategy(rule.Locator)
	if err != nil {
		return nil, &types.ValidationError{Field: "locator", Message: err.Error()}
	}
	if rule.OnElement == "" {
		return nil, &types.ValidationError{Field: "onElement", Message: "element selector is missing"}
	}
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}
	return sess.Driver.WaitForElement(ctx, strategy, rule.OnElement, timeout)
}
