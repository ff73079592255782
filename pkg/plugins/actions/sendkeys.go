package actions

import (
	"context"
	"time"

	"github.com/g4-api/g4-plugins-go/pkg/session"
	"github.com/g4-api/g4-plugins-go/pkg/types"
)

// SendKeys waits for the element addressed by the rule's locator and fills
// it with the rule's resolved argument text.
type SendKeys struct {
	Session     *session.Context
	WaitTimeout time.Duration
}

// Invoke implements registry.Action.
func (a *SendKeys) Invoke(ctx context.Context, rule *types.ActionRule) (*types.PluginResponse, error) {
	element, err := waitForRuleElement(ctx, a.Session, rule, a.WaitTimeout)
	if err != nil {
		return nil, err
	}
	if err := element.Fill(rule.Argument); err != nil {
		return nil, err
	}
	return types.NewPluginResponse(), nil
}
