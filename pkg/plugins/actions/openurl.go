package actions

import (
	"context"

	"github.com/g4-api/g4-plugins-go/pkg/session"
	"github.com/g4-api/g4-plugins-go/pkg/types"
)

// OpenUrl navigates the session to the URL in the rule's resolved argument.
type OpenUrl struct {
	Session *session.Context
}

// Invoke implements registry.Action.
func (a *OpenUrl) Invoke(ctx context.Context, rule *types.ActionRule) (*types.PluginResponse, error) {
	if rule.Argument == "" {
		return nil, &types.ValidationError{Field: "argument", Message: "target URL is missing"}
	}
	if err := a.Session.Driver.Navigate(ctx, rule.Argument); err != nil {
		return nil, err
	}
	return types.NewPluginResponse(), nil
}
