package actions

import (
	"context"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/g4-api/g4-plugins-go/pkg/session"
	"github.com/g4-api/g4-plugins-go/pkg/types"
)

// ExtractText extracts visible text from the page, or from a single element
// when the rule addresses one. The result lands both in the response entity
// under "Text" and as an extraction record.
type ExtractText struct {
	Session     *session.Context
	WaitTimeout time.Duration
}

// Invoke implements registry.Action.
func (a *ExtractText) Invoke(ctx context.Context, rule *types.ActionRule) (*types.PluginResponse, error) {
	var text string
	if rule.OnElement != "" {
		element, err := waitForRuleElement(ctx, a.Session, rule, a.WaitTimeout)
		if err != nil {
			return nil, err
		}
		elementText, err := element.Text()
		if err != nil {
			return nil, err
		}
		text = strings.TrimSpace(elementText)
	} else {
		source, err := a.Session.Driver.PageSource(ctx)
		if err != nil {
			return nil, err
		}
		pageText, err := extractVisibleText(source)
		if err != nil {
			return nil, err
		}
		text = pageText
	}

	response := types.NewPluginResponse()
	response.Entity["Text"] = text
	response.Extractions = append(response.Extractions, types.Extraction{
		Key: "ExtractText",
		Entities: []types.Entity{
			{Content: map[string]any{"Text": text}},
		},
		Session: &types.SessionModel{ID: a.Session.ID},
	})
	return response, nil
}

// extractVisibleText parses HTML and collects the text of visible nodes,
// dropping scripts, styles, and markup noise.
func extractVisibleText(source string) (string, error) {
	doc, err := html.Parse(strings.NewReader(source))
	if err != nil {
		return "", &types.ValidationError{Field: "pageSource", Message: "failed to parse page HTML: " + err.Error()}
	}

	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "noscript", "template", "head":
				return
			}
		case html.TextNode:
			if text := strings.TrimSpace(n.Data); text != "" {
				parts = append(parts, text)
			}
		case html.CommentNode:
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return strings.Join(parts, " "), nil
}
