package actions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/g4-api/g4-plugins-go/pkg/session"
	"github.com/g4-api/g4-plugins-go/pkg/types"
)

type fakeElement struct {
	clicked bool
	filled  string
	text    string
	err     error
}

func (e *fakeElement) Click() error { e.clicked = true; return e.err }
func (e *fakeElement) Fill(text string) error {
	e.filled = text
	return e.err
}
func (e *fakeElement) Text() (string, error) { return e.text, e.err }

type fakeDriver struct {
	element      *fakeElement
	waitErr      error
	source       string
	navigated    string
	navigateErr  error
	lastStrategy session.Strategy
	lastSelector string
	lastTimeout  time.Duration
}

func (d *fakeDriver) Navigate(_ context.Context, url string) error {
	d.navigated = url
	return d.navigateErr
}

func (d *fakeDriver) WaitForElement(_ context.Context, strategy session.Strategy, selector string, timeout time.Duration) (session.Element, error) {
	d.lastStrategy = strategy
	d.lastSelector = selector
	d.lastTimeout = timeout
	if d.waitErr != nil {
		return nil, d.waitErr
	}
	return d.element, nil
}

func (d *fakeDriver) PageSource(context.Context) (string, error) { return d.source, nil }
func (d *fakeDriver) URL() string                                { return "about:blank" }
func (d *fakeDriver) Close() error                               { return nil }

func newTestSession(driver *fakeDriver) *session.Context {
	return &session.Context{ID: "s1", Driver: driver}
}

func TestInvokeClick(t *testing.T) {
	driver := &fakeDriver{element: &fakeElement{}}
	action := &InvokeClick{Session: newTestSession(driver), WaitTimeout: 2 * time.Second}

	response, err := action.Invoke(context.Background(), &types.ActionRule{OnElement: "//button[@id='go']"})
	require.NoError(t, err)
	assert.Equal(t, types.StatusSuccess, response.Status)
	assert.True(t, driver.element.clicked)
	assert.Equal(t, session.StrategyXpath, driver.lastStrategy, "empty locator defaults to Xpath")
	assert.Equal(t, "//button[@id='go']", driver.lastSelector)
	assert.Equal(t, 2*time.Second, driver.lastTimeout)
}

func TestInvokeClick_CssLocator(t *testing.T) {
	driver := &fakeDriver{element: &fakeElement{}}
	action := &InvokeClick{Session: newTestSession(driver)}

	_, err := action.Invoke(context.Background(), &types.ActionRule{Locator: "CssSelector", OnElement: "#go"})
	require.NoError(t, err)
	assert.Equal(t, session.StrategyCssSelector, driver.lastStrategy)
	assert.Equal(t, DefaultWaitTimeout, driver.lastTimeout, "zero timeout falls back to the default")
}

func TestInvokeClick_MissingOnElement(t *testing.T) {
	driver := &fakeDriver{element: &fakeElement{}}
	action := &InvokeClick{Session: newTestSession(driver)}

	_, err := action.Invoke(context.Background(), &types.ActionRule{})

	var validationErr *types.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "onElement", validationErr.Field)
	assert.Empty(t, driver.lastSelector, "driver must not be touched")
}

func TestInvokeClick_UnknownLocator(t *testing.T) {
	driver := &fakeDriver{element: &fakeElement{}}
	action := &InvokeClick{Session: newTestSession(driver)}

	_, err := action.Invoke(context.Background(), &types.ActionRule{Locator: "Telepathy", OnElement: "//a"})

	var validationErr *types.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "locator", validationErr.Field)
}

func TestInvokeClick_WaitFailurePropagates(t *testing.T) {
	driver := &fakeDriver{waitErr: errors.New("element not found")}
	action := &InvokeClick{Session: newTestSession(driver)}

	_, err := action.Invoke(context.Background(), &types.ActionRule{OnElement: "//a"})
	assert.EqualError(t, err, "element not found")
}

func TestSendKeys(t *testing.T) {
	driver := &fakeDriver{element: &fakeElement{}}
	action := &SendKeys{Session: newTestSession(driver)}

	response, err := action.Invoke(context.Background(), &types.ActionRule{
		OnElement: "//input[@name='q']",
		Argument:  "MMXXIV",
	})
	require.NoError(t, err)
	assert.Equal(t, types.StatusSuccess, response.Status)
	assert.Equal(t, "MMXXIV", driver.element.filled)
}

func TestOpenUrl(t *testing.T) {
	driver := &fakeDriver{}
	action := &OpenUrl{Session: newTestSession(driver)}

	response, err := action.Invoke(context.Background(), &types.ActionRule{Argument: "https://example.com"})
	require.NoError(t, err)
	assert.Equal(t, types.StatusSuccess, response.Status)
	assert.Equal(t, "https://example.com", driver.navigated)
}

func TestOpenUrl_MissingArgument(t *testing.T) {
	driver := &fakeDriver{}
	action := &OpenUrl{Session: newTestSession(driver)}

	_, err := action.Invoke(context.Background(), &types.ActionRule{})

	var validationErr *types.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "argument", validationErr.Field)
	assert.Empty(t, driver.navigated)
}

func TestExtractText_FromElement(t *testing.T) {
	driver := &fakeDriver{element: &fakeElement{text: "  Hello, world  "}}
	action := &ExtractText{Session: newTestSession(driver)}

	response, err := action.Invoke(context.Background(), &types.ActionRule{OnElement: "//h1"})
	require.NoError(t, err)
	assert.Equal(t, "Hello, world", response.Entity["Text"])

	require.Len(t, response.Extractions, 1)
	extraction := response.Extractions[0]
	assert.Equal(t, "ExtractText", extraction.Key)
	require.Len(t, extraction.Entities, 1)
	assert.Equal(t, "Hello, world", extraction.Entities[0].Content["Text"])
	require.NotNil(t, extraction.Session)
	assert.Equal(t, "s1", extraction.Session.ID)
}

func TestExtractText_FromPageSource(t *testing.T) {
	driver := &fakeDriver{source: `<html>
		<head><title>ignored</title><style>body { color: red }</style></head>
		<body>
			<script>var skipped = true;</script>
			<h1>Heading</h1>
			<!-- comment -->
			<p>First <b>bold</b> paragraph.</p>
			<noscript>skipped too</noscript>
		</body>
	</html>`}
	action := &ExtractText{Session: newTestSession(driver)}

	response, err := action.Invoke(context.Background(), &types.ActionRule{})
	require.NoError(t, err)
	assert.Equal(t, "Heading First bold paragraph.", response.Entity["Text"])
}

func TestExtractVisibleText_SkipsInvisibleNodes(t *testing.T) {
	text, err := extractVisibleText(`<div>a<template>hidden</template>b</div>`)
	require.NoError(t, err)
	assert.Equal(t, "a b", text)
}
