package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/g4-api/g4-plugins-go/pkg/dispatch"
	"github.com/g4-api/g4-plugins-go/pkg/macro"
	"github.com/g4-api/g4-plugins-go/pkg/manifest"
	"github.com/g4-api/g4-plugins-go/pkg/registry"
	"github.com/g4-api/g4-plugins-go/pkg/server"
	"github.com/g4-api/g4-plugins-go/pkg/session"
	"github.com/g4-api/g4-plugins-go/pkg/types"
)

type nullDriver struct{}

func (nullDriver) Navigate(context.Context, string) error { return nil }
func (nullDriver) WaitForElement(context.Context, session.Strategy, string, time.Duration) (session.Element, error) {
	return nil, nil
}
func (nullDriver) PageSource(context.Context) (string, error) { return "", nil }
func (nullDriver) URL() string                                { return "about:blank" }
func (nullDriver) Close() error                               { return nil }

// fakeMounter hands out in-memory sessions and counts mounts so tests can
// assert that failing requests never reach the driver layer.
type fakeMounter struct {
	mu     sync.Mutex
	mounts int
}

func (m *fakeMounter) Mount(_ context.Context, _, sessionID string) (*session.Context, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mounts++
	return &session.Context{ID: sessionID, Driver: nullDriver{}}, nil
}

type romanStub struct{}

func (romanStub) Invoke(arguments map[string]any) (string, error) {
	if n, _ := arguments["Number"].(int64); n == 100 {
		return "C", nil
	}
	return "I", nil
}

type echoAction struct{}

func (echoAction) Invoke(_ context.Context, rule *types.ActionRule) (*types.PluginResponse, error) {
	response := types.NewPluginResponse()
	response.Entity["Argument"] = rule.Argument
	return response, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *fakeMounter) {
	t.Helper()

	example := []manifest.Example{
		{Description: []string{"x"}, Rule: types.ActionRule{PluginName: "SendKeys"}},
	}
	reg, err := registry.NewBuilder().
		AddManifests(
			manifest.Manifest{
				Key: "ConvertToRoman", Aliases: []string{"ToRoman"},
				PluginType: manifest.TypeMacro, Examples: example,
				Parameters: []manifest.Parameter{{Name: "Number", Type: manifest.ParamInteger, Mandatory: true}},
			},
			manifest.Manifest{Key: "SendKeys", Aliases: []string{"TypeText"}, PluginType: manifest.TypeAction, Examples: example},
		).
		RegisterMacro("ConvertToRoman", romanStub{}).
		RegisterAction("SendKeys", func(*session.Context) registry.Action { return echoAction{} }).
		Build()
	require.NoError(t, err)

	resolver := macro.New(reg, nil)
	guards := session.NewGuardSet(time.Second)
	dispatcher := dispatch.New(reg, resolver, guards)

	mounter := &fakeMounter{}
	srv := server.New(reg, dispatcher, mounter)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, mounter
}

func TestListManifests(t *testing.T) {
	ts, _ := newTestServer(t)

	res, err := http.Get(ts.URL + "/api/v4/g4/plugins")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var manifests []manifest.Manifest
	require.NoError(t, json.NewDecoder(res.Body).Decode(&manifests))
	require.Len(t, manifests, 2)
	// stable order: actions first, then macros
	assert.Equal(t, "SendKeys", manifests[0].Key)
	assert.Equal(t, "ConvertToRoman", manifests[1].Key)
}

func TestGetManifestByName(t *testing.T) {
	ts, _ := newTestServer(t)

	for _, name := range []string{"ConvertToRoman", "ToRoman", "converttoroman"} {
		res, err := http.Get(ts.URL + "/api/v4/g4/plugins/" + name)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, res.StatusCode, "lookup %q", name)

		var m manifest.Manifest
		require.NoError(t, json.NewDecoder(res.Body).Decode(&m))
		res.Body.Close()
		assert.Equal(t, "ConvertToRoman", m.Key)
	}

	res, err := http.Get(ts.URL + "/api/v4/g4/plugins/NoSuchPlugin")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestGetManifestByTypeAndKey(t *testing.T) {
	ts, _ := newTestServer(t)

	res, err := http.Get(ts.URL + "/api/v4/g4/plugins/type/Macro/key/ConvertToRoman")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	t.Run("type mismatch is 404", func(t *testing.T) {
		res, err := http.Get(ts.URL + "/api/v4/g4/plugins/type/Action/key/ConvertToRoman")
		require.NoError(t, err)
		res.Body.Close()
		assert.Equal(t, http.StatusNotFound, res.StatusCode)
	})

	t.Run("unknown type is 404", func(t *testing.T) {
		res, err := http.Get(ts.URL + "/api/v4/g4/plugins/type/Widget/key/ConvertToRoman")
		require.NoError(t, err)
		res.Body.Close()
		assert.Equal(t, http.StatusNotFound, res.StatusCode)
	})
}

func postInvoke(t *testing.T, ts *httptest.Server, pluginType, body string) *http.Response {
	t.Helper()
	res, err := http.Post(ts.URL+"/api/v4/g4/plugins/"+pluginType+"/invoke", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return res
}

func TestInvoke_Success(t *testing.T) {
	ts, mounter := newTestServer(t)

	res := postInvoke(t, ts, "Action", `{
		"entity": {
			"pluginName": "SendKeys",
			"onElement": "//input",
			"argument": "{{$ConvertToRoman --Number:100}}"
		},
		"driverUrl": "http://driver:4444",
		"session": "s1"
	}`)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var response types.PluginResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&response))
	assert.Equal(t, types.StatusSuccess, response.Status)
	assert.Equal(t, "C", response.Entity["Argument"], "argument must be macro-resolved before the plugin runs")
	assert.Equal(t, 1, mounter.mounts)
}

func TestInvoke_MacroPlugin(t *testing.T) {
	ts, mounter := newTestServer(t)

	res := postInvoke(t, ts, "Macro", `{
		"entity": {
			"pluginName": "ConvertToRoman",
			"argument": "{{$ConvertToRoman --Number:100}}"
		},
		"driverUrl": "http://driver:4444",
		"session": "s1"
	}`)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var response types.PluginResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&response))
	assert.Equal(t, types.StatusSuccess, response.Status)
	assert.Equal(t, "C", response.Entity[types.MacroResultKey])
	assert.Equal(t, 1, mounter.mounts, "macro invocations still mount the session")
}

func TestInvoke_MissingParametersIs404(t *testing.T) {
	ts, mounter := newTestServer(t)

	cases := map[string]string{
		"missing pluginName": `{"entity": {}, "driverUrl": "http://d", "session": "s1"}`,
		"missing driverUrl":  `{"entity": {"pluginName": "SendKeys"}, "session": "s1"}`,
		"missing session":    `{"entity": {"pluginName": "SendKeys"}, "driverUrl": "http://d"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			res := postInvoke(t, ts, "Action", body)
			res.Body.Close()
			assert.Equal(t, http.StatusNotFound, res.StatusCode)
		})
	}
	assert.Zero(t, mounter.mounts, "invalid requests must not mount sessions")
}

func TestInvoke_UnknownPluginIs404(t *testing.T) {
	ts, _ := newTestServer(t)

	res := postInvoke(t, ts, "Action",
		`{"entity": {"pluginName": "NoSuchPlugin"}, "driverUrl": "http://d", "session": "s1"}`)
	res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

var traceIDPattern = regexp.MustCompile(`^PTN[A-Z0-9]{10}:\d{8}$`)

func TestInvoke_MacroSyntaxErrorRendersErrorModel(t *testing.T) {
	ts, _ := newTestServer(t)

	res := postInvoke(t, ts, "Action", `{
		"entity": {"pluginName": "SendKeys", "argument": "{{$ConvertToRoman --Number:5"},
		"driverUrl": "http://d",
		"session": "s1"
	}`)
	defer res.Body.Close()
	require.Equal(t, http.StatusBadRequest, res.StatusCode)

	var envelope types.ErrorModel
	require.NoError(t, json.NewDecoder(res.Body).Decode(&envelope))
	assert.Equal(t, http.StatusBadRequest, envelope.Status)
	assert.Regexp(t, traceIDPattern, envelope.TraceID)
	assert.Equal(t, http.MethodPost, envelope.RouteData.Method)
	assert.Contains(t, envelope.RouteData.Path, "/invoke")
	assert.NotEmpty(t, envelope.Errors)
}

func TestInvoke_ValidationErrorRendersErrorModel(t *testing.T) {
	ts, _ := newTestServer(t)

	res := postInvoke(t, ts, "Action", `{
		"entity": {"pluginName": "SendKeys", "argument": "{{$ConvertToRoman}}"},
		"driverUrl": "http://d",
		"session": "s1"
	}`)
	defer res.Body.Close()
	require.Equal(t, http.StatusBadRequest, res.StatusCode)

	var envelope types.ErrorModel
	require.NoError(t, json.NewDecoder(res.Body).Decode(&envelope))
	assert.Contains(t, envelope.Errors, "Number")
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t)

	res, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}
