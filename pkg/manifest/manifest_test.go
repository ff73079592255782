package manifest

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/g4-api/g4-plugins-go/pkg/types"
)

func validManifest() Manifest {
	return Manifest{
		Key:        "ConvertToRoman",
		Aliases:    []string{"ToRoman"},
		PluginType: TypeMacro,
		Parameters: []Parameter{
			{Name: "Number", Type: ParamInteger, Mandatory: true},
		},
		Examples: []Example{
			{Description: []string{"example"}, Rule: types.ActionRule{PluginName: "SendKeys"}},
		},
	}
}

func TestParseType(t *testing.T) {
	for input, want := range map[string]Type{
		"Action": TypeAction,
		"action": TypeAction,
		"MACRO":  TypeMacro,
		"macro":  TypeMacro,
	} {
		got, err := ParseType(input)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseType("widget")
	var invalidErr *InvalidManifestError
	require.ErrorAs(t, err, &invalidErr)
}

func TestValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		m := validManifest()
		assert.NoError(t, m.Validate())
	})

	cases := []struct {
		name   string
		mutate func(*Manifest)
	}{
		{"blank key", func(m *Manifest) { m.Key = "  " }},
		{"unknown type", func(m *Manifest) { m.PluginType = "Widget" }},
		{"no examples", func(m *Manifest) { m.Examples = nil }},
		{"blank parameter name", func(m *Manifest) { m.Parameters[0].Name = "" }},
		{"unknown parameter type", func(m *Manifest) { m.Parameters[0].Type = "Decimal" }},
		{"duplicate parameter", func(m *Manifest) {
			m.Parameters = append(m.Parameters, Parameter{Name: "number", Type: ParamString})
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := validManifest()
			tc.mutate(&m)

			var invalidErr *InvalidManifestError
			require.ErrorAs(t, m.Validate(), &invalidErr)
		})
	}
}

func TestParameterLookup(t *testing.T) {
	m := validManifest()

	p, ok := m.Parameter("number")
	require.True(t, ok)
	assert.Equal(t, "Number", p.Name)

	_, ok = m.Parameter("missing")
	assert.False(t, ok)
}

func TestLoad(t *testing.T) {
	const doc = `{
		"key": "Math",
		"pluginType": "Macro",
		"examples": [{"description": ["x"], "rule": {"pluginName": "SendKeys"}}],
		"parameters": [{"name": "Expression", "type": "String", "mandatory": true}]
	}`
	m, err := Load(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "Math", m.Key)
	assert.Equal(t, TypeMacro, m.PluginType)
	require.Len(t, m.Parameters, 1)
	assert.True(t, m.Parameters[0].Mandatory)
}

func TestLoadFS(t *testing.T) {
	fsys := fstest.MapFS{
		"macros/math.json": &fstest.MapFile{Data: []byte(`{
			"key": "Math", "pluginType": "Macro",
			"examples": [{"description": ["x"], "rule": {"pluginName": "SendKeys"}}]
		}`)},
		"actions/click.json": &fstest.MapFile{Data: []byte(`{
			"key": "InvokeClick", "pluginType": "Action",
			"examples": [{"description": ["x"], "rule": {"pluginName": "InvokeClick"}}]
		}`)},
		"readme.md": &fstest.MapFile{Data: []byte("ignored")},
	}

	manifests, err := LoadFS(fsys)
	require.NoError(t, err)
	assert.Len(t, manifests, 2)
}

func TestLoadFS_InvalidManifestAborts(t *testing.T) {
	fsys := fstest.MapFS{
		"bad.json": &fstest.MapFile{Data: []byte(`{"key": "NoExamples", "pluginType": "Macro"}`)},
	}

	_, err := LoadFS(fsys)
	var invalidErr *InvalidManifestError
	require.ErrorAs(t, err, &invalidErr)
}
