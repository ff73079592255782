package types

// ActionRule is the action description submitted for invocation, before or
// after macro resolution. Locator, OnElement, and Argument are optional;
// an empty Locator means the plugin's default element strategy applies.
type ActionRule struct {
	PluginName string `json:"pluginName"`
	Locator    string `json:"locator,omitempty"`
	OnElement  string `json:"onElement,omitempty"`
	Argument   string `json:"argument,omitempty"`
}
