package types

// Invocation outcome statuses.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// MacroResultKey is the entity key under which Macro plugins place their
// scalar substitution result.
const MacroResultKey = "MacroResult"

// PluginResponse is the structured result of one plugin invocation. Besides
// the status and the errors map it carries the engine response channels:
// parameters to merge back into the ambient store, extractions, and the
// exceptions collected at the dispatch failure boundary.
type PluginResponse struct {
	Status                string              `json:"status"`
	ApplicationParameters map[string]string   `json:"applicationParameters"`
	DataProvider          []map[string]any    `json:"dataProvider"`
	Entity                map[string]any      `json:"entity"`
	Errors                map[string][]string `json:"errors,omitempty"`
	Exceptions            []Exception         `json:"exceptions"`
	Extractions           []Extraction        `json:"extractions"`
	SessionParameters     map[string]string   `json:"sessionParameters"`
}

// Exception describes one failure raised during plugin execution.
type Exception struct {
	PluginName      string `json:"pluginName"`
	Reference       any    `json:"reference"`
	RepeatReference int    `json:"repeatReference"`
	ReasonPhrase    string `json:"reasonPhrase"`
	Screenshots     string `json:"screenshots,omitempty"`
}

// Extraction is one extraction performed by an Action plugin.
type Extraction struct {
	Entities  []Entity      `json:"entities"`
	Key       string        `json:"key,omitempty"`
	Reference any           `json:"reference"`
	Session   *SessionModel `json:"session,omitempty"`
}

// Entity is a single extracted record.
type Entity struct {
	Content   map[string]any `json:"content"`
	Iteration int            `json:"iteration"`
}

// SessionModel identifies the session an extraction was taken from.
type SessionModel struct {
	ID          string `json:"id"`
	MachineIP   string `json:"machineIp,omitempty"`
	MachineName string `json:"machineName,omitempty"`
}

// NewPluginResponse returns a successful, empty response with all collection
// fields initialized so the JSON encoding carries empty containers rather
// than nulls.
func NewPluginResponse() *PluginResponse {
	return &PluginResponse{
		Status:                StatusSuccess,
		ApplicationParameters: map[string]string{},
		DataProvider:          []map[string]any{},
		Entity:                map[string]any{},
		Exceptions:            []Exception{},
		Extractions:           []Extraction{},
		SessionParameters:     map[string]string{},
	}
}

// Fail marks the response as failed, recording the error under the errors
// map and appending an Exception entry for the named plugin.
func (r *PluginResponse) Fail(pluginName string, err error) *PluginResponse {
	r.Status = StatusFailure
	if r.Errors == nil {
		r.Errors = map[string][]string{}
	}
	for field, messages := range ErrorFields(err) {
		r.Errors[field] = append(r.Errors[field], messages...)
	}
	r.Exceptions = append(r.Exceptions, Exception{
		PluginName:   pluginName,
		ReasonPhrase: err.Error(),
	})
	return r
}

// Failed reports whether the response carries a failure status.
func (r *PluginResponse) Failed() bool {
	return r.Status == StatusFailure
}
