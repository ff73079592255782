package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/g4-api/g4-plugins-go/pkg/history"
	"github.com/g4-api/g4-plugins-go/pkg/logging"
	"github.com/g4-api/g4-plugins-go/pkg/manifest"
	"github.com/g4-api/g4-plugins-go/pkg/types"
)

// InvokeRequest is the body of POST {plugin_type}/invoke.
type InvokeRequest struct {
	Entity    types.ActionRule `json:"entity"`
	DriverURL string           `json:"driverUrl"`
	Session   string           `json:"session"`
}

func (s *Server) handleListManifests(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.reg.Manifests())
}

func (s *Server) handleGetByTypeAndKey(w http.ResponseWriter, r *http.Request) {
	pluginType, err := manifest.ParseType(r.PathValue("plugin_type"))
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	m, err := s.reg.ByTypeAndName(pluginType, r.PathValue("plugin_name"))
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleGetByName(w http.ResponseWriter, r *http.Request) {
	m, err := s.reg.Lookup(r.PathValue("plugin_name"))
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	pluginType, err := manifest.ParseType(r.PathValue("plugin_type"))
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	var req InvokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorModel(w, r, http.StatusBadRequest,
			&types.ValidationError{Field: "body", Message: "malformed invoke request: " + err.Error()})
		return
	}
	// The engine contract treats missing invocation parameters the same as
	// a missing plugin: a bare 404.
	if req.Entity.PluginName == "" || req.DriverURL == "" || req.Session == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	sess, err := s.mounter.Mount(r.Context(), req.DriverURL, req.Session)
	if err != nil {
		logger.Error("failed to mount session", slog.Any("error", err))
		writeErrorModel(w, r, http.StatusInternalServerError, err)
		return
	}

	response, err := s.dispatcher.Invoke(r.Context(), pluginType, req.Entity, sess)
	if err != nil {
		s.writeInvokeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

// writeInvokeError maps the error taxonomy onto HTTP statuses: not-found
// conditions render a bare 404, everything else carries the ErrorModel
// envelope.
func (s *Server) writeInvokeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		notFound *types.NotFoundError
		valid    *types.ValidationError
		syntax   *types.MacroSyntaxError
		coercion *types.TypeCoercionError
		timeout  *types.TimeoutError
	)
	switch {
	case errors.As(err, &notFound):
		w.WriteHeader(http.StatusNotFound)
	case errors.As(err, &valid), errors.As(err, &syntax), errors.As(err, &coercion):
		writeErrorModel(w, r, http.StatusBadRequest, err)
	case errors.As(err, &timeout):
		writeErrorModel(w, r, http.StatusRequestTimeout, err)
	default:
		writeErrorModel(w, r, http.StatusInternalServerError, err)
	}
}

func (s *Server) handleInvocations(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	records, err := s.history.Recent(r.Context(), s.historyLimit)
	if err != nil {
		writeErrorModel(w, r, http.StatusInternalServerError, err)
		return
	}
	if records == nil {
		records = []history.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeErrorModel(w http.ResponseWriter, r *http.Request, status int, err error) {
	writeJSON(w, status, types.NewErrorModel(status, r.Method, r.URL.Path, err))
}
