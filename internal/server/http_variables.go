package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"

	"github.com/alfredjeanlab/varhub/internal/idgen"
	"github.com/alfredjeanlab/varhub/internal/model"
)

// maxBodyBytes caps request bodies on the variables routes.
const maxBodyBytes = 1 << 20

// createVariableRequest is the JSON body for POST /variables.
type createVariableRequest struct {
	Identifier string             `json:"identifier"`
	Type       model.VariableType `json:"type"`
	Value      string             `json:"value"`
}

// handleListVariables handles GET /variables.
func (s *Server) handleListVariables(w http.ResponseWriter, r *http.Request) {
	vars, err := s.svc.ListVariables(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vars)
}

// handleGetVariable handles GET /variables/{id}.
func (s *Server) handleGetVariable(w http.ResponseWriter, r *http.Request) {
	v, err := s.svc.GetVariable(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// handleGetVariableByIdentifier handles GET /variables/by-identifier/{identifier}.
func (s *Server) handleGetVariableByIdentifier(w http.ResponseWriter, r *http.Request) {
	v, err := s.svc.GetVariableByIdentifier(r.Context(), mux.Vars(r)["identifier"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// handleCreateVariable handles POST /variables.
func (s *Server) handleCreateVariable(w http.ResponseWriter, r *http.Request) {
	var req createVariableRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	v, err := s.svc.CreateVariable(r.Context(), &model.Variable{
		ID:         idgen.NewVariableID(),
		Identifier: req.Identifier,
		Type:       req.Type,
		Value:      req.Value,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Location", "/variables/"+url.PathEscape(v.ID))
	writeJSON(w, http.StatusCreated, v)
}

// handleUpdateVariable handles PUT /variables/{id}. The body is either a bare
// JSON string or an object with a "value" field.
func (s *Server) handleUpdateVariable(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	value, ok := decodeValue(raw)
	if !ok {
		writeError(w, http.StatusBadRequest, "request body must be a JSON string or {\"value\": string}")
		return
	}

	if _, err := s.svc.UpdateVariableValue(r.Context(), mux.Vars(r)["id"], value); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDeleteVariable handles DELETE /variables/{id}.
func (s *Server) handleDeleteVariable(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteVariable(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Variable deleted successfully."})
}

func decodeValue(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", false
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return s, true
	case '{':
		var body struct {
			Value *string `json:"value"`
		}
		if err := json.Unmarshal(raw, &body); err != nil || body.Value == nil {
			return "", false
		}
		return *body.Value, true
	}
	return "", false
}
