package http

import (
	"encoding/json"
	"net/http"

	"jeeves/internal/boundary"
	"jeeves/internal/logging"
)

// APIHandler dispatches the transport-agnostic command surface (C15) over a
// single JSON endpoint: {"command": "...", "payload": {...}} in, a
// boundary.Envelope out.
type APIHandler struct {
	commands *boundary.Commands
	logger   logging.Logger
}

// NewAPIHandler wires an APIHandler against the command surface.
func NewAPIHandler(commands *boundary.Commands) *APIHandler {
	return &APIHandler{commands: commands, logger: logging.NewComponentLogger("api")}
}

type commandEnvelope struct {
	Command string          `json:"command"`
	Payload json.RawMessage `json:"payload"`
}

// HandleCommand decodes the request body, dispatches by command name, and
// writes the resulting boundary.Envelope as JSON.
func (h *APIHandler) HandleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandEnvelope
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, boundary.Envelope{OK: false, Error: "malformed request body", Code: "validation"})
		return
	}

	env, status := h.dispatch(r, req)
	writeJSON(w, status, env)
}

func (h *APIHandler) dispatch(r *http.Request, req commandEnvelope) (boundary.Envelope, int) {
	ctx := r.Context()

	decode := func(v any) *boundary.Envelope {
		if len(req.Payload) == 0 {
			return nil
		}
		if err := json.Unmarshal(req.Payload, v); err != nil {
			env := boundary.Envelope{OK: false, Error: "malformed payload for " + req.Command, Code: "validation"}
			return &env
		}
		return nil
	}

	switch req.Command {
	case "list_issues":
		return h.commands.ListIssues(ctx), http.StatusOK

	case "select_issue":
		var payload boundary.SelectIssueRequest
		if env := decode(&payload); env != nil {
			return *env, http.StatusBadRequest
		}
		return h.commands.SelectIssue(ctx, payload), http.StatusOK

	case "init_issue":
		var payload boundary.InitIssueRequest
		if env := decode(&payload); env != nil {
			return *env, http.StatusBadRequest
		}
		return h.commands.InitIssue(ctx, payload), http.StatusOK

	case "start_run":
		var payload boundary.StartRunRequest
		if env := decode(&payload); env != nil {
			return *env, http.StatusBadRequest
		}
		return h.commands.StartRun(ctx, payload), http.StatusOK

	case "start_batch":
		var payload boundary.StartBatchRequest
		if env := decode(&payload); env != nil {
			return *env, http.StatusBadRequest
		}
		return h.commands.StartBatch(ctx, payload), http.StatusOK

	case "stop_run":
		var payload boundary.StopRunRequest
		if env := decode(&payload); env != nil {
			return *env, http.StatusBadRequest
		}
		return h.commands.StopRun(ctx, payload), http.StatusOK

	case "set_phase":
		var payload boundary.SetPhaseRequest
		if env := decode(&payload); env != nil {
			return *env, http.StatusBadRequest
		}
		return h.commands.SetPhase(ctx, payload), http.StatusOK

	case "upsert_project_file":
		var payload boundary.UpsertProjectFileRequest
		if env := decode(&payload); env != nil {
			return *env, http.StatusBadRequest
		}
		return h.commands.UpsertProjectFile(ctx, payload), http.StatusOK

	case "delete_project_file":
		var payload boundary.DeleteProjectFileRequest
		if env := decode(&payload); env != nil {
			return *env, http.StatusBadRequest
		}
		return h.commands.DeleteProjectFile(ctx, payload), http.StatusOK

	case "reconcile_project_files":
		var payload boundary.ReconcileProjectFilesRequest
		if env := decode(&payload); env != nil {
			return *env, http.StatusBadRequest
		}
		return h.commands.ReconcileProjectFiles(ctx, payload), http.StatusOK

	case "put_credentials":
		var payload boundary.PutCredentialsRequest
		if env := decode(&payload); env != nil {
			return *env, http.StatusBadRequest
		}
		return h.commands.PutCredentials(ctx, payload), http.StatusOK

	case "delete_credentials":
		var payload boundary.DeleteCredentialsRequest
		if env := decode(&payload); env != nil {
			return *env, http.StatusBadRequest
		}
		return h.commands.DeleteCredentials(ctx, payload), http.StatusOK

	case "expand_issue_summary":
		var payload boundary.ExpandIssueSummaryRequest
		if env := decode(&payload); env != nil {
			return *env, http.StatusBadRequest
		}
		return h.commands.ExpandIssueSummary(ctx, payload), http.StatusOK

	default:
		return boundary.Envelope{OK: false, Error: "unknown command " + req.Command, Code: "validation"}, http.StatusBadRequest
	}
}

// HandleHealth reports liveness; it never touches the store so it stays
// cheap enough for a tight orchestrator probe interval.
func (h *APIHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
