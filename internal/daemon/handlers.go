package daemon

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alexedwards/flow"

	"oap/internal/api"
	"oap/internal/intake"
	"oap/internal/logging"
	"oap/internal/provision"
	"oap/internal/results"
	"oap/internal/sequence"
	"oap/internal/store"
	"oap/internal/transition"
)

const maxBodyBytes = 4 << 20

type handler struct {
	manager  *transition.Manager
	engine   *results.Engine
	issuer   *sequence.Issuer
	intake   *intake.Service
	store    store.Inventory
	logger   *slog.Logger
	deadline time.Duration
}

func (h *handler) handlePing(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, api.Envelope{Status: api.StatusSuccess, Message: pingMessage})
}

func (h *handler) handleIntake(w http.ResponseWriter, r *http.Request) {
	entries, err := intake.DecodeJSON(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	created, err := h.intake.Create(r.Context(), entries)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, api.Envelope{
		Status:  api.StatusSuccess,
		Message: "Successfully Added.",
		Data:    api.FromRecords(created),
	})
}

func (h *handler) handleListing(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	if params.Get("type") != "new" {
		rows, err := h.engine.UserListing(r.Context())
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, api.Envelope{Status: api.StatusSuccess, Data: api.FromRecordsWithUsers(rows)})
		return
	}

	var page *int
	if raw := strings.TrimSpace(params.Get("page")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(w, r, invalidInput("listing", "page must be an integer"))
			return
		}
		page = &n
	}
	result, err := h.engine.Listing(r.Context(), page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.PageEnvelope(result))
}

func (h *handler) handleTransition(w http.ResponseWriter, r *http.Request) {
	var req api.TransitionRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	outcome, err := h.manager.ApplyTransition(r.Context(), req.ProvisionID, req.Stage, req.Status, req.ResultLink)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp := api.TransitionResponse{
		Status: api.StatusSuccess,
		ID:     outcome.ID,
		Stage:  string(outcome.Stage),
	}
	if outcome.Applied {
		resp.Message = api.MessageTransitionApplied
		resp.NewStatus = string(outcome.Status)
	} else {
		resp.Message = api.MessageTransitionNoop
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *handler) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(flow.Param(r.Context(), "id"), 10, 64)
	if err != nil {
		h.writeError(w, r, invalidInput("get", "id must be an integer"))
		return
	}
	rec, err := h.engine.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.Envelope{Status: api.StatusSuccess, Data: api.FromRecord(rec)})
}

func (h *handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req api.QueryRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	page, err := h.engine.Query(r.Context(), api.QueryFromRequest(req))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.PageEnvelope(page))
}

func (h *handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req api.SearchRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	page, err := h.engine.Search(r.Context(), api.SearchFromRequest(req))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.PageEnvelope(page))
}

func (h *handler) handleActive(w http.ResponseWriter, r *http.Request) {
	items, err := h.engine.ActiveFor(r.Context(), r.URL.Query().Get("controller"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.Envelope{Status: api.StatusSuccess, Data: api.FromActive(items)})
}

// handleLatestFor answers with a list holding zero or one record.
func (h *handler) handleLatestFor(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	rec, ok, err := h.engine.LatestFor(r.Context(), params.Get("sut"), params.Get("controller"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	data := []api.Record{}
	if ok {
		data = append(data, api.FromRecord(rec))
	}
	writeJSON(w, http.StatusOK, api.Envelope{Status: api.StatusSuccess, Data: data})
}

func (h *handler) handleIssue(w http.ResponseWriter, r *http.Request) {
	var req api.IssueRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	batch, err := h.issuer.IssueNext(r.Context(), req.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, api.IssueResponse{
		Status:   api.StatusSuccess,
		Message:  "Successfully Added.",
		GlobalID: batch.GlobalID,
	})
}

func (h *handler) handleLatestBatch(w http.ResponseWriter, r *http.Request) {
	batch, ok, err := h.issuer.Latest(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	data := []api.Batch{}
	if ok {
		data = append(data, api.FromBatch(batch))
	}
	writeJSON(w, http.StatusOK, api.Envelope{Status: api.StatusSuccess, Data: data})
}

func (h *handler) handleListControllers(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListControllers(r.Context())
	if err != nil {
		h.writeError(w, r, provision.Wrap("controller.list", provision.KindStoreUnavailable, err))
		return
	}
	writeJSON(w, http.StatusOK, api.Envelope{Status: api.StatusSuccess, Data: api.FromControllers(items)})
}

func (h *handler) handleCreateController(w http.ResponseWriter, r *http.Request) {
	var req api.ControllerRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		h.writeError(w, r, invalidInput("controller.create", "name is required"))
		return
	}
	created, err := h.store.CreateController(r.Context(), provision.Controller{Name: name, Location: strings.TrimSpace(req.Location)})
	if err != nil {
		h.writeError(w, r, provision.Wrap("controller.create", provision.KindStoreUnavailable, err))
		return
	}
	writeJSON(w, http.StatusCreated, api.Envelope{Status: api.StatusSuccess, Message: "Successfully Added.", Data: api.FromControllers([]provision.Controller{created})})
}

func (h *handler) handleListPlatforms(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListPlatforms(r.Context())
	if err != nil {
		h.writeError(w, r, provision.Wrap("platform.list", provision.KindStoreUnavailable, err))
		return
	}
	writeJSON(w, http.StatusOK, api.Envelope{Status: api.StatusSuccess, Data: api.FromPlatforms(items)})
}

func (h *handler) handleCreatePlatform(w http.ResponseWriter, r *http.Request) {
	var req api.PlatformRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		h.writeError(w, r, invalidInput("platform.create", "name is required"))
		return
	}
	created, err := h.store.CreatePlatform(r.Context(), provision.Platform{Name: name})
	if err != nil {
		h.writeError(w, r, provision.Wrap("platform.create", provision.KindStoreUnavailable, err))
		return
	}
	writeJSON(w, http.StatusCreated, api.Envelope{Status: api.StatusSuccess, Message: "Successfully Added.", Data: api.FromPlatforms([]provision.Platform{created})})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return provision.Errorf("decode", provision.KindInvalidInput, "%w: malformed request body: %w", provision.ErrInvalidInput, err)
	}
	return nil
}

func invalidInput(op, msg string) error {
	return provision.Errorf(op, provision.KindInvalidInput, "%w: %s", provision.ErrInvalidInput, msg)
}

func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := statusForError(err)
	if status >= http.StatusInternalServerError {
		logging.ErrorWithContext(logging.WithContext(r.Context(), h.logger), "request failed", "api_request_failed",
			logging.String("path", r.URL.Path),
			logging.Int("status", status),
			logging.Error(err),
		)
	}
	writeFail(w, status, message)
}

func writeFail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, api.Envelope{Status: api.StatusFail, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
