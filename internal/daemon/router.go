package daemon

import (
	"net/http"

	"github.com/alexedwards/flow"
)

const pingMessage = "Welcome to OAP Middle Tier Services!!"

func newRouter(h *handler, token string) http.Handler {
	mux := flow.New()
	mux.NotFound = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeFail(w, http.StatusNotFound, "route not found")
	})
	mux.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeFail(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	mux.Use(requestIDMiddleware)
	mux.Use(accessLogMiddleware(h.logger))

	mux.HandleFunc("/", h.handlePing, http.MethodGet)

	mux.Group(func(mux *flow.Mux) {
		mux.Use(authMiddleware(token))
		mux.Use(deadlineMiddleware(h.deadline))

		mux.HandleFunc("/oap/provision", h.handleIntake, http.MethodPost)
		mux.HandleFunc("/oap/provision", h.handleListing, http.MethodGet)
		mux.HandleFunc("/oap/provision", h.handleTransition, http.MethodPatch)
		mux.HandleFunc("/oap/provision/:id|^[0-9]+$", h.handleGetRecord, http.MethodGet)
		mux.HandleFunc("/oap/provision_result", h.handleQuery, http.MethodPost)
		mux.HandleFunc("/oap/provision_result_new", h.handleSearch, http.MethodPost)
		mux.HandleFunc("/oap/controller/sutstatus", h.handleActive, http.MethodGet)
		mux.HandleFunc("/oap/last_provision_details", h.handleLatestFor, http.MethodGet)
		mux.HandleFunc("/oap/provision_master", h.handleIssue, http.MethodPost)
		mux.HandleFunc("/oap/provision_master", h.handleLatestBatch, http.MethodGet)
		mux.HandleFunc("/oap/controller", h.handleListControllers, http.MethodGet)
		mux.HandleFunc("/oap/controller", h.handleCreateController, http.MethodPost)
		mux.HandleFunc("/oap/platform", h.handleListPlatforms, http.MethodGet)
		mux.HandleFunc("/oap/platform", h.handleCreatePlatform, http.MethodPost)
	})
	return mux
}
