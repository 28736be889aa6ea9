package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/kalcerwatch/kalcerwatch/internal/alerts"
	"github.com/kalcerwatch/kalcerwatch/internal/contacts"
	"github.com/kalcerwatch/kalcerwatch/internal/metrics"
	"github.com/kalcerwatch/kalcerwatch/internal/telemetry"
	"github.com/kalcerwatch/kalcerwatch/internal/ui"
)

// maxFormBytes caps the contact form body.
const maxFormBytes = 64 << 10

// Deps are the services the handler reads from. Alerts and Metrics may be nil.
type Deps struct {
	Telemetry *telemetry.Service
	Contacts  *contacts.Service
	Alerts    *alerts.Engine
	Metrics   *metrics.Metrics
}

// Handler serves the dashboard pages, the contact forms and the JSON API.
type Handler struct {
	telemetry *telemetry.Service
	contacts  *contacts.Service
	alerts    *alerts.Engine
	mux       *http.ServeMux
}

// New creates a Handler wired to deps and registers all routes.
func New(deps Deps) http.Handler {
	h := &Handler{
		telemetry: deps.Telemetry,
		contacts:  deps.Contacts,
		alerts:    deps.Alerts,
		mux:       http.NewServeMux(),
	}

	route := func(pattern string, fn http.HandlerFunc) {
		var handler http.Handler = fn
		if deps.Metrics != nil {
			handler = deps.Metrics.Middleware(pattern, handler)
		}
		h.mux.Handle(pattern, handler)
	}

	route("/{$}", h.dashboard)
	route("/contacts", h.contactsPage)
	route("/contacts/add", h.addContact)
	route("/contacts/delete/{id}", h.deleteContact)
	route("/api/current-data", h.currentData)
	route("/api/history-data", h.historyData)
	route("/api/contacts", h.deviceContacts)
	route("/api/alerts", h.listAlerts)
	route("/healthz", h.healthz)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- pages ------------------------------------------------------------------

// dashboard returns GET /: the live dashboard page.
func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := ui.Dashboard(w); err != nil {
		slog.Error("api: render dashboard", "err", err)
	}
}

// contactsPage returns GET /contacts: the contact list with add and delete forms.
func (h *Handler) contactsPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.renderContacts(w, r, http.StatusOK, "")
}

// addContact handles POST /contacts/add and redirects back to the list.
func (h *Handler) addContact(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	c := contacts.Contact{
		Name:   r.PostForm.Get("name"),
		Phone:  r.PostForm.Get("phone"),
		ChatID: r.PostForm.Get("chat_id"),
	}
	id, err := h.contacts.Add(r.Context(), c)
	switch {
	case errors.Is(err, contacts.ErrInvalidContact):
		h.renderContacts(w, r, http.StatusBadRequest, "Nama, nomor HP dan chat ID wajib diisi.")
		return
	case err != nil:
		slog.Error("api: add contact", "err", err)
		http.Error(w, "realtime store unavailable", http.StatusBadGateway)
		return
	}

	slog.Info("contact added", "id", id)
	http.Redirect(w, r, "/contacts", http.StatusSeeOther)
}

// deleteContact handles POST /contacts/delete/{id} and redirects back to the list.
func (h *Handler) deleteContact(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.PathValue("id")
	err := h.contacts.Delete(r.Context(), id)
	switch {
	case errors.Is(err, contacts.ErrInvalidID):
		http.Error(w, "invalid contact id", http.StatusBadRequest)
		return
	case err != nil:
		slog.Error("api: delete contact", "id", id, "err", err)
		http.Error(w, "realtime store unavailable", http.StatusBadGateway)
		return
	}

	slog.Info("contact deleted", "id", id)
	http.Redirect(w, r, "/contacts", http.StatusSeeOther)
}

func (h *Handler) renderContacts(w http.ResponseWriter, r *http.Request, status int, msg string) {
	list, err := h.contacts.List(r.Context())
	if err != nil {
		slog.Error("api: list contacts", "err", err)
		http.Error(w, "realtime store unavailable", http.StatusBadGateway)
		return
	}
	if err := ui.Contacts(w, status, list, msg); err != nil {
		slog.Error("api: render contacts", "err", err)
	}
}

// --- JSON API ---------------------------------------------------------------

// currentData returns GET /api/current-data: the latest reading, or the
// fallback reading when the device has not written one.
func (h *Handler) currentData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	reading, err := h.telemetry.Current(r.Context())
	if err != nil {
		slog.Error("api: current reading", "err", err)
		jsonErr(w, http.StatusBadGateway, "realtime store unavailable")
		return
	}
	jsonResp(w, http.StatusOK, reading)
}

// historyData returns GET /api/history-data: the chart series. Store
// failures yield an empty series, never an error status.
func (h *Handler) historyData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, h.telemetry.History(r.Context()))
}

// deviceContacts returns GET /api/contacts: the contact list for the device.
func (h *Handler) deviceContacts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	list, err := h.contacts.DeviceList(r.Context())
	if err != nil {
		slog.Error("api: device contacts", "err", err)
		jsonErr(w, http.StatusBadGateway, "realtime store unavailable")
		return
	}
	jsonResp(w, http.StatusOK, ContactsResponse{Status: "ok", Data: list})
}

// listAlerts returns GET /api/alerts: firing and recently resolved alerts.
func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.alerts == nil {
		jsonResp(w, http.StatusOK, []*alerts.Alert{})
		return
	}
	jsonResp(w, http.StatusOK, h.alerts.Active())
}

// healthz returns GET /healthz: process liveness only.
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
