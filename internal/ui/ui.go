package ui

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/kalcerwatch/kalcerwatch/internal/contacts"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// contactsPage is the data rendered by contacts.html.
type contactsPage struct {
	Contacts []contacts.Contact
	Error    string
}

// Dashboard writes the dashboard page. The page pulls its data from the
// current-data and history-data APIs and the live stream.
func Dashboard(w http.ResponseWriter) error {
	return render(w, http.StatusOK, "dashboard.html", nil)
}

// Contacts writes the contact management page listing list with the given
// status. errMsg, when non-empty, is shown above the form.
func Contacts(w http.ResponseWriter, status int, list []contacts.Contact, errMsg string) error {
	return render(w, status, "contacts.html", contactsPage{Contacts: list, Error: errMsg})
}

// render executes into a buffer first so a template failure never leaves a
// half-written page.
func render(w http.ResponseWriter, status int, name string, data any) error {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("ui: render %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
