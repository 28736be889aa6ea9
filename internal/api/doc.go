// Package api implements the dashboard's HTTP surface.
//
// New(deps) returns an http.Handler that serves:
//
//	GET  /                      dashboard page
//	GET  /contacts              contact list with add and delete forms
//	POST /contacts/add          form name, phone, chat_id; 303 to /contacts
//	POST /contacts/delete/{id}  303 to /contacts
//	GET  /api/current-data      latest reading (fallback when none); 502 on store failure
//	GET  /api/history-data      chart series; empty series on store failure
//	GET  /api/contacts          {"status":"ok","data":[...]} for the device
//	GET  /api/alerts            firing and recently resolved alerts
//	GET  /healthz               liveness
//
// JSON endpoints respond with Content-Type: application/json and return a
// JSON error for wrong methods. The pages answer wrong methods in plain text.
// No external HTTP framework is used.
package api
