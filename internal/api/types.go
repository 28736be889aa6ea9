package api

import "github.com/kalcerwatch/kalcerwatch/internal/contacts"

// ContactsResponse is the payload for GET /api/contacts.
type ContactsResponse struct {
	Status string                   `json:"status"`
	Data   []contacts.DeviceContact `json:"data"`
}

// StatusResponse is the payload for GET /healthz.
type StatusResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}
