// Package ui renders the dashboard's two HTML pages from templates embedded
// in the binary: the live dashboard and the emergency contact manager.
package ui
