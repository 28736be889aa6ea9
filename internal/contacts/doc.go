// Package contacts manages the emergency contact list the wearable alerts.
// Contacts live as key→object children of a single store path; List feeds
// the management page, DeviceList the device API (with defaults for missing
// fields), and Add/Delete the page's forms.
package contacts
