package contacts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kalcerwatch/kalcerwatch/internal/rtdb"
)

// Defaults reported to the device for fields a contact lacks.
const (
	DefaultName   = "Tanpa Nama"
	DefaultPhone  = "-"
	DefaultChatID = ""
)

var (
	// ErrInvalidContact is returned by Add when a required field is blank.
	ErrInvalidContact = errors.New("contacts: name, phone and chat_id are required")

	// ErrInvalidID is returned by Delete for an id that is not a single store key.
	ErrInvalidID = errors.New("contacts: invalid contact id")
)

// Contact is one emergency contact as shown on the management page.
type Contact struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	ChatID string `json:"chat_id"`
}

// DeviceContact is the contact shape the wearable consumes.
type DeviceContact struct {
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	ChatID string `json:"chat_id"`
}

// record is what is stored under each contact key.
type record struct {
	Name   *string `json:"name,omitempty"`
	Phone  *string `json:"phone,omitempty"`
	ChatID *string `json:"chat_id,omitempty"`
}

// Service manages the emergency contact list stored under one path.
type Service struct {
	store rtdb.Store
	path  string
}

// New creates a Service for the contacts stored at path.
func New(st rtdb.Store, path string) *Service {
	return &Service{store: st, path: path}
}

// List returns every stored contact ordered by key. Children that are not
// objects are skipped. Missing fields are left empty.
func (s *Service) List(ctx context.Context) ([]Contact, error) {
	recs, keys, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Contact, 0, len(keys))
	for _, k := range keys {
		r := recs[k]
		out = append(out, Contact{
			ID:     k,
			Name:   deref(r.Name, ""),
			Phone:  deref(r.Phone, ""),
			ChatID: deref(r.ChatID, ""),
		})
	}
	return out, nil
}

// DeviceList returns the contacts in device form, filling missing fields
// with DefaultName, DefaultPhone and DefaultChatID.
func (s *Service) DeviceList(ctx context.Context) ([]DeviceContact, error) {
	recs, keys, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]DeviceContact, 0, len(keys))
	for _, k := range keys {
		r := recs[k]
		out = append(out, DeviceContact{
			Name:   deref(r.Name, DefaultName),
			Phone:  deref(r.Phone, DefaultPhone),
			ChatID: deref(r.ChatID, DefaultChatID),
		})
	}
	return out, nil
}

// Add stores a new contact and returns its generated key. Name, phone and
// chat ID are trimmed and must all be non-empty.
func (s *Service) Add(ctx context.Context, c Contact) (string, error) {
	name := strings.TrimSpace(c.Name)
	phone := strings.TrimSpace(c.Phone)
	chatID := strings.TrimSpace(c.ChatID)
	if name == "" || phone == "" || chatID == "" {
		return "", ErrInvalidContact
	}

	id, err := s.store.Push(ctx, s.path, record{Name: &name, Phone: &phone, ChatID: &chatID})
	if err != nil {
		return "", fmt.Errorf("contacts: add: %w", err)
	}
	return id, nil
}

// Delete removes the contact with the given key. Removing an unknown key
// succeeds.
func (s *Service) Delete(ctx context.Context, id string) error {
	if !rtdb.ValidKey(id) {
		return ErrInvalidID
	}
	if err := s.store.Delete(ctx, rtdb.Join(s.path, id)); err != nil {
		return fmt.Errorf("contacts: delete %q: %w", id, err)
	}
	return nil
}

// read loads the contacts node and returns its object children with their
// keys in store order. A node stored with keys 0..n-1 arrives as an array and is
// indexed the same way.
func (s *Service) read(ctx context.Context) (map[string]record, []string, error) {
	var raw json.RawMessage
	if err := s.store.Get(ctx, s.path, &raw); err != nil {
		return nil, nil, fmt.Errorf("contacts: list: %w", err)
	}

	children := map[string]json.RawMessage{}
	switch firstByte(raw) {
	case '{':
		if err := json.Unmarshal(raw, &children); err != nil {
			return nil, nil, fmt.Errorf("contacts: list: decode: %w", err)
		}
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, nil, fmt.Errorf("contacts: list: decode: %w", err)
		}
		for i, item := range items {
			children[strconv.Itoa(i)] = item
		}
	default:
		// null or a scalar: no contacts.
	}

	recs := make(map[string]record, len(children))
	keys := make([]string, 0, len(children))
	for k, child := range children {
		if firstByte(child) != '{' {
			continue
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(child, &fields); err != nil {
			continue
		}
		recs[k] = record{
			Name:   stringField(fields, "name"),
			Phone:  stringField(fields, "phone"),
			ChatID: stringField(fields, "chat_id"),
		}
		keys = append(keys, k)
	}
	rtdb.SortKeys(keys)
	return recs, keys, nil
}

// stringField returns the named member when it is a JSON string, else nil.
func stringField(fields map[string]json.RawMessage, name string) *string {
	raw, ok := fields[name]
	if !ok {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	return &s
}

func firstByte(raw json.RawMessage) byte {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			return b
		}
	}
	return 0
}

func deref(p *string, def string) string {
	if p == nil {
		return def
	}
	return *p
}
