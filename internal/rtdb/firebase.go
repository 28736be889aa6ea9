package rtdb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
	"google.golang.org/api/option"

	"github.com/kalcerwatch/kalcerwatch/internal/config"
)

// Firebase is a Store backed by a Firebase Realtime Database.
// The underlying client is created once at startup and shared by all callers.
type Firebase struct {
	client  *db.Client
	timeout time.Duration
}

// NewFirebase initialises the Firebase app and its database client.
// When cfg.CredentialsFile is empty the Application Default Credentials
// are used.
func NewFirebase(ctx context.Context, cfg config.FirebaseConfig) (*Firebase, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{
		DatabaseURL: cfg.DatabaseURL,
		ProjectID:   cfg.ProjectID,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("rtdb: init firebase app: %w", err)
	}
	client, err := app.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("rtdb: init database client: %w", err)
	}
	return &Firebase{client: client, timeout: cfg.Timeout}, nil
}

// Get implements Store.
func (f *Firebase) Get(ctx context.Context, path string, v any) error {
	ctx, cancel := f.withTimeout(ctx)
	defer cancel()
	if err := f.client.NewRef(path).Get(ctx, v); err != nil {
		return fmt.Errorf("rtdb: get %q: %w", path, err)
	}
	return nil
}

// LastByKey implements Store. The server sends filtered results in no
// particular order, so object members are put back in key order before
// decoding into v.
func (f *Firebase) LastByKey(ctx context.Context, path string, n int, v any) error {
	if n <= 0 {
		return fmt.Errorf("rtdb: query %q: limit must be positive, got %d", path, n)
	}
	ctx, cancel := f.withTimeout(ctx)
	defer cancel()

	var raw json.RawMessage
	if err := f.client.NewRef(path).OrderByKey().LimitToLast(n).Get(ctx, &raw); err != nil {
		return fmt.Errorf("rtdb: query %q: %w", path, err)
	}
	ordered, err := orderByKey(raw)
	if err != nil {
		return fmt.Errorf("rtdb: query %q: order: %w", path, err)
	}
	if err := json.Unmarshal(ordered, v); err != nil {
		return fmt.Errorf("rtdb: query %q: decode: %w", path, err)
	}
	return nil
}

// Push implements Store.
func (f *Firebase) Push(ctx context.Context, path string, v any) (string, error) {
	ctx, cancel := f.withTimeout(ctx)
	defer cancel()
	ref, err := f.client.NewRef(path).Push(ctx, v)
	if err != nil {
		return "", fmt.Errorf("rtdb: push %q: %w", path, err)
	}
	return ref.Key, nil
}

// Delete implements Store.
func (f *Firebase) Delete(ctx context.Context, path string) error {
	ctx, cancel := f.withTimeout(ctx)
	defer cancel()
	if err := f.client.NewRef(path).Delete(ctx); err != nil {
		return fmt.Errorf("rtdb: delete %q: %w", path, err)
	}
	return nil
}

func (f *Firebase) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if f.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, f.timeout)
}
