// Package config loads the dashboard configuration from config.yaml.
//
// Config sections:
//   - server: HTTP port and API key protection for device endpoints
//   - firebase: store backend (firebase | memory), database URL, credentials,
//     per-call timeout and the contacts/current/history paths
//   - history: number of charted records (default 50) and label mode
//   - stream: WebSocket broadcast interval (default 5s)
//   - log: level and format (json | text)
//   - alerts: poll interval, threshold rules and delivery targets
//
// Secrets are never stored in the file: key_env, url_env and token_env name
// the environment variables that hold them.
//
// Load(path) applies defaults before unmarshalling, then validates.
// Watch(ctx, path, fn) reloads the file on every write and hands the new
// Config to fn; invalid edits are logged and ignored.
package config
