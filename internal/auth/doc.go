// Package auth provides authentication middleware for the dashboard's HTTP API.
//
// APIKey(mode, header, key, paths) wraps a handler and validates the API key
// from the named request header on the listed path prefixes. The comparison
// is constant-time.
//
// When mode != "apikey" or key == "", all requests pass through (useful for
// local development with auth disabled). When the key is incorrect or
// absent, the middleware answers 401 with a JSON error body.
package auth
