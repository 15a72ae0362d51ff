// Package client is the Go client for the gradnet HTTP API.
//
// Credentials live in an http.CookieJar, never in application code. When a
// request comes back 401 the client performs exactly one refresh rotation
// and replays the original request once; if the refresh itself fails, the
// original 401 is returned and no further retry happens.
package client
