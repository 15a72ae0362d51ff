// Package authapi exposes the credential lifecycle over HTTP.
//
// Tokens travel exclusively in cookies: the access cookie rides on every
// request, the refresh cookie is path-scoped to the refresh endpoint so the
// long-lived credential is only ever transmitted when rotating. Response
// bodies never carry token material.
package authapi
