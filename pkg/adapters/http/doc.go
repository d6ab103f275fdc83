// Package http exposes a bindery engine over a JSON API.
//
// Context roots are addressed by owner id under /contexts, identifiers by the
// path query parameter. GET /contexts/{owner}/events streams the
// notifications of one identifier as server-sent events.
package http
