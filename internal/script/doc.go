// Package script replays YAML sessions against an engine: a root document,
// the watches registered on it and a list of mutations. Each notification the
// engine delivers becomes an Event.
package script
