// Package mcp exposes a bindery engine as a Model Context Protocol server so
// agents can read, write and inspect context roots as tools.
package mcp
