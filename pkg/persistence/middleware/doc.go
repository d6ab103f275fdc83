// Package middleware wraps snapshot stores with at-rest protections: AES-GCM
// envelope encryption with key rotation, and masking of sensitive keys.
package middleware
