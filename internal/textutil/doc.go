// Package textutil provides small text helpers for filename sanitization
// and token normalization.
//
// Destination filenames are derived from user-supplied document titles and
// must never contain characters the filesystem rejects; SanitizeFileName and
// SanitizeToken centralize that policy so every component names files the
// same way.
package textutil
