// Package domain contains the core entities of the adaptive study system:
// flashcards with their memory state, the immutable response events recorded
// for every answer, the per-session scheduling state, and user profiles.
// It is independent of any storage engine or delivery mechanism.
package domain
