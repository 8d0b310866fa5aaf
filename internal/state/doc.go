// Package state holds the in-memory per-user stores: deferred intents and
// resolved media sessions. Nothing here survives a restart.
package state
