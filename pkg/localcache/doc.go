// Package localcache provides the best-effort offline mirror of profile
// records.
//
// The session layer writes a serialized copy of every resolved profile record
// under the key "user_<id>" so that collaborators can read it while the
// network is unavailable. The mirror is never the source of truth: the remote
// profile store wins on any disagreement, and no reconciliation pass runs.
//
// Two implementations ship with the package: an in-memory map for tests and
// single-process hosts, and a Redis-backed cache configured from environment
// variables.
package localcache
