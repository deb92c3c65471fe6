// Package domain contains the core entities of the recall scheduler: cards with
// their memory-strength state, quiz sessions, and leaderboard entries. It is
// independent of any storage backend or delivery mechanism.
package domain
