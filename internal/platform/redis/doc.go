// Package redis implements the store interfaces on top of Redis.
//
// Cards and sessions are JSON documents under their own keys. Sets index cards
// by category and sessions by user, and each leaderboard period is a sorted
// set. Read-modify-write operations use WATCH/MULTI optimistic transactions.
package redis
