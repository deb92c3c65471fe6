// Package service holds the application services that sit between the
// stores and the command line.
//
// CardService owns card lifecycle and scheduling queries. Session
// orchestration, leaderboard aggregation and statistics live in the quiz,
// leaderboard and stats subpackages, which depend on the narrow interfaces
// they declare rather than on concrete services.
//
// Every service logs failures where they happen, wraps them in ServiceError
// and returns them; nothing is retried or suppressed.
package service
