// Package events carries domain events between services without direct
// dependencies between them.
//
// The quiz service emits a session.completed event when a session finishes;
// the leaderboard service registers as a handler and credits the score. The
// emitter dispatches synchronously, so a handler failure is reported to the
// caller that emitted the event.
package events
