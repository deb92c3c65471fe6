// Package store defines the persistence contracts for cards, quiz sessions and
// leaderboards, along with the error kinds every backend reports. Backends live
// under internal/platform and must make Update operations atomic per entity.
package store
