// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying data storage mechanism from
// the application's core logic, allowing business rules to remain
// independent of specific database technologies or persistence details.
//
// Multi-entity writes go through a Transactor so that the account-side
// membership row and the club-side follower counter always commit together.
package store
