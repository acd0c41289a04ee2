// Package service holds the catalog and profile use cases: listing, reading
// and creating clubs, and reading or updating the caller's own account.
//
// Authentication lives in the identity subpackage and follow toggling in the
// membership subpackage. Services depend on the store interfaces, never on a
// concrete backend.
package service
