// Package domain contains the core business entities of the application:
// accounts with their authentication method, and clubs with their
// denormalized follower counter. Constructors validate their input so that
// an invalid entity can never be built.
package domain
