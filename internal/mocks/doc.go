// Package mocks provides shared test doubles for the store and auth interfaces.
//
// Store mocks are built on testify/mock so tests can set expectations per call:
//
//	accounts := new(mocks.TestifyMockAccountStore)
//	accounts.On("GetByID", mock.Anything, id).Return(account, nil)
//
// MockJWTService uses function fields with default return values for tests
// that only need to steer token issuance or validation.
package mocks
