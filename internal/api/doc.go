// Package api handles incoming HTTP requests, request validation and
// response formatting. Handlers translate HTTP to service calls; every
// failure is rendered through HandleAPIError so status codes, error kinds and
// messages stay consistent across routes.
package api
