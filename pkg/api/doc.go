// Package api implements the campus facilities HTTP API: password and
// federated login, token logout, and the resource catalog with search and
// analytics. Route authorization lives in the middleware package; handlers
// here assume the access gate has already run.
package api
