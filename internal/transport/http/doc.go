// Package http implements the HTTP handlers of the trialmerge web service.
//
// Handlers are thin: they decode and validate the request, call a service
// and render the result. Errors go through errors.ErrorHandler so every
// failure is an RFC 7807 problem document.
//
// # Endpoints
//
//	POST /api/merge      multipart field "files"; ?format=json|csv, ?summary=true, ?bom=true
//	GET  /api/health     liveness and runtime information
//	GET  /api/version    build information
//
// The JSON merge body lists the column order and one object per row keyed by
// column name. Count columns a file lacked read 0, as in the CSV export.
//
// A merge where no upload could be parsed answers 422 with the per-file
// failures in the problem's "details" member.
package http
