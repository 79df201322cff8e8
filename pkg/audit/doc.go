// Package audit records who changed what in the organization service.
//
// Every mutating HTTP request is captured as an Entry carrying the actor, the
// method and path, the response status, and the request duration. Entries are
// written off the serving path; a failing audit sink never fails the request.
package audit
