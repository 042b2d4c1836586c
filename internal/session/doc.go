// Package session derives the signed-in state from the credential store and
// runs the account operations against the backend.
//
// A session exists exactly when a credential is present. Guard consults the
// store on every entry to a protected route, so a 401 that cleared the
// credential anywhere in the process is seen by the next check.
package session
