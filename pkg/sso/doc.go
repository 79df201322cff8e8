// Package sso manages single-sign-on configuration for organizations.
//
// An organization carries at most one SSO configuration. While a configuration
// is active, generic invite links are disabled for that organization so SSO
// stays the only door in.
package sso
