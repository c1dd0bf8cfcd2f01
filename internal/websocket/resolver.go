// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package websocket

import "errors"

// ErrUnresolvableIdentity is returned by an IdentityResolver when a
// register credential cannot be mapped to a user.
var ErrUnresolvableIdentity = errors.New("websocket: unresolvable identity")

// IdentityResolver maps a register-message credential to a user ID. The
// credential is opaque to this package; the API layer supplies a resolver
// that accepts either a signed token or a bare numeric ID.
type IdentityResolver interface {
	ResolveCredential(credential string) (int64, error)
}

// ResolverFunc adapts a function to the IdentityResolver interface.
type ResolverFunc func(credential string) (int64, error)

// ResolveCredential implements IdentityResolver.
func (f ResolverFunc) ResolveCredential(credential string) (int64, error) {
	return f(credential)
}
