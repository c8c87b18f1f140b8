package core

import "errors"

// Every error returned by this package and by netcnt wraps exactly one of
// these, test for them with errors.Is.
var (
	// ErrTransport is a connectivity failure, a timeout or a non-2xx status.
	ErrTransport = errors.New("fritzbox: transport error")
	// ErrProtocol is a malformed or unsupported login document or challenge.
	ErrProtocol = errors.New("fritzbox: protocol error")
	// ErrAuth is a well formed login response that rejected the credentials.
	ErrAuth = errors.New("fritzbox: authentication failed")
	// ErrParse is a statistics page that does not have the expected shape.
	ErrParse = errors.New("fritzbox: parse error")
)
