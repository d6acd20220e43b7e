// Package allocator owns the runway pool and is the only component allowed to
// change runway status. Acquisition is non-blocking: callers that cannot get a
// runway decide themselves whether to wait or hand the request back to the
// transport.
package allocator
