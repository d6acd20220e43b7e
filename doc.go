// Package runway provides landing admission and runway allocation.
//
// Landing requests arrive on the intake channel, are ordered by priority
// (emergency, vip, normal) by the admission stage and forwarded to the
// dispatch channel. The runway manager hands each request to a fixed pool of
// workers that compete for a small set of mutually exclusive runways; every
// request is confirmed once its landing completed or requeued when no runway
// was free.
//
// End-users typically interact with the service via the root package:
//
//	srv, _ := runway.New(runway.WithConfig(cfg))
//	defer srv.Close()
//	err := srv.Runtime().Serve(ctx)
//
// For running the stages as separate processes see cmd/runway.
package runway
