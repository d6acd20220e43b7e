// Package model contains the domain types shared by the admission and
// allocation stages: landing requests, runways, dispatch tasks and the
// outcomes reported back to the transport.
//
// Requests travel over the wire as JSON objects of the form
//
//	{"plane_id": "1f2e3d4c", "plane_type": "medium", "priority": "vip"}
//
// and are decoded strictly: unknown categories and priorities are rejected
// rather than defaulted.
package model
