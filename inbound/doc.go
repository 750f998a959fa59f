// Package inbound routes gateway requests to upstream adapters.
//
// Every request, including unmatched paths, handler errors and panics, is
// answered with exactly one core.Envelope.
package inbound
