// Package core contains the gateway's canonical contracts: upstream requests and
// responses, the outbound envelope, the error taxonomy, configuration and the
// immutable credential store. Upstream adapters and transports depend on this
// package; core must not depend on any of them.
package core
