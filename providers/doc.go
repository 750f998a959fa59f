// Package providers holds the shared call path of the upstream adapters.
// Each upstream lives in its own subpackage and exposes one query handler per
// gateway route.
package providers
