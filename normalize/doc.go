// Package normalize turns upstream status codes and bodies into the gateway
// envelope. Everything here is a pure function.
package normalize
