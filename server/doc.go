// Package server exposes the storefront core over HTTP for the
// independently-mounted UI views. It serves the cart snapshot, the
// add/update/delete cart operations, guard evaluations, and transient
// notifications on a Gin engine mounted behind an h2c-capable ServeMux.
package server
