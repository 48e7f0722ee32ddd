// Package httpclient provides a configurable HTTP client used to talk to the
// backend REST API and the payment provider. It supports bearer/basic/API-key
// auth, retry with exponential backoff, circuit breaking, status-code
// classification into typed errors, and generic JSON helpers (Get, Post, Put,
// Delete).
package httpclient
