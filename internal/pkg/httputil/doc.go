// Package httputil provides shared HTTP response/request utilities for the
// submission, approval-link and operator handlers.
//
// Handlers use these helpers instead of raw http.ResponseWriter calls so
// error envelopes and logging stay consistent across endpoints.
package httputil
