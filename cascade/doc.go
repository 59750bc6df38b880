// Package cascade routes generation calls through the role chain.
//
// A call starts at a requested role (main, fallback, or research) and
// walks the fixed order main -> fallback -> research from that point.
// Roles whose provider requires a credential that isn't available are
// skipped with a warning; credential-free providers are attempted
// without any key check. Each attempted role gets one retry on
// transient provider errors and on content errors (malformed or
// schema-violating output), with exponential backoff. Successful calls
// record token usage and cost on the attached tracker and return the
// usage record alongside the provider response; a run where every role
// is skipped or fails returns an ExhaustedError naming the attempted
// roles and carrying the last underlying failure.
package cascade
