// Package archiver submits discovered URLs to the Wayback Machine Save Page
// Now API with global rate limiting, bounded exponential-backoff retries,
// and periodic batch pauses. It supports a sequential mode and a
// semaphore-bounded concurrent mode behind the same contract.
package archiver
