// Package hash provides keyed digests for short-lived secrets.
//
// One-time codes and session tokens are never stored in clear text: the store
// keeps an HMAC-SHA256 digest and lookups compare digests in constant time.
// Each use gets its own key derived from the service secret, so a leaked code
// digest cannot be replayed as a token digest.
package hash
