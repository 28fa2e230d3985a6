/*
Package cache implements a one-slot token memo: the most recently lexed
token, valid for reuse only when the byte offset and external-scanner
state it was produced under still match.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package cache

import "github.com/npillmayer/grit/subtree"

// TokenCache memoizes the last lexed token. It holds its own reference
// on the cached token, so the token outlives whatever stack churn
// happens between the lex and the retry that wants it back.
type TokenCache struct {
	pool              *subtree.Pool
	token             subtree.ID
	lastExternalToken []byte
	byteIndex         uint32
	valid             bool
}

// New creates a TokenCache drawing on pool.
func New(pool *subtree.Pool) *TokenCache {
	return &TokenCache{pool: pool}
}

// Store remembers token, produced at byteIndex with the given external-
// scanner state (nil if the grammar has no external scanner, or the
// token was produced internally). The cache retains token and releases
// whatever it held before.
func (c *TokenCache) Store(token subtree.ID, byteIndex uint32, externalState []byte) {
	c.pool.Retain(token)
	if c.valid {
		c.pool.Release(c.token)
	}
	c.token = token
	c.byteIndex = byteIndex
	c.lastExternalToken = externalState
	c.valid = true
}

// Get returns the cached token iff byteIndex matches and the version's
// current external-scanner state equals the one the cached token was
// produced under. The returned id is borrowed; callers keeping it must
// retain it.
func (c *TokenCache) Get(byteIndex uint32, currentExternalState []byte) (subtree.ID, bool) {
	if !c.valid || c.byteIndex != byteIndex {
		return subtree.Nil, false
	}
	if !bytesEqual(c.lastExternalToken, currentExternalState) {
		return subtree.Nil, false
	}
	return c.token, true
}

// Invalidate clears the cache, releasing the cached token.
func (c *TokenCache) Invalidate() {
	if c.valid {
		c.pool.Release(c.token)
	}
	pool := c.pool
	*c = TokenCache{pool: pool}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
