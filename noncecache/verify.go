package noncecache

import "github.com/oxidetalis-go/otmpd/crypto"

// VerifyAndConsume performs the full inbound signature check mandated
// by the protocol: HMAC verification composed with the replay cache.
// The cache is only consulted, and only mutated, when the HMAC itself
// is valid.
func VerifyAndConsume(data []byte, sig *crypto.Signature, sharedSecret []byte, cache *Cache) bool {
	if !crypto.Verify(data, sig, sharedSecret) {
		return false
	}
	return cache.CheckAndConsume(sig)
}
