package crypto

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"time"

	"github.com/oxidetalis-go/otmpd/internal/metrics"
)

const (
	hmacSize      = 32
	timestampSize = 8
	nonceSize     = 16
	// SignatureSize is the fixed wire length of a signature: HMAC
	// output, big-endian Unix-seconds timestamp, and random nonce.
	SignatureSize = hmacSize + timestampSize + nonceSize
)

// Signature is the 56-byte (HMAC, timestamp, nonce) triple that
// authenticates a message under a shared secret.
type Signature struct {
	HMAC      [hmacSize]byte
	Timestamp uint64
	Nonce     [nonceSize]byte
}

// Bytes serializes the signature in HMAC ‖ timestamp ‖ nonce order.
func (s *Signature) Bytes() []byte {
	out := make([]byte, SignatureSize)
	copy(out[:hmacSize], s.HMAC[:])
	binary.BigEndian.PutUint64(out[hmacSize:hmacSize+timestampSize], s.Timestamp)
	copy(out[hmacSize+timestampSize:], s.Nonce[:])
	return out
}

// Hex returns the lowercase hex encoding of the signature's wire bytes.
func (s *Signature) Hex() string {
	return hex.EncodeToString(s.Bytes())
}

// ParseSignature decodes a 56-byte wire signature.
func ParseSignature(raw []byte) (*Signature, error) {
	if len(raw) != SignatureSize {
		return nil, ErrInvalidSignature
	}
	var sig Signature
	copy(sig.HMAC[:], raw[:hmacSize])
	sig.Timestamp = binary.BigEndian.Uint64(raw[hmacSize : hmacSize+timestampSize])
	copy(sig.Nonce[:], raw[hmacSize+timestampSize:])
	return &sig, nil
}

// ParseSignatureHex decodes a lowercase-hex 56-byte wire signature.
func ParseSignatureHex(encoded string) (*Signature, error) {
	raw, err := hex.DecodeString(encoded)
	if err != nil {
		return nil, ErrInvalidSignature
	}
	return ParseSignature(raw)
}

func signingKey(sharedSecret []byte, timestamp uint64, nonce [nonceSize]byte) []byte {
	key := make([]byte, 0, SharedSecretSize+timestampSize+nonceSize)
	key = append(key, sharedSecret...)
	var ts [timestampSize]byte
	binary.BigEndian.PutUint64(ts[:], timestamp)
	key = append(key, ts[:]...)
	key = append(key, nonce[:]...)
	return key
}

// Sign produces a fresh signature over data under the given shared
// secret: a random nonce and the current timestamp are folded into the
// HMAC key alongside the secret, so every signature is unique even for
// identical data.
func Sign(data, sharedSecret []byte) (*Signature, error) {
	start := time.Now()
	defer func() {
		d := time.Since(start)
		metrics.CryptoOperationDuration.WithLabelValues("sign").Observe(d.Seconds())
		metrics.GetGlobalCollector().RecordSignature(d)
	}()

	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		metrics.CryptoErrors.WithLabelValues("sign").Inc()
		return nil, err
	}
	timestamp := uint64(time.Now().Unix())

	mac := hmac.New(sha256.New, signingKey(sharedSecret, timestamp, nonce))
	mac.Write(data)

	var sig Signature
	copy(sig.HMAC[:], mac.Sum(nil))
	sig.Timestamp = timestamp
	sig.Nonce = nonce
	metrics.CryptoOperations.WithLabelValues("sign").Inc()
	return &sig, nil
}

// Verify recomputes the HMAC over data using sig's embedded timestamp
// and nonce and compares it in constant time against sig.HMAC.
// Freshness and replay checks are not performed here; that is the
// nonce cache's responsibility.
func Verify(data []byte, sig *Signature, sharedSecret []byte) bool {
	start := time.Now()
	mac := hmac.New(sha256.New, signingKey(sharedSecret, sig.Timestamp, sig.Nonce))
	mac.Write(data)
	ok := hmac.Equal(mac.Sum(nil), sig.HMAC[:])

	d := time.Since(start)
	metrics.CryptoOperations.WithLabelValues("verify").Inc()
	metrics.CryptoOperationDuration.WithLabelValues("verify").Observe(d.Seconds())
	metrics.GetGlobalCollector().RecordVerification(ok, d)
	if !ok {
		metrics.CryptoErrors.WithLabelValues("verify").Inc()
	}
	return ok
}
