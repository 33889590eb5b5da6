package crypto

import (
	"crypto/sha256"
	"io"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/hkdf"

	"github.com/oxidetalis-go/otmpd/internal/metrics"
)

// SharedSecretSize is the length in bytes of a derived shared secret.
const SharedSecretSize = 32

// SharedSecret computes the ECDH shared point between this key pair's
// private scalar and a peer's compressed public key, then runs it
// through HKDF-SHA256 (empty salt, empty info) to produce a uniform
// 32-byte secret. Both peers derive identical bytes since ECDH is
// symmetric in the two private/public inputs.
func (kp *KeyPair) SharedSecret(peerPublicKey []byte) ([]byte, error) {
	start := time.Now()
	defer func() {
		metrics.CryptoOperationDuration.WithLabelValues("shared_secret").Observe(time.Since(start).Seconds())
	}()

	peer, err := secp256k1.ParsePubKey(peerPublicKey)
	if err != nil {
		metrics.CryptoErrors.WithLabelValues("shared_secret").Inc()
		return nil, ErrInvalidPublicKey
	}

	var peerPoint secp256k1.JacobianPoint
	peer.AsJacobian(&peerPoint)

	var shared secp256k1.JacobianPoint
	secp256k1.ScalarMultNonConst(&kp.private.Key, &peerPoint, &shared)
	shared.ToAffine()

	xBytes := shared.X.Bytes()

	reader := hkdf.New(sha256.New, xBytes[:], nil, nil)
	secret := make([]byte, SharedSecretSize)
	if _, err := io.ReadFull(reader, secret); err != nil {
		metrics.CryptoErrors.WithLabelValues("shared_secret").Inc()
		return nil, err
	}
	metrics.CryptoOperations.WithLabelValues("shared_secret").Inc()
	return secret, nil
}
