// Package signing implements GalaChain request signing: canonical JSON
// serialization, keccak-256 hashing, secp256k1 ECDSA with low-S
// normalization, and DER/base64 signature encoding. It also provides key
// loading, including encrypted keys at rest.
package signing

import (
	"crypto/ecdsa"
	"encoding/base64"
	"fmt"
	"math/big"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Signer signs request bodies with a secp256k1 private key.
type Signer struct {
	privateKey   *ecdsa.PrivateKey
	publicKeyB64 string
}

// NewSigner creates a Signer from a hex-encoded secp256k1 private key, with
// or without a 0x prefix.
func NewSigner(privateKeyHex string) (*Signer, error) {
	pk, err := ethcrypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("signing: invalid private key: %w", err)
	}

	compressed := ethcrypto.CompressPubkey(&pk.PublicKey)
	return &Signer{
		privateKey:   pk,
		publicKeyB64: base64.StdEncoding.EncodeToString(compressed),
	}, nil
}

// PublicKey returns the compressed public key, base64-encoded, as expected in
// the signerPublicKey field of signed requests.
func (s *Signer) PublicKey() string {
	return s.publicKeyB64
}

// SignObject returns a copy of body with a "signature" field attached. Any
// pre-existing signature field is stripped before signing. The remaining
// fields are serialized canonically, hashed with keccak-256, and signed; the
// signature is low-S normalized, DER-encoded, and base64-encoded.
func (s *Signer) SignObject(body map[string]any) (map[string]any, error) {
	toSign := make(map[string]any, len(body)+1)
	for k, v := range body {
		if k == "signature" {
			continue
		}
		toSign[k] = v
	}

	canonical, err := CanonicalJSON(toSign)
	if err != nil {
		return nil, err
	}

	digest := ethcrypto.Keccak256(canonical)
	sig, err := ethcrypto.Sign(digest, s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("signing: sign digest: %w", err)
	}

	r := new(big.Int).SetBytes(sig[:32])
	sv := new(big.Int).SetBytes(sig[32:64])

	// Low-S canonicalization: if s exceeds half the curve order, use n-s
	// instead (the recovery parity flips with it, but DER carries only r and
	// s). This keeps exactly one valid encoding per message and key.
	n := ethcrypto.S256().Params().N
	halfN := new(big.Int).Rsh(n, 1)
	if sv.Cmp(halfN) > 0 {
		sv.Sub(n, sv)
	}

	signed := make(map[string]any, len(toSign)+1)
	for k, v := range toSign {
		signed[k] = v
	}
	signed["signature"] = base64.StdEncoding.EncodeToString(encodeDER(r, sv))
	return signed, nil
}

// encodeDER encodes an ECDSA signature as a DER SEQUENCE of two INTEGERs.
func encodeDER(r, s *big.Int) []byte {
	rb := derInteger(r)
	sb := derInteger(s)

	body := make([]byte, 0, len(rb)+len(sb))
	body = append(body, rb...)
	body = append(body, sb...)

	out := make([]byte, 0, len(body)+2)
	out = append(out, 0x30, byte(len(body)))
	return append(out, body...)
}

// derInteger encodes one INTEGER: minimal big-endian bytes with a leading
// zero byte when the high bit is set, so the value is not read as negative.
func derInteger(v *big.Int) []byte {
	b := v.Bytes()
	if len(b) == 0 {
		b = []byte{0}
	}
	if b[0]&0x80 != 0 {
		b = append([]byte{0}, b...)
	}
	out := make([]byte, 0, len(b)+2)
	out = append(out, 0x02, byte(len(b)))
	return append(out, b...)
}
