package signer

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ProtonMail/go-crypto/openpgp/armor"
)

// DecodeArmoredSignature unwraps an ASCII-armored OpenPGP detached
// signature (as produced by GPG.Sign or already present on a commit) down
// to its raw packet bytes, using the same armor implementation go-git
// itself depends on for signature verification — kept here so the tool
// never carries two OpenPGP armor implementations.
func DecodeArmoredSignature(armored string) ([]byte, error) {
	block, err := armor.Decode(bytes.NewReader([]byte(armored)))
	if err != nil {
		return nil, fmt.Errorf("decode armored signature: %w", err)
	}
	return io.ReadAll(block.Body)
}

// EncodeArmoredSignature wraps raw OpenPGP signature packet bytes in a
// "PGP SIGNATURE" armor block, the inverse of DecodeArmoredSignature.
func EncodeArmoredSignature(raw []byte) (string, error) {
	var buf bytes.Buffer
	w, err := armor.Encode(&buf, "PGP SIGNATURE", nil)
	if err != nil {
		return "", fmt.Errorf("encode armored signature: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
