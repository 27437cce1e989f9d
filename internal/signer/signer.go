// Package signer produces detached commit signatures, either by shelling
// out to gpg or by signing with an SSH key, with OS-keychain passphrase
// caching for the latter. It mirrors the teacher's posture toward external
// tools: inherit-stdio subprocess delegation rather than reimplementation.
package signer

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/patchwork-dev/git-ps/internal/gitfacade"
)

// Format selects which signing backend a commit uses.
type Format int

const (
	FormatNone Format = iota
	FormatOpenPGP
	FormatSSH
)

// Signer produces a detached signature over a commit payload.
type Signer interface {
	Sign(ctx context.Context, payload []byte) (signature string, err error)
}

// None is the no-op signer used when commit.gpgsign is false.
type None struct{}

func (None) Sign(context.Context, []byte) (string, error) { return "", nil }

// ResolveFormat reads gpg.format (defaulting to "openpgp") and maps it to a
// Format, falling back to unsigned with a warning for x509 and unrecognized
// values, per the spec's documented (not changed) behavior.
func ResolveFormat(raw string, warn func(string)) Format {
	switch raw {
	case "", "openpgp":
		return FormatOpenPGP
	case "ssh":
		return FormatSSH
	default:
		if warn != nil {
			warn(fmt.Sprintf("gpg.format %q is not supported for signing; committing unsigned", raw))
		}
		return FormatNone
	}
}

// GPG invokes the gpg (or overridden) binary as a subprocess: the payload
// goes in on stdin, the ASCII-armored detached signature comes back on
// stdout, exactly matching "gpg --local-user <key> --sign --armor
// --detach-sig".
type GPG struct {
	Exec    gitfacade.Exec
	Program string // defaults to "gpg"
	Dir     string
	KeyID   string
}

func (g GPG) Sign(ctx context.Context, payload []byte) (string, error) {
	program := g.Program
	if program == "" {
		program = "gpg"
	}
	args := []string{"--local-user", g.KeyID, "--sign", "--armor", "--detach-sig"}
	cmd := exec.CommandContext(ctx, program, args...)
	cmd.Dir = g.Dir
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("gpg sign: %w: %s", err, stderr.String())
	}
	return stdout.String(), nil
}
