// devtoken prints an HS256 bearer token for local use against the ticket
// ledger API. The subject is a Stacks address, given directly or derived
// from a secp256k1 public key.
package main

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fhayvy/CodeEntry/internal/validator"
	"github.com/fhayvy/CodeEntry/pkg/middleware"
	"github.com/spf13/pflag"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	var (
		pubKey  string
		address string
		secret  string
		issuer  string
		mainnet bool
		ttl     time.Duration
		quiet   bool
	)

	flagSet := pflag.NewFlagSet("devtoken", pflag.ContinueOnError)
	flagSet.SetOutput(out)
	flagSet.StringVar(&pubKey, "pubkey", "", "hex secp256k1 public key (33-byte compressed or 65-byte uncompressed)")
	flagSet.StringVar(&address, "address", "", "use this address as the subject instead of deriving one")
	flagSet.StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "HS256 signing secret (default $JWT_SECRET)")
	flagSet.StringVar(&issuer, "issuer", os.Getenv("JWT_ISSUER"), "iss claim (default $JWT_ISSUER)")
	flagSet.BoolVar(&mainnet, "mainnet", false, "derive a mainnet (SP) address instead of testnet (ST)")
	flagSet.DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	flagSet.BoolVarP(&quiet, "quiet", "q", false, "print only the token")

	if err := flagSet.Parse(args); err != nil {
		return err
	}

	if secret == "" {
		return fmt.Errorf("--secret or JWT_SECRET is required")
	}

	subject, err := resolveSubject(pubKey, address, mainnet)
	if err != nil {
		return err
	}

	token, err := middleware.IssueToken(secret, issuer, subject, ttl)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}

	if quiet {
		_, err = fmt.Fprintln(out, token)
		return err
	}
	_, err = fmt.Fprintf(out, "address: %s\ntoken:   %s\n", subject, token)
	return err
}

func resolveSubject(pubKey, address string, mainnet bool) (string, error) {
	switch {
	case pubKey != "" && address != "":
		return "", fmt.Errorf("--pubkey and --address are mutually exclusive")
	case address != "":
		if err := validator.Address(address); err != nil {
			return "", err
		}
		return address, nil
	case pubKey != "":
		version := validator.VersionTestnetSingleSig
		if mainnet {
			version = validator.VersionMainnetSingleSig
		}
		return AddressFromPublicKey(pubKey, version)
	default:
		return "", fmt.Errorf("one of --pubkey or --address is required")
	}
}

// AddressFromPublicKey derives the single-sig address of a public key:
// c32check(version, RIPEMD160(SHA256(pubkey)))
func AddressFromPublicKey(pubKeyHex string, version byte) (string, error) {
	pub, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(pubKeyHex), "0x"))
	if err != nil {
		return "", fmt.Errorf("decode public key: %w", err)
	}
	switch {
	case len(pub) == 33 && (pub[0] == 0x02 || pub[0] == 0x03):
	case len(pub) == 65 && pub[0] == 0x04:
	default:
		return "", fmt.Errorf("public key must be 33 bytes compressed or 65 bytes uncompressed, got %d bytes", len(pub))
	}

	sum := sha256.Sum256(pub)
	h := ripemd160.New()
	_, _ = h.Write(sum[:])

	return validator.EncodeAddress(version, h.Sum(nil))
}
