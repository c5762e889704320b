package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fhayvy/CodeEntry/internal/validator"
	"github.com/fhayvy/CodeEntry/pkg/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// secp256k1 generator point, compressed
const generatorPubKey = "0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"

func TestAddressFromPublicKey(t *testing.T) {
	testnet, err := AddressFromPublicKey(generatorPubKey, validator.VersionTestnetSingleSig)
	require.NoError(t, err)
	assert.Equal(t, "ST1THWXQ8368SDN2MJGE4BMDKMCHZ2GSVTSQDA7QF", testnet)

	mainnet, err := AddressFromPublicKey("0x"+generatorPubKey, validator.VersionMainnetSingleSig)
	require.NoError(t, err)
	assert.Equal(t, "SP1THWXQ8368SDN2MJGE4BMDKMCHZ2GSVTS1X0BPM", mainnet)
}

func TestAddressFromPublicKey_Invalid(t *testing.T) {
	for _, key := range []string{"", "zz", "0579be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798", "02abcd"} {
		_, err := AddressFromPublicKey(key, validator.VersionTestnetSingleSig)
		assert.Error(t, err, key)
	}
}

func TestRun_IssuesVerifiableToken(t *testing.T) {
	var out bytes.Buffer
	err := run([]string{"--pubkey", generatorPubKey, "--secret", "s3cret", "--quiet"}, &out)
	require.NoError(t, err)

	token := strings.TrimSpace(out.String())
	subject, err := middleware.ParseToken(&middleware.JWTConfig{
		Secret:          "s3cret",
		ValidateSubject: validator.Address,
	}, token)
	require.NoError(t, err)
	assert.Equal(t, "ST1THWXQ8368SDN2MJGE4BMDKMCHZ2GSVTSQDA7QF", subject)
}

func TestRun_Address(t *testing.T) {
	var out bytes.Buffer
	addr := "ST1PVT3S8T3CQCNKPHDXMXPB2AQK7ZM8Q83RJ5Q1T"
	require.NoError(t, run([]string{"--address", addr, "--secret", "s3cret"}, &out))
	assert.Contains(t, out.String(), "address: "+addr)
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no subject", []string{"--secret", "s"}},
		{"both subjects", []string{"--secret", "s", "--pubkey", generatorPubKey, "--address", "ST1PVT3S8T3CQCNKPHDXMXPB2AQK7ZM8Q83RJ5Q1T"}},
		{"bad address", []string{"--secret", "s", "--address", "ST123INVALIDADDRESS"}},
		{"unknown flag", []string{"--nope"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "")
			var out bytes.Buffer
			assert.Error(t, run(tt.args, &out))
		})
	}

	t.Run("missing secret", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		var out bytes.Buffer
		assert.Error(t, run([]string{"--pubkey", generatorPubKey}, &out))
	})
}
