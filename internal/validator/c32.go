package validator

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// C32Alphabet is the Crockford-style base32 alphabet used by Stacks addresses
const C32Alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

const (
	hash160Len       = 20
	checksumLen      = 4
	minAddressLength = 28
	maxAddressLength = 41
)

// Address versions
const (
	VersionMainnetSingleSig byte = 22 // P
	VersionMainnetMultiSig  byte = 20 // M
	VersionTestnetSingleSig byte = 26 // T
	VersionTestnetMultiSig  byte = 21 // N
)

var (
	ErrAddressLength   = errors.New("address length out of range")
	ErrAddressPrefix   = errors.New("address must start with S and a known version")
	ErrAddressAlphabet = errors.New("address contains a character outside the c32 alphabet")
	ErrAddressPayload  = errors.New("address payload is not hash160 plus checksum")
	ErrAddressChecksum = errors.New("address checksum mismatch")
)

var thirtyTwo = big.NewInt(32)

// DecodeAddress parses a c32check address into its version and hash160
func DecodeAddress(addr string) (byte, []byte, error) {
	if len(addr) < minAddressLength || len(addr) > maxAddressLength {
		return 0, nil, ErrAddressLength
	}
	if addr[0] != 'S' {
		return 0, nil, ErrAddressPrefix
	}

	version := byte(strings.IndexByte(C32Alphabet, addr[1]))
	if !knownVersion(version) {
		return 0, nil, ErrAddressPrefix
	}

	payload, err := c32Decode(addr[2:])
	if err != nil {
		return 0, nil, err
	}
	if len(payload) != hash160Len+checksumLen {
		return 0, nil, ErrAddressPayload
	}

	hash160 := payload[:hash160Len]
	if !bytes.Equal(payload[hash160Len:], checksum(version, hash160)) {
		return 0, nil, ErrAddressChecksum
	}

	return version, hash160, nil
}

// EncodeAddress renders version and hash160 as a c32check address
func EncodeAddress(version byte, hash160 []byte) (string, error) {
	if !knownVersion(version) {
		return "", fmt.Errorf("unknown address version %d", version)
	}
	if len(hash160) != hash160Len {
		return "", fmt.Errorf("hash160 must be %d bytes, got %d", hash160Len, len(hash160))
	}

	payload := make([]byte, 0, hash160Len+checksumLen)
	payload = append(payload, hash160...)
	payload = append(payload, checksum(version, hash160)...)

	return "S" + string(C32Alphabet[version]) + c32Encode(payload), nil
}

func knownVersion(v byte) bool {
	switch v {
	case VersionMainnetSingleSig, VersionMainnetMultiSig, VersionTestnetSingleSig, VersionTestnetMultiSig:
		return true
	}
	return false
}

func checksum(version byte, hash160 []byte) []byte {
	first := sha256.Sum256(append([]byte{version}, hash160...))
	second := sha256.Sum256(first[:])
	return second[:checksumLen]
}

// c32Encode writes one '0' per leading zero byte followed by the
// remaining value in base32 without leading zeros
func c32Encode(data []byte) string {
	zeros := 0
	for zeros < len(data) && data[zeros] == 0 {
		zeros++
	}

	value := new(big.Int).SetBytes(data)
	mod := new(big.Int)
	var digits []byte
	for value.Sign() > 0 {
		value.DivMod(value, thirtyTwo, mod)
		digits = append(digits, C32Alphabet[mod.Int64()])
	}
	for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
		digits[i], digits[j] = digits[j], digits[i]
	}

	return strings.Repeat("0", zeros) + string(digits)
}

func c32Decode(s string) ([]byte, error) {
	zeros := 0
	for zeros < len(s) && s[zeros] == '0' {
		zeros++
	}

	value := new(big.Int)
	for i := zeros; i < len(s); i++ {
		d := strings.IndexByte(C32Alphabet, s[i])
		if d < 0 {
			return nil, ErrAddressAlphabet
		}
		value.Mul(value, thirtyTwo)
		value.Add(value, big.NewInt(int64(d)))
	}

	return append(make([]byte, zeros), value.Bytes()...), nil
}
