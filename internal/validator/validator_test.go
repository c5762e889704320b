package validator

import (
	"context"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/fhayvy/CodeEntry/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	validAddress   = "ST3J2GVMMM2R07ZFBJDWTYEYAR8FZH5WKDTFJ9AHA"
	mainnetAddress = "SP1PVT3S8T3CQCNKPHDXMXPB2AQK7ZM8Q825DM45E"
	zeroAddress    = "ST000000000000000000002AMW42H"
)

func TestDecodeAddress(t *testing.T) {
	tests := []struct {
		name    string
		addr    string
		wantErr error
	}{
		{name: "testnet", addr: validAddress},
		{name: "mainnet", addr: mainnetAddress},
		{name: "all zero hash shortest form", addr: zeroAddress},
		{name: "too short", addr: "ST123INVALIDADDRESS", wantErr: ErrAddressLength},
		{name: "empty", addr: "", wantErr: ErrAddressLength},
		{name: "too long", addr: validAddress + "AAAA", wantErr: ErrAddressLength},
		{name: "bad checksum", addr: "ST3J2GVMMM2R07ZFBJDWTYEYAR8FZH5WKDTFJ9AHB", wantErr: ErrAddressChecksum},
		{name: "wrong version for checksum", addr: "SP3J2GVMMM2R07ZFBJDWTYEYAR8FZH5WKDTFJ9AHA", wantErr: ErrAddressChecksum},
		{name: "unknown version", addr: "SA3J2GVMMM2R07ZFBJDWTYEYAR8FZH5WKDTFJ9AHA", wantErr: ErrAddressPrefix},
		{name: "wrong prefix", addr: "XT3J2GVMMM2R07ZFBJDWTYEYAR8FZH5WKDTFJ9AHA", wantErr: ErrAddressPrefix},
		{name: "lowercase", addr: strings.ToLower(validAddress), wantErr: ErrAddressPrefix},
		{name: "lowercase body", addr: "ST" + strings.ToLower(validAddress[2:]), wantErr: ErrAddressAlphabet},
		{name: "excluded letter", addr: "ST3J2GVMMM2R07ZFBJDWTYEYAR8FZH5WKDTFJ9AHO", wantErr: ErrAddressAlphabet},
		{name: "truncated", addr: validAddress[:len(validAddress)-4], wantErr: ErrAddressPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := DecodeAddress(tt.addr)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestEncodeAddress_RoundTrip(t *testing.T) {
	for _, addr := range []string{validAddress, mainnetAddress, zeroAddress} {
		version, hash160, err := DecodeAddress(addr)
		require.NoError(t, err)

		got, err := EncodeAddress(version, hash160)
		require.NoError(t, err)
		assert.Equal(t, addr, got)
	}

	_, hash160, err := DecodeAddress(validAddress)
	require.NoError(t, err)
	assert.Equal(t, "e4286e94a0b003fdeb9379af3bcac21ff897936e", hex.EncodeToString(hash160))
}

func TestEncodeAddress_Rejects(t *testing.T) {
	_, err := EncodeAddress(1, make([]byte, 20))
	assert.Error(t, err)

	_, err = EncodeAddress(VersionTestnetSingleSig, make([]byte, 19))
	assert.Error(t, err)
}

func TestAddress_WrapsInvalidInput(t *testing.T) {
	assert.NoError(t, Address(validAddress))
	assert.ErrorIs(t, Address(""), domain.ErrInvalidInput)
	assert.ErrorIs(t, Address("ST123INVALIDADDRESS"), domain.ErrInvalidInput)
	assert.True(t, IsValidAddress(validAddress))
	assert.False(t, IsValidAddress("ST123INVALIDADDRESS"))
}

func TestDate(t *testing.T) {
	assert.NoError(t, Date("2024-12-15"))
	assert.NoError(t, Date("2024-02-29"))
	for _, d := range []string{"", "2024-02-30", "2023-02-29", "2024-13-01", "15-12-2024", "2024-12-15T00:00:00Z", "2024-1-5"} {
		assert.ErrorIs(t, Date(d), domain.ErrInvalidInput, d)
	}
}

func TestEventID(t *testing.T) {
	assert.NoError(t, EventID("evt-1"))
	assert.NoError(t, EventID("Fest_2026.day-2"))
	assert.NoError(t, EventID(strings.Repeat("a", MaxEventIDLength)))
	for _, id := range []string{
		"", "evt#1", "evt 1", "evt\t1",
		"a/b", "x%2F", "a?b", "..%2f", "évt",
		strings.Repeat("a", MaxEventIDLength+1),
	} {
		assert.ErrorIs(t, EventID(id), domain.ErrInvalidInput, id)
	}
}

type mintArgs struct {
	EventID     string `validate:"eventid"`
	Name        string `validate:"evname"`
	Date        string `validate:"caldate"`
	Price       int64  `validate:"gt=0"`
	MaxCapacity int    `validate:"gt=0,mintcap"`
	Caller      string `validate:"required,stxaddr"`
}

func validMint() mintArgs {
	return mintArgs{
		EventID:     "evt-1",
		Name:        "Summit",
		Date:        "2024-12-15",
		Price:       500,
		MaxCapacity: 100,
		Caller:      validAddress,
	}
}

func TestValidator_Struct(t *testing.T) {
	v := New(1000)

	tests := []struct {
		name      string
		mutate    func(a *mintArgs)
		wantField string
	}{
		{name: "valid", mutate: func(a *mintArgs) {}},
		{name: "empty name", mutate: func(a *mintArgs) { a.Name = "" }, wantField: "Name"},
		{name: "blank name", mutate: func(a *mintArgs) { a.Name = "   " }, wantField: "Name"},
		{name: "name too long", mutate: func(a *mintArgs) { a.Name = strings.Repeat("n", MaxNameLength+1) }, wantField: "Name"},
		{name: "padded name within limit", mutate: func(a *mintArgs) { a.Name = "  " + strings.Repeat("n", MaxNameLength) + "  " }},
		{name: "zero price", mutate: func(a *mintArgs) { a.Price = 0 }, wantField: "Price"},
		{name: "negative price", mutate: func(a *mintArgs) { a.Price = -5 }, wantField: "Price"},
		{name: "zero capacity", mutate: func(a *mintArgs) { a.MaxCapacity = 0 }, wantField: "MaxCapacity"},
		{name: "capacity over limit", mutate: func(a *mintArgs) { a.MaxCapacity = 1001 }, wantField: "MaxCapacity"},
		{name: "capacity at limit", mutate: func(a *mintArgs) { a.MaxCapacity = 1000 }},
		{name: "bad date", mutate: func(a *mintArgs) { a.Date = "2024-02-30" }, wantField: "Date"},
		{name: "bad event id", mutate: func(a *mintArgs) { a.EventID = "evt#1" }, wantField: "EventID"},
		{name: "bad caller", mutate: func(a *mintArgs) { a.Caller = "ST123INVALIDADDRESS" }, wantField: "Caller"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := validMint()
			tt.mutate(&args)

			err := v.Struct(context.Background(), &args)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.wantField)
		})
	}
}

func TestValidator_Deterministic(t *testing.T) {
	v := New(0)
	assert.Equal(t, DefaultMaxMintCapacity, v.MaxMintCapacity())

	args := validMint()
	args.Name = ""
	first := v.Struct(context.Background(), &args)
	second := v.Struct(context.Background(), &args)
	assert.Equal(t, first.Error(), second.Error())
}
