package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "strips prefix and lowercases",
			input: "0x2FA75E20e3bd0e3a1c00cea95cba53ab5b956358d762e0e7a2a7629b2c63AC50",
			want:  "2fa75e20e3bd0e3a1c00cea95cba53ab5b956358d762e0e7a2a7629b2c63ac50",
		},
		{
			name:  "no prefix",
			input: "2fa75e20",
			want:  "2fa75e20",
		},
		{
			name:  "surrounding whitespace",
			input: "  0xABC  ",
			want:  "abc",
		},
		{
			name:  "empty",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeAddress(tt.input))
		})
	}
}

func TestNormalizeHash(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "already canonical",
			input: "0xdeadbeef",
			want:  "0xdeadbeef",
		},
		{
			name:  "adds prefix",
			input: "deadbeef",
			want:  "0xdeadbeef",
		},
		{
			name:  "lowercases",
			input: "0xDEADBEEF",
			want:  "0xdeadbeef",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeHash(tt.input))
		})
	}
}

func TestIsCanonicalHash(t *testing.T) {
	valid := "0x" + "ab12cd34" + "ef56ab78" + "90abcdef" + "12345678" + "9abcdef0" + "11223344" + "55667788" + "99aabbcc"

	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "valid 32-byte hash", input: valid, want: true},
		{name: "uppercase accepted", input: "0X" + valid[2:], want: false},
		{name: "too short", input: "0xdeadbeef", want: false},
		{name: "missing prefix", input: valid[2:], want: false},
		{name: "non-hex characters", input: "0x" + "zz12cd34" + valid[10:], want: false},
		{name: "empty", input: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCanonicalHash(tt.input))
		})
	}
}

func TestFormatOctas(t *testing.T) {
	tests := []struct {
		name     string
		octas    int64
		decimals int
		want     string
	}{
		{name: "standard price", octas: 100000, decimals: 8, want: "0.001"},
		{name: "one token", octas: 100000000, decimals: 8, want: "1"},
		{name: "token and a half", octas: 150000000, decimals: 8, want: "1.5"},
		{name: "single octa", octas: 1, decimals: 8, want: "0.00000001"},
		{name: "zero", octas: 0, decimals: 8, want: "0"},
		{name: "defaulted decimals", octas: 100000, decimals: 0, want: "0.001"},
		{name: "two decimals", octas: 125, decimals: 2, want: "1.25"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatOctas(tt.octas, tt.decimals))
		})
	}
}
