package payment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTxHash = "0x" + strings.Repeat("ab", 32)

func TestParseProof(t *testing.T) {
	tests := []struct {
		name      string
		token     string
		want      *Proof
		wantErr   bool
		errString string
	}{
		{
			name:  "numeric amount",
			token: `{"tx_hash":"` + testTxHash + `","sender":"0xABC","amount":100000}`,
			want: &Proof{
				TxHash: testTxHash,
				Sender: "abc",
				Amount: 100000,
			},
		},
		{
			name:  "string amount",
			token: `{"tx_hash":"` + testTxHash + `","sender":"0xabc","amount":"100000"}`,
			want: &Proof{
				TxHash: testTxHash,
				Sender: "abc",
				Amount: 100000,
			},
		},
		{
			name:  "with job id",
			token: `{"tx_hash":"` + testTxHash + `","sender":"0xabc","amount":100000,"job_id":"job-1"}`,
			want: &Proof{
				TxHash: testTxHash,
				Sender: "abc",
				Amount: 100000,
				JobID:  "job-1",
			},
		},
		{
			name:  "hash without prefix is normalized",
			token: `{"tx_hash":"` + strings.Repeat("ab", 32) + `","sender":"0xabc","amount":100000}`,
			want: &Proof{
				TxHash: testTxHash,
				Sender: "abc",
				Amount: 100000,
			},
		},
		{
			name:      "not json",
			token:     "this is not json",
			wantErr:   true,
			errString: "malformed payment proof",
		},
		{
			name:      "missing tx_hash",
			token:     `{"sender":"0xabc","amount":100000}`,
			wantErr:   true,
			errString: "missing tx_hash",
		},
		{
			name:      "missing sender",
			token:     `{"tx_hash":"` + testTxHash + `","amount":100000}`,
			wantErr:   true,
			errString: "missing sender",
		},
		{
			name:      "missing amount",
			token:     `{"tx_hash":"` + testTxHash + `","sender":"0xabc"}`,
			wantErr:   true,
			errString: "missing amount",
		},
		{
			name:      "non-canonical hash",
			token:     `{"tx_hash":"0xdeadbeef","sender":"0xabc","amount":100000}`,
			wantErr:   true,
			errString: "canonical transaction hash",
		},
		{
			name:      "zero amount",
			token:     `{"tx_hash":"` + testTxHash + `","sender":"0xabc","amount":0}`,
			wantErr:   true,
			errString: "invalid amount",
		},
		{
			name:      "negative amount",
			token:     `{"tx_hash":"` + testTxHash + `","sender":"0xabc","amount":-5}`,
			wantErr:   true,
			errString: "invalid amount",
		},
		{
			name:      "non-numeric amount",
			token:     `{"tx_hash":"` + testTxHash + `","sender":"0xabc","amount":"lots"}`,
			wantErr:   true,
			errString: "invalid amount",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proof, err := ParseProof(tt.token)

			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrMalformedProof)
				assert.Contains(t, err.Error(), tt.errString)
				assert.Nil(t, proof)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, proof)
			}
		})
	}
}
