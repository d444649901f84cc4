package aptos

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testHash = "0x" + strings.Repeat("ab", 32)

func testClient(baseURL string) *Client {
	return NewClient(&Config{
		BaseURL:        baseURL,
		RequestTimeout: time.Second,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestClient_TransactionByHash(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantErr   error
		errString string
		check     func(t *testing.T, tx *Transaction)
	}{
		{
			name:   "confirmed user transaction",
			status: http.StatusOK,
			body: `{
				"type": "user_transaction",
				"hash": "` + testHash + `",
				"sender": "0xabc",
				"success": true,
				"version": "12345",
				"payload": {
					"type": "entry_function_payload",
					"function": "0x1::aptos_account::transfer",
					"type_arguments": [],
					"arguments": ["0xdef", "100000"]
				}
			}`,
			check: func(t *testing.T, tx *Transaction) {
				assert.Equal(t, TypeUserTransaction, tx.Type)
				assert.Equal(t, testHash, tx.Hash)
				assert.Equal(t, "0xabc", tx.Sender)
				assert.True(t, tx.Success)
				require.NotNil(t, tx.Payload)
				assert.Equal(t, "0x1::aptos_account::transfer", tx.Payload.Function)
				assert.Equal(t, []any{"0xdef", "100000"}, tx.Payload.Arguments)
			},
		},
		{
			name:   "pending transaction without payload",
			status: http.StatusOK,
			body:   `{"type": "pending_transaction", "hash": "` + testHash + `", "sender": "0xabc"}`,
			check: func(t *testing.T, tx *Transaction) {
				assert.Equal(t, "pending_transaction", tx.Type)
				assert.Nil(t, tx.Payload)
			},
		},
		{
			name:    "not found",
			status:  http.StatusNotFound,
			body:    `{"message": "transaction not found"}`,
			wantErr: ErrTransactionNotFound,
		},
		{
			name:      "server error",
			status:    http.StatusInternalServerError,
			body:      `{"message": "internal error"}`,
			errString: "fullnode returned status 500",
		},
		{
			name:      "malformed body",
			status:    http.StatusOK,
			body:      `{not json`,
			errString: "failed to decode transaction",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/transactions/by_hash/"+testHash, r.URL.Path)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := testClient(srv.URL)

			tx, err := client.TransactionByHash(context.Background(), testHash)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.errString != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			default:
				require.NoError(t, err)
				tt.check(t, tx)
			}
		})
	}
}

func TestClient_LedgerInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"chain_id": 250,
			"ledger_version": "987654",
			"epoch": "42",
			"node_role": "full_node"
		}`))
	}))
	defer srv.Close()

	client := testClient(srv.URL)

	info, err := client.LedgerInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 250, info.ChainID)
	assert.Equal(t, "987654", info.LedgerVersion)
	assert.Equal(t, "full_node", info.NodeRole)
}

func TestClient_Connected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"chain_id": 250}`))
	}))
	defer srv.Close()

	assert.True(t, testClient(srv.URL).Connected(context.Background()))

	srv.Close()
	assert.False(t, testClient(srv.URL).Connected(context.Background()))
}

func TestNewClient_TrimsTrailingSlash(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := testClient(srv.URL + "/")

	_, err := client.TransactionByHash(context.Background(), testHash)
	assert.ErrorIs(t, err, ErrTransactionNotFound)
	assert.Equal(t, "/transactions/by_hash/"+testHash, gotPath)
}
