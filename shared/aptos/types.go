package aptos

// TypeUserTransaction is the transaction type a user-initiated transfer
// reports. Other types (state checkpoints, block metadata) never settle a
// payment.
const TypeUserTransaction = "user_transaction"

// Transaction is the subset of the fullnode transaction representation the
// payment verifier inspects.
type Transaction struct {
	Type    string   `json:"type"`
	Hash    string   `json:"hash"`
	Sender  string   `json:"sender"`
	Success bool     `json:"success"`
	Version string   `json:"version"`
	Payload *Payload `json:"payload"`
}

// Payload is the entry function call carried by a user transaction. For
// `0x1::aptos_account::transfer` and `0x1::coin::transfer` the arguments are
// [recipient, amount-in-octas].
type Payload struct {
	Type          string   `json:"type"`
	Function      string   `json:"function"`
	TypeArguments []string `json:"type_arguments"`
	Arguments     []any    `json:"arguments"`
}

// LedgerInfo is the fullnode index response used as a connectivity probe
type LedgerInfo struct {
	ChainID       int    `json:"chain_id"`
	LedgerVersion string `json:"ledger_version"`
	Epoch         string `json:"epoch"`
	NodeRole      string `json:"node_role"`
}
