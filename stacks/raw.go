// Package stacks decodes raw Stacks node notifications (/new_block,
// /new_microblocks) into the chain-agnostic model, classifying each
// transaction's payload and cross-indexing emitted events to their
// transaction (spec.md §4.3).
package stacks

// rawBlock mirrors the JSON body POSTed to /new_block.
type rawBlock struct {
	BlockHash          string          `json:"block_hash"`
	BlockHeight        uint64          `json:"block_height"`
	IndexBlockHash     string          `json:"index_block_hash"`
	ParentBlockHash    string          `json:"parent_block_hash"`
	ParentMicroblock   *rawParentMicro `json:"parent_microblock,omitempty"`
	BurnBlockHash      string          `json:"burn_block_hash"`
	BurnBlockHeight    uint64          `json:"burn_block_height"`
	BurnBlockTime      uint32          `json:"burn_block_time"`
	PoxCycleIndex      uint64          `json:"pox_cycle_index"`
	PoxCyclePosition   uint64          `json:"pox_cycle_position"`
	PoxCycleLength     uint64          `json:"pox_cycle_length"`
	Transactions       []rawTx         `json:"transactions"`
	Events             []rawEvent      `json:"events"`
}

type rawParentMicro struct {
	Hash     string `json:"hash"`
	Sequence uint64 `json:"sequence"`
}

// rawMicroblocksNotification mirrors the JSON body POSTed to /new_microblocks: a list
// of microblocks, each carrying its own transactions.
type rawMicroblocksNotification struct {
	Microblocks []rawMicroblock `json:"microblocks"`
}

type rawMicroblock struct {
	Hash             string  `json:"microblock_hash"`
	Sequence         uint64  `json:"microblock_sequence"`
	ParentHash       string  `json:"microblock_parent_hash"`
	ParentIsAnchor   bool    `json:"parent_is_anchor_block"`
	Transactions     []rawTx `json:"transactions"`
}

type rawTx struct {
	TxID       string  `json:"txid"`
	TxType     string  `json:"tx_type"` // token_transfer | smart_contract | contract_call | coinbase | poison_microblock
	RawTx      string  `json:"raw_tx"`
	Status     string  `json:"status"`
	RawResult  string  `json:"raw_result"`
	Sender     string  `json:"sender_address"`
	Fee        uint64  `json:"fee"`
	Nonce      uint64  `json:"nonce"`
	Sponsor    *string `json:"sponsor_address,omitempty"`

	ContractCall       *rawContractCall       `json:"contract_call,omitempty"`
	SmartContract      *rawSmartContract      `json:"smart_contract,omitempty"`
	TokenTransfer      *rawTokenTransfer      `json:"token_transfer,omitempty"`
	ContractAbi        map[string]interface{} `json:"contract_abi,omitempty"`
}

type rawContractCall struct {
	ContractID      string   `json:"contract_id"`
	FunctionName    string   `json:"function_name"`
	FunctionArgsHex []string `json:"function_args"`
}

type rawSmartContract struct {
	ContractID     string `json:"contract_id"`
	SourceCode     string `json:"source_code"`
	ClarityVersion int    `json:"clarity_version"`
}

type rawTokenTransfer struct {
	RecipientAddress string `json:"recipient_address"`
	Amount           uint64 `json:"amount"`
	Memo             string `json:"memo_hex,omitempty"`
}

type rawEvent struct {
	TxID    string `json:"txid"`
	Type    string `json:"type"`
	Contract *rawContractLog   `json:"contract_log,omitempty"`
	Asset    *rawAssetEvent    `json:"asset,omitempty"`
}

type rawContractLog struct {
	ContractID string `json:"contract_id"`
	Topic      string `json:"topic"`
	ValueHex   string `json:"value"`
}

type rawAssetEvent struct {
	AssetEventType string `json:"asset_event_type"` // transfer | mint | burn | lock
	AssetID        string `json:"asset_id,omitempty"`
	Sender         string `json:"sender,omitempty"`
	Recipient      string `json:"recipient,omitempty"`
	Amount         uint64 `json:"amount,omitempty"`
}
