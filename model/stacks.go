package model

// StacksBlock is the normalized form of a raw Stacks /new_block notification.
type StacksBlock struct {
	BlockIdentifier       BlockIdentifier      `json:"block_identifier"`
	ParentBlockIdentifier BlockIdentifier      `json:"parent_block_identifier"`
	Timestamp             uint32               `json:"timestamp"`
	Metadata              StacksBlockMetadata  `json:"metadata"`
	Transactions          []StacksTransaction  `json:"transactions"`
}

type StacksBlockMetadata struct {
	BitcoinAnchorBlockIdentifier BlockIdentifier `json:"bitcoin_anchor_block_identifier"`
	PoxCycleIndex                uint64          `json:"pox_cycle_index"`
	PoxCyclePosition             uint64          `json:"pox_cycle_position"`
	PoxCycleLength               uint64          `json:"pox_cycle_length"`
	ConfirmMicroblockIdentifier  *BlockIdentifier `json:"confirm_microblock_identifier,omitempty"`
}

// StacksMicroblock extends a Stacks block (or another microblock) before
// the next anchor block arrives. A sequence of these forms a "trail".
type StacksMicroblock struct {
	BlockIdentifier       BlockIdentifier     `json:"block_identifier"`
	ParentBlockIdentifier BlockIdentifier     `json:"parent_block_identifier"`
	Transactions          []StacksTransaction `json:"transactions"`
}

// StacksTxKind tags the decoded payload variant of a Stacks transaction.
type StacksTxKind string

const (
	StacksTxContractCall       StacksTxKind = "ContractCall"
	StacksTxContractDeployment StacksTxKind = "ContractDeployment"
	StacksTxTokenTransfer      StacksTxKind = "TokenTransfer"
	StacksTxCoinbase           StacksTxKind = "Coinbase"
	StacksTxBitcoinOp          StacksTxKind = "BitcoinOp"
	StacksTxOther              StacksTxKind = "Other"
)

type ContractCallPayload struct {
	ContractID string   `json:"contract_id"`
	Method     string   `json:"method"`
	Args       []string `json:"args"`
}

type ContractDeploymentPayload struct {
	Name           string `json:"name"`
	Source         string `json:"source"`
	ClarityVersion int    `json:"clarity_version"`
	// ImplementedTraits lists the fully-qualified traits the analyzer
	// determined this deployment implements; not on the wire-format
	// input, computed by the Stacks decoder (see stacks.AnalyzeTraits).
	ImplementedTraits []string `json:"implemented_traits,omitempty"`
}

type TokenTransferPayload struct {
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount"`
	Memo      string `json:"memo,omitempty"`
}

// EventKind tags a receipt event.
type EventKind string

const (
	EventPrint         EventKind = "print"
	EventSTXTransfer   EventKind = "stx_transfer"
	EventSTXMint       EventKind = "stx_mint"
	EventSTXBurn       EventKind = "stx_burn"
	EventSTXLock       EventKind = "stx_lock"
	EventFTTransfer    EventKind = "ft_transfer"
	EventFTMint        EventKind = "ft_mint"
	EventFTBurn        EventKind = "ft_burn"
	EventNFTTransfer   EventKind = "nft_transfer"
	EventNFTMint       EventKind = "nft_mint"
	EventNFTBurn       EventKind = "nft_burn"
)

// Event is one entry of a transaction's receipt. AssetID and Value are
// populated according to Kind; Kind==EventPrint uses ContractID+Value,
// the STX/FT/NFT kinds use AssetID+Sender+Recipient+Amount.
type Event struct {
	Kind       EventKind `json:"kind"`
	ContractID string    `json:"contract_id,omitempty"`
	AssetID    string    `json:"asset_id,omitempty"`
	Sender     string    `json:"sender,omitempty"`
	Recipient  string    `json:"recipient,omitempty"`
	Amount     uint64    `json:"amount,omitempty"`
	// Value is the Clarity-printed value for print events (or the NFT
	// asset id's printed form for NFT events).
	Value string `json:"value,omitempty"`
}

type Receipt struct {
	Events                []Event  `json:"events"`
	MutatedContractsRadius []string `json:"mutated_contracts_radius"`
	MutatedAssetsRadius    []string `json:"mutated_assets_radius"`
}

type StacksTransaction struct {
	TransactionIdentifier TransactionIdentifier     `json:"transaction_identifier"`
	Operations            []Operation                `json:"operations,omitempty"`
	Metadata              StacksTransactionMetadata `json:"metadata"`
}

type StacksTransactionMetadata struct {
	Kind    StacksTxKind `json:"kind"`
	Receipt Receipt      `json:"receipt"`
	Success bool         `json:"success"`
	Result  string       `json:"result"`
	Sender  string       `json:"sender"`
	Fee     uint64       `json:"fee"`
	Nonce   uint64       `json:"nonce"`
	Sponsor *string      `json:"sponsor,omitempty"`

	ContractCall       *ContractCallPayload       `json:"contract_call,omitempty"`
	ContractDeployment *ContractDeploymentPayload `json:"contract_deployment,omitempty"`
	TokenTransfer      *TokenTransferPayload      `json:"token_transfer,omitempty"`
}
