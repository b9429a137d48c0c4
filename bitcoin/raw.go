// Package bitcoin decodes raw Bitcoin burn-block notifications from the
// node into the chain-agnostic model, and recognizes Stacks base-chain
// operations embedded in OP_RETURN outputs per the upstream burn-chain
// convention (spec.md §4.2).
package bitcoin

// rawBurnBlock mirrors the JSON body POSTed to /new_burn_block.
type rawBurnBlock struct {
	BurnBlockHash       string            `json:"burn_block_hash"`
	BurnBlockHeight     uint64            `json:"burn_block_height"`
	ParentBurnBlockHash string            `json:"parent_burn_block_hash"`
	BurnBlockTime       uint32            `json:"burn_block_time"`
	RewardRecipients    []rawReward       `json:"reward_recipients"`
	RewardSlotHolders   []string          `json:"reward_slot_holders"`
	Reveal              []rawRevealedTx   `json:"reveal"`
	Network             string            `json:"network,omitempty"`
}

type rawReward struct {
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount"`
}

type rawRevealedTx struct {
	Txid  string       `json:"txid"`
	Vin   []rawVin     `json:"vin"`
	Vout  []rawVout    `json:"vout"`
	Fee   uint64       `json:"fee"`
	Index uint32       `json:"index"`
	Proof *string      `json:"proof,omitempty"`
}

type rawVin struct {
	Txid     string   `json:"txid"`
	Vout     uint32   `json:"vout"`
	ScriptSig string  `json:"script_sig"`
	Witness  []string `json:"txinwitness"`
	Sequence uint32   `json:"sequence"`
}

type rawVout struct {
	Value        uint64 `json:"value"`
	ScriptPubKey string `json:"script_pubkey"`
}
