package hiro

import "encoding/json"

// Balances is the response of /extended/v1/address/{principal}/balances.
type Balances struct {
	STX               STXBalance            `json:"stx"`
	FungibleTokens    map[string]FTBalance  `json:"fungible_tokens"`
	NonFungibleTokens map[string]NFTBalance `json:"non_fungible_tokens"`
}

// STXBalance holds micro-STX amounts encoded as decimal strings.
type STXBalance struct {
	Balance                   string `json:"balance"`
	TotalSent                 string `json:"total_sent"`
	TotalReceived             string `json:"total_received"`
	TotalFeesSent             string `json:"total_fees_sent"`
	TotalMinerRewardsReceived string `json:"total_miner_rewards_received"`
	LockTxID                  string `json:"lock_tx_id"`
	Locked                    string `json:"locked"`
	LockHeight                int64  `json:"lock_height"`
	BurnchainLockHeight       int64  `json:"burnchain_lock_height"`
	BurnchainUnlockHeight     int64  `json:"burnchain_unlock_height"`
}

// FTBalance is a fungible token balance in the token's base units.
type FTBalance struct {
	Balance       string `json:"balance"`
	TotalSent     string `json:"total_sent"`
	TotalReceived string `json:"total_received"`
}

// NFTBalance counts the tokens held for one NFT asset.
type NFTBalance struct {
	Count         string `json:"count"`
	TotalSent     string `json:"total_sent"`
	TotalReceived string `json:"total_received"`
}

// ClarityValue is a Clarity value in its hex and human-readable forms.
type ClarityValue struct {
	Hex  string `json:"hex"`
	Repr string `json:"repr"`
}

// Transaction is the subset of a Hiro transaction the tools expose.
type Transaction struct {
	TxID             string         `json:"tx_id"`
	TxType           string         `json:"tx_type"`
	TxStatus         string         `json:"tx_status"`
	Nonce            int64          `json:"nonce"`
	FeeRate          string         `json:"fee_rate"`
	SenderAddress    string         `json:"sender_address"`
	Sponsored        bool           `json:"sponsored"`
	BlockHash        string         `json:"block_hash,omitempty"`
	BlockHeight      int64          `json:"block_height,omitempty"`
	BlockTime        int64          `json:"block_time,omitempty"`
	BurnBlockTime    int64          `json:"burn_block_time,omitempty"`
	BurnBlockTimeISO string         `json:"burn_block_time_iso,omitempty"`
	Canonical        bool           `json:"canonical"`
	TxIndex          int64          `json:"tx_index"`
	TxResult         *ClarityValue  `json:"tx_result,omitempty"`
	EventCount       int            `json:"event_count"`
	TokenTransfer    *TokenTransfer `json:"token_transfer,omitempty"`
	ContractCall     *ContractCall  `json:"contract_call,omitempty"`
	SmartContract    *SmartContract `json:"smart_contract,omitempty"`
}

// TokenTransfer is the payload of a token_transfer transaction.
type TokenTransfer struct {
	RecipientAddress string `json:"recipient_address"`
	Amount           string `json:"amount"`
	Memo             string `json:"memo"`
}

// ContractCall is the payload of a contract_call transaction.
type ContractCall struct {
	ContractID        string        `json:"contract_id"`
	FunctionName      string        `json:"function_name"`
	FunctionSignature string        `json:"function_signature"`
	FunctionArgs      []FunctionArg `json:"function_args,omitempty"`
}

// FunctionArg is one argument of a contract call.
type FunctionArg struct {
	Hex  string `json:"hex"`
	Repr string `json:"repr"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// SmartContract is the payload of a smart_contract deployment.
type SmartContract struct {
	ClarityVersion *int   `json:"clarity_version,omitempty"`
	ContractID     string `json:"contract_id"`
	SourceCode     string `json:"source_code"`
}

// TransactionList is a page of transactions.
type TransactionList struct {
	Limit   int           `json:"limit"`
	Offset  int           `json:"offset"`
	Total   int           `json:"total"`
	Results []Transaction `json:"results"`
}

// Contract is the response of /extended/v1/contract/{contract_id}. ABI is
// kept as the raw JSON document.
type Contract struct {
	TxID           string          `json:"tx_id"`
	Canonical      bool            `json:"canonical"`
	ContractID     string          `json:"contract_id"`
	BlockHeight    int64           `json:"block_height"`
	ClarityVersion *int            `json:"clarity_version,omitempty"`
	SourceCode     string          `json:"source_code,omitempty"`
	ABI            json.RawMessage `json:"abi,omitempty"`
}

// ContractSource is the response of the contract source endpoint.
type ContractSource struct {
	Source        string `json:"source"`
	PublishHeight int64  `json:"publish_height"`
}

// NFTHolding is one NFT held by a principal.
type NFTHolding struct {
	AssetIdentifier string       `json:"asset_identifier"`
	Value           ClarityValue `json:"value"`
	BlockHeight     int64        `json:"block_height"`
	TxID            string       `json:"tx_id"`
}

// NFTHoldings is a page of NFT holdings.
type NFTHoldings struct {
	Limit   int          `json:"limit"`
	Offset  int          `json:"offset"`
	Total   int          `json:"total"`
	Results []NFTHolding `json:"results"`
}

// CollectionMetadata describes an NFT contract.
type CollectionMetadata struct {
	Name              string `json:"name"`
	Description       string `json:"description,omitempty"`
	ImageURI          string `json:"image_uri,omitempty"`
	ImageThumbnailURI string `json:"image_thumbnail_uri,omitempty"`
}

// TokenMetadata describes a single NFT.
type TokenMetadata struct {
	Name              string      `json:"name"`
	Description       string      `json:"description,omitempty"`
	ImageURI          string      `json:"image_uri,omitempty"`
	ImageThumbnailURI string      `json:"image_thumbnail_uri,omitempty"`
	ImageCanonicalURI string      `json:"image_canonical_uri,omitempty"`
	Attributes        []Attribute `json:"attributes,omitempty"`
}

// Attribute is an NFT trait. Value may be a string or a number.
type Attribute struct {
	TraitType   string `json:"trait_type"`
	Value       any    `json:"value"`
	DisplayType string `json:"display_type,omitempty"`
}

// PoxInfo is the response of /v2/pox.
type PoxInfo struct {
	ContractID                string    `json:"contract_id"`
	PoxActivationThreshold    int64     `json:"pox_activation_threshold_ustx"`
	FirstBurnchainBlockHeight int64     `json:"first_burnchain_block_height"`
	CurrentBurnchainHeight    int64     `json:"current_burnchain_block_height"`
	MinAmountUSTX             int64     `json:"min_amount_ustx"`
	RewardCycleID             int64     `json:"reward_cycle_id"`
	RewardCycleLength         int64     `json:"reward_cycle_length"`
	PrepareCycleLength        int64     `json:"prepare_cycle_length"`
	TotalLiquidSupplyUSTX     int64     `json:"total_liquid_supply_ustx"`
	CurrentCycle              PoxCycle  `json:"current_cycle"`
	NextCycle                 NextCycle `json:"next_cycle"`
}

// PoxCycle is the state of the current reward cycle.
type PoxCycle struct {
	ID               int64 `json:"id"`
	MinThresholdUSTX int64 `json:"min_threshold_ustx"`
	StackedUSTX      int64 `json:"stacked_ustx"`
	IsPoxActive      bool  `json:"is_pox_active"`
}

// NextCycle is the schedule of the upcoming reward cycle.
type NextCycle struct {
	ID                           int64 `json:"id"`
	MinThresholdUSTX             int64 `json:"min_threshold_ustx"`
	StackedUSTX                  int64 `json:"stacked_ustx"`
	MinIncrementUSTX             int64 `json:"min_increment_ustx"`
	PreparePhaseStartBlockHeight int64 `json:"prepare_phase_start_block_height"`
	BlocksUntilPreparePhase      int64 `json:"blocks_until_prepare_phase"`
	RewardPhaseStartBlockHeight  int64 `json:"reward_phase_start_block_height"`
	BlocksUntilRewardPhase       int64 `json:"blocks_until_reward_phase"`
}

// NameInfo is the response of /v1/names/{name}.
type NameInfo struct {
	Address      string `json:"address"`
	Blockchain   string `json:"blockchain"`
	ExpireBlock  int64  `json:"expire_block"`
	LastTxID     string `json:"last_txid"`
	Status       string `json:"status"`
	Zonefile     string `json:"zonefile"`
	ZonefileHash string `json:"zonefile_hash"`
}

// AddressNames is the response of /v1/addresses/stacks/{address}.
type AddressNames struct {
	Names []string `json:"names"`
}
