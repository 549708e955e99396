package stacks

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"go.uber.org/zap"

	"github.com/germanamz/blasko/pkg/tools/toolbox"
	"github.com/germanamz/blasko/pkg/tools/toolerr"
	"github.com/germanamz/blasko/pkg/upstream/hiro"
)

const recentTransactions = 10

var txIDRe = regexp.MustCompile(`^(0x)?[0-9a-fA-F]{64}$`)

// --- getTransaction ---

type getTransactionInput struct {
	TxID string `json:"txId"`
}

func (s *Stacks) getTransactionTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        "getTransaction",
		Description: "Get detailed information about a Stacks blockchain transaction by its transaction ID. Use this when the user asks about a specific transaction, wants to check transaction status, or view transaction details.",
		InputSchema: object(map[string]*jsonschema.Schema{
			"txId": str("The transaction ID (starts with 0x)"),
		}, "txId"),
		Handler: toolbox.Typed(s.getTransaction),
	}
}

func (s *Stacks) getTransaction(ctx context.Context, in getTransactionInput) (any, error) {
	id := strings.TrimSpace(in.TxID)
	if !txIDRe.MatchString(id) {
		return nil, toolerr.Validation("txId", "%q is not a transaction ID", in.TxID)
	}
	if !strings.HasPrefix(id, "0x") {
		id = "0x" + id
	}

	return s.hiro.Transaction(ctx, id)
}

// --- getContract ---

type getContractInput struct {
	ContractAddress string `json:"contractAddress"`
	ContractName    string `json:"contractName"`
}

type contractOutput struct {
	*hiro.Contract
	SourceCode *string `json:"source_code"`
}

func (s *Stacks) getContractTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        "getContract",
		Description: "Get information about a smart contract on the Stacks blockchain including its source code, interface, and status. Use this when the user asks about a contract, wants to see contract code, or check contract details.",
		InputSchema: object(map[string]*jsonschema.Schema{
			"contractAddress": str("The contract deployer address (SP... or ST...)"),
			"contractName":    str("The contract name"),
		}, "contractAddress", "contractName"),
		Handler: toolbox.Typed(s.getContract),
	}
}

func (s *Stacks) getContract(ctx context.Context, in getContractInput) (any, error) {
	if !isStacksAddress(in.ContractAddress) {
		return nil, toolerr.Validation("contractAddress", "%q is not a Stacks address", in.ContractAddress)
	}
	if in.ContractName == "" {
		return nil, toolerr.Validation("contractName", "is required")
	}

	id := in.ContractAddress + "." + in.ContractName

	info, err := s.hiro.Contract(ctx, id)
	if err != nil {
		return nil, err
	}

	out := contractOutput{Contract: info}
	if src, err := s.hiro.ContractSource(ctx, id); err != nil {
		s.log.Debug("contract source unavailable", zap.String("contract", id), zap.Error(err))
	} else {
		out.SourceCode = &src.Source
	}

	return out, nil
}

// --- getAccount ---

type getAccountInput struct {
	Address string `json:"address"`
}

type accountOutput struct {
	Address            string             `json:"address"`
	Balances           *hiro.Balances     `json:"balances"`
	RecentTransactions []hiro.Transaction `json:"recentTransactions"`
}

func (s *Stacks) getAccountTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        "getAccount",
		Description: `Get account information including STX balance, token balances, NFT holdings and recent transactions for a Stacks address. Use this when the user asks about "my balance", "my wallet", "my account", or wants to check a specific address. When the user refers to their own wallet you MUST use the wallet address from the system prompt.`,
		InputSchema: object(map[string]*jsonschema.Schema{
			"address": str("The Stacks address (starts with SP or ST). Use the connected wallet address from the system prompt when the user asks about their own wallet."),
		}, "address"),
		Handler: toolbox.Typed(s.getAccount),
	}
}

func (s *Stacks) getAccount(ctx context.Context, in getAccountInput) (any, error) {
	if in.Address == "" {
		return nil, toolerr.Validation("address", "no wallet address provided; connect a wallet or provide a Stacks address")
	}

	balances, err := s.hiro.Balances(ctx, in.Address)
	if err != nil {
		return nil, err
	}

	out := accountOutput{
		Address:            in.Address,
		Balances:           balances,
		RecentTransactions: []hiro.Transaction{},
	}

	txs, err := s.hiro.AddressTransactions(ctx, in.Address, recentTransactions)
	if err != nil {
		s.log.Debug("recent transactions unavailable", zap.String("address", in.Address), zap.Error(err))
	} else if txs.Results != nil {
		out.RecentTransactions = txs.Results
	}

	return out, nil
}
