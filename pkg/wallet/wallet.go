// Package wallet interprets the outcome a browser wallet reports for a
// transaction a tool described.
package wallet

import (
	"errors"
	"fmt"

	"github.com/germanamz/blasko/pkg/chats/content"
	"github.com/germanamz/blasko/pkg/tools/toolerr"
)

// Result is a wallet's report for one described transaction.
type Result struct {
	ToolCallID string
	Status     content.WalletStatus
	TxID       string
	Error      string
}

// FromPart converts a wallet-result message part.
func FromPart(p content.WalletResult) Result {
	return Result{
		ToolCallID: p.ToolCallID,
		Status:     p.Status,
		TxID:       p.TxID,
		Error:      p.Error,
	}
}

// Err returns nil on success, *toolerr.UserCancelled when the user rejected
// signing and *toolerr.UpstreamError for any other wallet failure.
func (r Result) Err() error {
	switch r.Status {
	case content.WalletSuccess:
		return nil
	case content.WalletRejected:
		return &toolerr.UserCancelled{TxID: r.TxID}
	}

	msg := r.Error
	if msg == "" {
		msg = "wallet reported status " + string(r.Status)
	}
	return &toolerr.UpstreamError{Service: "wallet", Err: errors.New(msg)}
}

// Describe renders the result as a sentence the model can react to.
func (r Result) Describe() string {
	err := r.Err()

	var uc *toolerr.UserCancelled
	switch {
	case err == nil && r.TxID != "":
		return fmt.Sprintf("Wallet result for %s: transaction broadcast, txid %s.", r.ToolCallID, r.TxID)
	case err == nil:
		return fmt.Sprintf("Wallet result for %s: transaction broadcast.", r.ToolCallID)
	case errors.As(err, &uc):
		return fmt.Sprintf("Wallet result for %s: the user rejected the transaction in the wallet.", r.ToolCallID)
	}
	return fmt.Sprintf("Wallet result for %s: transaction failed: %v.", r.ToolCallID, err)
}
