package wallet

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/germanamz/blasko/pkg/chats/content"
	"github.com/germanamz/blasko/pkg/tools/toolerr"
)

func TestResultErr(t *testing.T) {
	assert.NoError(t, Result{Status: content.WalletSuccess, TxID: "0xabc"}.Err())

	err := Result{Status: content.WalletRejected, TxID: "0xabc"}.Err()
	var uc *toolerr.UserCancelled
	assert.ErrorAs(t, err, &uc)
	assert.Equal(t, "0xabc", uc.TxID)
	assert.Equal(t, toolerr.KindUserCancelled, toolerr.KindOf(err))

	err = Result{Status: content.WalletFailed, Error: "nonce too low"}.Err()
	var ue *toolerr.UpstreamError
	assert.ErrorAs(t, err, &ue)
	assert.Equal(t, "wallet", ue.Service)
	assert.Equal(t, "wallet: nonce too low", err.Error())

	err = Result{Status: content.WalletFailed}.Err()
	assert.Contains(t, err.Error(), "wallet reported status failed")
}

func TestFromPartAndDescribe(t *testing.T) {
	r := FromPart(content.WalletResult{ToolCallID: "call_1", Status: content.WalletSuccess, TxID: "0xabc"})
	assert.Equal(t, "Wallet result for call_1: transaction broadcast, txid 0xabc.", r.Describe())

	r = FromPart(content.WalletResult{ToolCallID: "call_2", Status: content.WalletRejected})
	assert.Equal(t, "Wallet result for call_2: the user rejected the transaction in the wallet.", r.Describe())

	r = FromPart(content.WalletResult{ToolCallID: "call_3", Status: content.WalletFailed, Error: "boom"})
	assert.Equal(t, "Wallet result for call_3: transaction failed: wallet: boom.", r.Describe())
}
