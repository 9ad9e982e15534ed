package tx

import "github.com/Klingon-tech/klingnet-pow/pkg/crypto"

// BuildSpendingTransaction signs each of the given outpoints with priv and
// assembles a transaction spending them into outputs. The
// message signed for an input is the UTF-8 hex string of that input's own
// referenced previous transaction id — not the new transaction's id and
// not any input's own hash.
func BuildSpendingTransaction(priv *crypto.PrivateKey, spend []Input, outputs []Output) (*Transaction, error) {
	inputs := make([]Input, len(spend))
	for i, in := range spend {
		sig, err := crypto.CreateDigitalSignature(string(in.PrevTxID), priv)
		if err != nil {
			return nil, err
		}
		inputs[i] = Input{
			Outpoint:        in.Outpoint,
			UnlockingScript: crypto.BuildUnlockingScript(sig, priv.PublicKeyHex()),
		}
	}
	return New(inputs, outputs), nil
}
