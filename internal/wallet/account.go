package wallet

import "github.com/Klingon-tech/klingnet-pow/pkg/types"

// Account names a single HD-derived key and the address (public-key hash)
// it controls.
type Account struct {
	Index   uint32
	Name    string
	Address types.PubKeyHash
}

// ResolveAccount re-derives the address for a persisted AccountEntry from
// the wallet's master key, so a caller listing accounts doesn't need to
// trust a potentially-stale address string stored alongside it.
func ResolveAccount(entry AccountEntry, master *HDKey) (Account, error) {
	change, index := entry.Derivation()
	child, err := master.DeriveAddress(0, change, index)
	if err != nil {
		return Account{}, err
	}
	return Account{
		Index:   index,
		Name:    entry.Name,
		Address: child.PubKeyHash(),
	}, nil
}
