package ledger

// Keys are the store locations backing a single account. Both live under the
// account prefix so the charge script always touches a colocated pair.
type Keys struct {
	Balance string
	Status  string
}

// KeysFor derives the balance and status keys from the account identifier.
func KeysFor(account string) Keys {
	return Keys{
		Balance: account + "/balance",
		Status:  account + "/operationStatus",
	}
}

func (k Keys) slice() []string {
	return []string{k.Balance, k.Status}
}
