package engine

// Treasury is the custody accounting ledger: the balance currently held
// plus monotonic in/out/fee counters for audit.
type Treasury struct {
	Balance            uint64 `json:"balance"`
	TotalIn            uint64 `json:"total_in"`
	TotalOut           uint64 `json:"total_out"`
	TotalFeesWithdrawn uint64 `json:"total_fees_withdrawn"`
}

func (t *Treasury) deposit(amount uint64) error {
	balance, err := addU64(t.Balance, amount)
	if err != nil {
		return err
	}
	totalIn, err := addU64(t.TotalIn, amount)
	if err != nil {
		return err
	}
	t.Balance = balance
	t.TotalIn = totalIn
	return nil
}

func (t *Treasury) payOut(amount uint64) error {
	if t.Balance < amount {
		return ErrInsufficientCustody
	}
	totalOut, err := addU64(t.TotalOut, amount)
	if err != nil {
		return err
	}
	t.Balance -= amount
	t.TotalOut = totalOut
	return nil
}

func (t *Treasury) withdrawFee(amount uint64) error {
	if t.Balance < amount {
		return ErrInsufficientCustody
	}
	fees, err := addU64(t.TotalFeesWithdrawn, amount)
	if err != nil {
		return err
	}
	t.Balance -= amount
	t.TotalFeesWithdrawn = fees
	return nil
}
