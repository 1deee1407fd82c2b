package types

// Changeset describes the records modified by one successful Source Ledger
// operation. When loaded from a store it holds the complete state.
type Changeset struct {
	Version    uint64 // ledger state version after the change
	StateHash  []byte // ledger state hash after the change
	Timestamp  uint64 // latest ledger timestamp seen
	TokenPairs []*TokenPair
	Tickets    []*TicketRecord
	Batches    []*BatchAuthorization
}

func (c *Changeset) IsEmpty() bool {
	return c == nil || (len(c.TokenPairs) == 0 && len(c.Tickets) == 0 && len(c.Batches) == 0)
}
