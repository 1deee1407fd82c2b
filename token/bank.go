package token

import (
	"fmt"
	"sync"

	"github.com/alphabill-org/alphabill-bridge-base/types"
	"github.com/alphabill-org/alphabill-bridge-base/util"
)

type (
	accountKey struct {
		token types.Address
		owner types.Address
	}

	allowanceKey struct {
		token   types.Address
		owner   types.Address
		spender types.Address
	}

	// Bank is an in-memory multi token ledger.
	Bank struct {
		mu         sync.Mutex
		balances   map[accountKey]uint64
		allowances map[allowanceKey]uint64
	}
)

func NewBank() *Bank {
	return &Bank{
		balances:   make(map[accountKey]uint64),
		allowances: make(map[allowanceKey]uint64),
	}
}

// Mint credits amount of token to owner.
func (b *Bank) Mint(token, owner types.Address, amount uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := accountKey{token: token, owner: owner}
	balance, ok := util.SafeAdd(b.balances[key], amount)
	if !ok {
		return fmt.Errorf("minting %d of %s: balance overflow", amount, token)
	}
	b.balances[key] = balance
	return nil
}

// Approve sets the amount of owner's token the spender may transfer.
func (b *Bank) Approve(token, owner, spender types.Address, amount uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := allowanceKey{token: token, owner: owner, spender: spender}
	if amount == 0 {
		delete(b.allowances, key)
		return
	}
	b.allowances[key] = amount
}

func (b *Bank) Allowance(token, owner, spender types.Address) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.allowances[allowanceKey{token: token, owner: owner, spender: spender}]
}

func (b *Bank) BalanceOf(token, owner types.Address) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[accountKey{token: token, owner: owner}]
}

// TotalSupply returns sum of all balances of the token.
func (b *Bank) TotalSupply(token types.Address) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	var sum uint64
	for k, v := range b.balances {
		if k.token == token {
			sum += v
		}
	}
	return sum
}

func (b *Bank) Transfer(transfers ...Transfer) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	// transfers are applied to copies of the touched entries and committed
	// only when all of them succeed
	balances := map[accountKey]uint64{}
	allowances := map[allowanceKey]uint64{}
	balance := func(k accountKey) uint64 {
		if v, ok := balances[k]; ok {
			return v
		}
		return b.balances[k]
	}

	for i, t := range transfers {
		if err := t.IsValid(); err != nil {
			return fmt.Errorf("transfer[%d]: %w", i, err)
		}
		if t.Spender != (types.Address{}) && t.Spender != t.From {
			ak := allowanceKey{token: t.Token, owner: t.From, spender: t.Spender}
			allowance, ok := allowances[ak]
			if !ok {
				allowance = b.allowances[ak]
			}
			left, ok := util.SafeSub(allowance, t.Amount)
			if !ok {
				return fmt.Errorf("transfer[%d] %s: %w: spender %s may transfer %d", i, t, ErrInsufficientAllowance, t.Spender, allowance)
			}
			allowances[ak] = left
		}

		from := accountKey{token: t.Token, owner: t.From}
		fromBalance := balance(from)
		debited, ok := util.SafeSub(fromBalance, t.Amount)
		if !ok {
			return fmt.Errorf("transfer[%d] %s: %w: balance is %d", i, t, ErrInsufficientBalance, fromBalance)
		}
		to := accountKey{token: t.Token, owner: t.To}
		toBalance, ok := util.SafeAdd(balance(to), t.Amount)
		if !ok {
			return fmt.Errorf("transfer[%d] %s: receiver balance overflow", i, t)
		}
		balances[from] = debited
		balances[to] = toBalance
	}

	for k, v := range balances {
		if v == 0 {
			delete(b.balances, k)
		} else {
			b.balances[k] = v
		}
	}
	for k, v := range allowances {
		if v == 0 {
			delete(b.allowances, k)
		} else {
			b.allowances[k] = v
		}
	}
	return nil
}
