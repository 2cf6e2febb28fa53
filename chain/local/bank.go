package local

import (
	"fmt"
	"math/big"
	"sort"
	"sync"
)

// Bank keeps destination chain balances in memory.
type Bank struct {
	mu       sync.RWMutex
	balances map[string]map[string]*big.Int
}

func NewBank() *Bank {
	return &Bank{balances: make(map[string]map[string]*big.Int)}
}

func (b *Bank) Mint(receiver, denom string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("can't mint non positive amount %v", amount)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	byDenom, ok := b.balances[receiver]
	if !ok {
		byDenom = make(map[string]*big.Int)
		b.balances[receiver] = byDenom
	}
	if byDenom[denom] == nil {
		byDenom[denom] = new(big.Int)
	}
	byDenom[denom].Add(byDenom[denom], amount)
	return nil
}

func (b *Bank) Balance(addr, denom string) *big.Int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if v := b.balances[addr][denom]; v != nil {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}

func (b *Bank) Denoms(addr string) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	res := make([]string, 0, len(b.balances[addr]))
	for denom := range b.balances[addr] {
		res = append(res, denom)
	}
	sort.Strings(res)
	return res
}
