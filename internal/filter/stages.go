package filter

import (
	"cmp"
	"slices"
	"strings"

	"arbscan/internal/model"
)

// Exclusion reasons reported by the stages.
const (
	ReasonKnownActor = "known_actor"
	ReasonMultiSwap  = "multi_swap"
	ReasonGas        = "gas"
	ReasonNoBlock    = "no_block"
	ReasonMoved      = "price_moved"
)

// KnownActorStage drops swaps whose sender or recipient is a known router,
// aggregator or bot address.
type KnownActorStage struct {
	addresses map[string]struct{}
}

// NewKnownActorStage copies the address list into an immutable lower-cased set.
func NewKnownActorStage(addresses []string) *KnownActorStage {
	set := make(map[string]struct{}, len(addresses))
	for _, a := range addresses {
		a = strings.ToLower(strings.TrimSpace(a))
		if a != "" {
			set[a] = struct{}{}
		}
	}
	return &KnownActorStage{addresses: set}
}

func (s *KnownActorStage) Name() string { return "known_actor" }

func (s *KnownActorStage) Apply(trades []model.DexTrade) Result {
	res := Result{Kept: make([]model.DexTrade, 0, len(trades)), Excluded: map[string]int{}}
	for _, t := range trades {
		if s.known(t.Sender) || s.known(t.Recipient) {
			res.Excluded[ReasonKnownActor]++
			continue
		}
		res.Kept = append(res.Kept, t)
	}
	return res
}

func (s *KnownActorStage) known(addr string) bool {
	if addr == "" {
		return false
	}
	_, ok := s.addresses[strings.ToLower(addr)]
	return ok
}

// SimpleSwapStage keeps only transactions with exactly one swap event and a
// known gas usage not above MaxGas.
type SimpleSwapStage struct {
	MaxGas float64
}

func NewSimpleSwapStage(maxGas float64) *SimpleSwapStage {
	return &SimpleSwapStage{MaxGas: maxGas}
}

func (s *SimpleSwapStage) Name() string { return "simple_swap" }

func (s *SimpleSwapStage) Apply(trades []model.DexTrade) Result {
	swapsPerTx := make(map[string]int, len(trades))
	for _, t := range trades {
		swapsPerTx[t.TxHash]++
	}

	res := Result{Kept: make([]model.DexTrade, 0, len(trades)), Excluded: map[string]int{}}
	for _, t := range trades {
		if swapsPerTx[t.TxHash] != 1 {
			res.Excluded[ReasonMultiSwap]++
			continue
		}
		if !t.HasGasUsed || t.GasUsed > s.MaxGas {
			res.Excluded[ReasonGas]++
			continue
		}
		res.Kept = append(res.Kept, t)
	}
	return res
}

// FirstMoverStage keeps, per (block, direction), the first swap and any later
// swap whose recipient is the same single recipient seen so far. A later swap
// from a different recipient traded against a price already moved in that block.
type FirstMoverStage struct{}

func NewFirstMoverStage() *FirstMoverStage {
	return &FirstMoverStage{}
}

func (s *FirstMoverStage) Name() string { return "first_mover" }

type blockSide struct {
	block     int64
	direction model.Direction
}

func (s *FirstMoverStage) Apply(trades []model.DexTrade) Result {
	res := Result{Excluded: map[string]int{}}

	groups := make(map[blockSide][]int)
	for i, t := range trades {
		if !t.HasBlock {
			res.Excluded[ReasonNoBlock]++
			continue
		}
		key := blockSide{block: t.BlockNumber, direction: t.Direction()}
		groups[key] = append(groups[key], i)
	}

	passed := make([]bool, len(trades))
	for _, idx := range groups {
		slices.SortStableFunc(idx, func(a, b int) int {
			if c := cmp.Compare(trades[a].TransactionIndex, trades[b].TransactionIndex); c != 0 {
				return c
			}
			return cmp.Compare(trades[a].LogIndex, trades[b].LogIndex)
		})

		recipients := make(map[string]struct{}, 1)
		for pos, i := range idx {
			r := trades[i].Recipient
			if pos > 0 && !sameRecipient(recipients, r) {
				res.Excluded[ReasonMoved]++
				continue
			}
			passed[i] = true
			if r != "" {
				recipients[r] = struct{}{}
			}
		}
	}

	res.Kept = make([]model.DexTrade, 0, len(trades))
	for i, t := range trades {
		if passed[i] {
			res.Kept = append(res.Kept, t)
		}
	}
	return res
}

// sameRecipient reports whether r may follow the recipients accumulated so far.
func sameRecipient(seen map[string]struct{}, r string) bool {
	switch len(seen) {
	case 0:
		return true
	case 1:
		_, ok := seen[r]
		return r != "" && ok
	default:
		return false
	}
}
