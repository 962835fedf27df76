package pool

import (
	"fmt"
	"math/big"
	"sort"

	"coldstakepool/internal/config"
)

// Distribution is the accounting split of one block reward.
type Distribution struct {
	Reward     Amount
	PoolFee    Amount
	StakeBonus Amount
	Credits    []Credit
}

// Distributed returns the total credited to participants.
func (d *Distribution) Distributed() Amount {
	var total Amount
	for _, credit := range d.Credits {
		total += credit.Amount
	}
	return total
}

// Distribute splits a block reward according to the pool parameters in force
// at the block's height.
//
// The pool fee and the staker bonus come off the top. The remainder is
// shared across the delegated stakes pro rata by value, using integer
// arithmetic with largest-remainder assignment so the credited satoshis sum
// exactly to reward minus fee. When no stakes are delegated the whole
// remainder falls to the pool fee.
func Distribute(reward Amount, params config.Parameters, stakerAddress string, stakes []Stake) (*Distribution, error) {
	if reward <= 0 {
		return nil, fmt.Errorf("non-positive block reward %d", int64(reward))
	}

	dist := &Distribution{
		Reward:  reward,
		PoolFee: reward.Percent(params.PoolFeePercent),
	}
	if stakerAddress != "" {
		dist.StakeBonus = reward.Percent(params.StakeBonusPercent)
	}
	remainder := reward - dist.PoolFee - dist.StakeBonus
	if remainder < 0 {
		return nil, fmt.Errorf("fee and bonus percentages exceed reward")
	}

	// Aggregate stake values per address; a participant may hold several
	// delegated outputs.
	weights := make(map[string]Amount, len(stakes))
	var totalWeight Amount
	for _, stake := range stakes {
		if stake.Value <= 0 || stake.Address == "" {
			continue
		}
		weights[stake.Address] += stake.Value
		totalWeight += stake.Value
	}

	if totalWeight == 0 {
		dist.PoolFee += remainder
		if dist.StakeBonus > 0 {
			dist.Credits = []Credit{{Address: stakerAddress, Amount: dist.StakeBonus}}
		}
		return dist, nil
	}

	addresses := make([]string, 0, len(weights))
	for address := range weights {
		addresses = append(addresses, address)
	}
	sort.Strings(addresses)

	type share struct {
		address string
		amount  Amount
		rem     *big.Int
	}

	shares := make([]share, 0, len(addresses))
	var assigned Amount
	total := big.NewInt(int64(totalWeight))
	for _, address := range addresses {
		// floor(remainder * weight / totalWeight), with the division
		// remainder kept for the largest-remainder pass.
		product := new(big.Int).Mul(big.NewInt(int64(remainder)), big.NewInt(int64(weights[address])))
		quotient, modulo := new(big.Int).QuoRem(product, total, new(big.Int))
		amount := Amount(quotient.Int64())
		assigned += amount
		shares = append(shares, share{address: address, amount: amount, rem: modulo})
	}

	leftover := remainder - assigned
	sort.SliceStable(shares, func(i, j int) bool {
		return shares[i].rem.Cmp(shares[j].rem) > 0
	})
	for i := Amount(0); i < leftover; i++ {
		shares[int(i)%len(shares)].amount++
	}

	credits := make(map[string]Amount, len(shares)+1)
	for _, sh := range shares {
		credits[sh.address] = sh.amount
	}
	if dist.StakeBonus > 0 {
		credits[stakerAddress] += dist.StakeBonus
	}

	creditAddresses := make([]string, 0, len(credits))
	for address := range credits {
		creditAddresses = append(creditAddresses, address)
	}
	sort.Strings(creditAddresses)
	for _, address := range creditAddresses {
		if credits[address] <= 0 {
			continue
		}
		dist.Credits = append(dist.Credits, Credit{Address: address, Amount: credits[address]})
	}

	if dist.PoolFee+dist.Distributed() != reward {
		return nil, fmt.Errorf("distribution does not conserve reward: fee %d + credits %d != %d",
			int64(dist.PoolFee), int64(dist.Distributed()), int64(reward))
	}
	return dist, nil
}
