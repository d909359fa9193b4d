package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDexTrade_Direction(t *testing.T) {
	assert.Equal(t, Buy, DexTrade{AmountB: 2}.Direction())
	assert.Equal(t, Sell, DexTrade{AmountB: -2}.Direction())
	// zero amount is not a buy
	assert.Equal(t, Sell, DexTrade{}.Direction())
}

func TestDexTrade_BaseVolume(t *testing.T) {
	assert.Equal(t, 1.5, DexTrade{AmountB: -1.5}.BaseVolume())
	assert.Equal(t, 1.5, DexTrade{AmountB: 1.5}.BaseVolume())
}

func TestLegs(t *testing.T) {
	d := DexTrade{Timestamp: 10, Price: 2500, FeeRate: 0.003, Slippage: 0.002}
	assert.Equal(t, Leg{Venue: VenueDex, Price: 2500, FeeRate: 0.003, Slippage: 0.002, Timestamp: 10}, d.Leg())

	c := CexTrade{Timestamp: 11, Price: 2550, FeeRate: 0.001, Slippage: 0.001}
	assert.Equal(t, Leg{Venue: VenueCex, Price: 2550, FeeRate: 0.001, Slippage: 0.001, Timestamp: 11}, c.Leg())
}

func TestDirection_Opposite(t *testing.T) {
	assert.Equal(t, Sell, Buy.Opposite())
	assert.Equal(t, Buy, Sell.Opposite())
}
