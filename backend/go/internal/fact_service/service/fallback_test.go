package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectFallback(t *testing.T) {
	assert.Len(t, FallbackFacts(), 10)

	// (8 + 15 + 7) % 10 = 0
	assert.Equal(t, fallbackFacts[0], SelectFallback(8, 15, 7))
	// (12 + 31 + 59) % 10 = 2
	assert.Equal(t, fallbackFacts[2], SelectFallback(12, 31, 59))
	assert.Equal(t, SelectFallback(1, 1, 0), SelectFallback(1, 1, 10))
	assert.NotEqual(t, SelectFallback(1, 1, 0), SelectFallback(1, 1, 1))
}

func TestSelectFallback_AlwaysInBounds(t *testing.T) {
	facts := FallbackFacts()
	for month := 1; month <= 12; month++ {
		for day := 1; day <= 31; day++ {
			seen := make(map[string]struct{})
			for minute := 0; minute < 60; minute++ {
				fact := SelectFallback(month, day, minute)
				if !assert.Contains(t, facts, fact, "%d/%d minute %d", month, day, minute) {
					return
				}
				seen[fact] = struct{}{}
			}
			assert.Len(t, seen, len(facts), "%d/%d should cycle through every fallback within an hour", month, day)
		}
	}
}

func TestFallbackFacts_ReturnsCopy(t *testing.T) {
	facts := FallbackFacts()
	facts[0] = "changed"
	assert.NotEqual(t, "changed", fallbackFacts[0])
}
