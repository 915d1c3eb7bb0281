package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/detectiq/workbench/internal/domain"
)

func TestNewRunID_Unique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := domain.NewRunID()
		assert.Len(t, id, 26)
		assert.False(t, seen[id], "duplicate run id %s", id)
		seen[id] = true
	}
}

func TestNewRunID_OrdersByTime(t *testing.T) {
	first := domain.NewRunID()
	time.Sleep(2 * time.Millisecond)
	second := domain.NewRunID()
	assert.Less(t, first, second)
}
