package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBase_Touch(t *testing.T) {
	var b Base
	first := time.Date(2024, 3, 1, 10, 0, 0, 0, time.FixedZone("NZ", 13*3600))
	b.Touch(first)
	assert.Equal(t, first.UTC(), b.CreatedAt)
	assert.Equal(t, first.UTC(), b.UpdatedAt)

	later := first.Add(time.Hour)
	b.Touch(later)
	assert.Equal(t, first.UTC(), b.CreatedAt)
	assert.Equal(t, later.UTC(), b.UpdatedAt)
}

func TestBase_GenIDIfEmpty(t *testing.T) {
	var b Base
	b.GenIDIfEmpty()
	id := b.ID
	assert.False(t, id.IsZero())
	b.GenIDIfEmpty()
	assert.Equal(t, id, b.ID)
}
