package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/polkiloo/snackbar/internal/domain/errors"
	"github.com/polkiloo/snackbar/internal/domain/model"
	"github.com/polkiloo/snackbar/internal/test"
)

func TestSelectorFor(t *testing.T) {
	table := NewMemory(model.OriginTable, time.Minute, nil)
	store := test.NewMemoryStore()
	sel := NewSelector(table)

	q, err := sel.For(model.OriginTable, store)
	require.NoError(t, err)
	assert.Same(t, table, q)
	assert.Same(t, table, sel.Table())

	q, err = sel.For(model.OriginKiosk, store)
	require.NoError(t, err)
	assert.NotNil(t, q)
	assert.NotSame(t, table, q)

	_, err = sel.For("DELIVERY", store)
	assert.ErrorIs(t, err, domainErrors.ErrValidation)
}
