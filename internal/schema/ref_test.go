package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRef_LoadReturnsInitialValidator(t *testing.T) {
	v, err := DefaultSchema()
	require.NoError(t, err)

	ref := NewRef(v)
	assert.Same(t, v, ref.Load())
}

func TestRef_StoreSwapsValidatorForFutureLoads(t *testing.T) {
	v1, err := DefaultSchema()
	require.NoError(t, err)
	v2, err := DefaultSchema()
	require.NoError(t, err)

	ref := NewRef(v1)
	loaded := ref.Load()
	require.Same(t, v1, loaded)

	ref.Store(v2)
	assert.Same(t, v2, ref.Load())
	// The handler that already loaded v1 keeps using it; Ref does not
	// retroactively change what a prior Load returned.
	assert.Same(t, v1, loaded)
}
