package parameters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semstreams-robotics/errors"
)

func TestNewKVWatcher_Validation(t *testing.T) {
	tree, err := NewTree(map[string]any{})
	require.NoError(t, err)

	_, err = NewKVWatcher(nil, tree, nil)
	assert.True(t, errors.IsInvalid(err))
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
}

func TestBucketConfig(t *testing.T) {
	cfg := BucketConfig()
	assert.Equal(t, BucketName, cfg.Bucket)
	assert.Positive(t, cfg.History)
}
