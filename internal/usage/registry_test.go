package usage

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRegistryCurrent(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	r.Register("menu_items", func(ctx context.Context, accountID snowflake.ID) (int64, error) {
		return 7, nil
	})

	require.Equal(t, int64(7), r.Current(context.Background(), "menu_items", 1))
}

func TestRegistryMissingCounterIsZero(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	require.Equal(t, int64(0), r.Current(context.Background(), "unknown", 1))
}

func TestRegistryCounterErrorIsZero(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	r.Register("menu_items", func(ctx context.Context, accountID snowflake.ID) (int64, error) {
		return 99, errors.New("db down")
	})

	require.Equal(t, int64(0), r.Current(context.Background(), "menu_items", 1))
}

func TestRegistryReplaceCounter(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	r.Register("menu_items", func(ctx context.Context, accountID snowflake.ID) (int64, error) {
		return 1, nil
	})
	r.Register("menu_items", func(ctx context.Context, accountID snowflake.ID) (int64, error) {
		return 2, nil
	})

	require.Equal(t, int64(2), r.Current(context.Background(), "menu_items", 1))
	require.Equal(t, []string{"menu_items"}, r.Keys())
}
