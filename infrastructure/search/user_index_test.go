package search

import (
	"context"
	"creditline/domain/credit"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func openTestIndex(t *testing.T) *UserIndex {
	t.Helper()
	index, err := OpenUserIndex(t.TempDir(), slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })
	return index
}

func user(id, fullName string) credit.User {
	return credit.User{ID: id, FullName: fullName, CreditLimit: decimal.New(100, 0), CreatedAt: time.Now().UTC()}
}

func TestUserIndex_Search_By_Name(t *testing.T) {
	req := require.New(t)
	index := openTestIndex(t)

	req.NoError(index.Index(user("u-1", "Alice Doe")))
	req.NoError(index.Index(user("u-2", "Bob Martin")))
	req.NoError(index.Index(user("u-3", "Alice Cooper")))

	ids, err := index.Search(context.Background(), "alice", 10)
	req.NoError(err)
	req.ElementsMatch([]string{"u-1", "u-3"}, ids)

	ids, err = index.Search(context.Background(), "martin", 10)
	req.NoError(err)
	req.Equal([]string{"u-2"}, ids)
}

func TestUserIndex_Reindex_Replaces_Document(t *testing.T) {
	req := require.New(t)
	index := openTestIndex(t)

	req.NoError(index.Index(user("u-1", "Alice Doe")))
	req.NoError(index.Index(user("u-1", "Alice Smith")))

	ids, err := index.Search(context.Background(), "doe", 10)
	req.NoError(err)
	req.Empty(ids)

	ids, err = index.Search(context.Background(), "smith", 10)
	req.NoError(err)
	req.Equal([]string{"u-1"}, ids)
}

func TestUserIndex_No_Match(t *testing.T) {
	req := require.New(t)
	index := openTestIndex(t)

	req.NoError(index.Index(user("u-1", "Alice Doe")))

	ids, err := index.Search(context.Background(), "zzz", 10)
	req.NoError(err)
	req.Empty(ids)
}
