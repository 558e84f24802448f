package search

import (
	"context"
	"creditline/domain/credit"
	"log/slog"

	"github.com/blugelabs/bluge"
)

// UserIndex maintains a full-text index over user names so operators can
// find an account without knowing its id. The badger ledger stays the
// source of truth; this index is derived data and can be rebuilt from it.
type UserIndex struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func OpenUserIndex(path string, log *slog.Logger) (*UserIndex, error) {
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(path))
	if err != nil {
		return nil, err
	}
	return &UserIndex{writer: writer, log: log}, nil
}

func (i *UserIndex) Index(user credit.User) error {
	doc := bluge.NewDocument(user.ID).
		AddField(bluge.NewTextField("full_name", user.FullName).StoreValue())
	return i.writer.Update(doc.ID(), doc)
}

// Search returns the ids of up to limit users matching the query.
func (i *UserIndex) Search(ctx context.Context, query string, limit int) ([]string, error) {
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			i.log.Warn("Closing index reader failed", "err", err)
		}
	}()

	matchQuery := bluge.NewMatchQuery(query).SetField("full_name")
	request := bluge.NewTopNSearch(limit, matchQuery)

	iterator, err := reader.Search(ctx, request)
	if err != nil {
		return nil, err
	}

	var ids []string
	match, err := iterator.Next()
	for err == nil && match != nil {
		visitErr := match.VisitStoredFields(func(field string, value []byte) bool {
			if field == "_id" {
				ids = append(ids, string(value))
			}
			return true
		})
		if visitErr != nil {
			return nil, visitErr
		}
		match, err = iterator.Next()
	}
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (i *UserIndex) Close() error {
	return i.writer.Close()
}
