package pixiv

import (
	"context"
	"fmt"
	"io"

	"pixiv-novel-downloader/model"
)

// fetchPage returns one page of novel ids starting at offset, plus whether
// more pages may follow.
type fetchPage func(ctx context.Context, offset int) ([]int64, bool, error)

// RecordError reports a failure to resolve a single record. The sequence
// stays consumable after one; callers can record it and keep iterating.
type RecordError struct {
	NovelID int64
	Err     error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("novel %v: %v", e.NovelID, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// NovelIter is a lazy, finite, non-restartable sequence of novel records.
// Pagination state is an explicit offset continuation; duplicate ids across
// pages are dropped so each novel is produced at most once.
type NovelIter struct {
	client *Client
	fetch  fetchPage
	buf    []int64
	offset int
	seen   map[int64]struct{}
	done   bool
}

func (c *Client) newIter(fetch fetchPage) *NovelIter {
	return &NovelIter{
		client: c,
		fetch:  fetch,
		seen:   make(map[int64]struct{}),
	}
}

// Next produces the next fully resolved record. It returns io.EOF once the
// sequence is exhausted. A *RecordError leaves the sequence consumable; any
// other error ends it.
func (it *NovelIter) Next(ctx context.Context) (*model.NovelRecord, error) {
	for {
		if len(it.buf) == 0 {
			if it.done {
				return nil, io.EOF
			}

			ids, hasMore, err := it.fetch(ctx, it.offset)
			if err != nil {
				it.done = true
				return nil, err
			}
			it.offset += len(ids)
			if !hasMore || len(ids) == 0 {
				it.done = true
			}

			for _, id := range ids {
				if _, ok := it.seen[id]; ok {
					continue
				}
				it.seen[id] = struct{}{}
				it.buf = append(it.buf, id)
			}
			if len(it.buf) == 0 {
				if it.done {
					return nil, io.EOF
				}
				continue
			}
		}

		id := it.buf[0]
		it.buf = it.buf[1:]

		record, err := it.client.resolveNovel(ctx, id)
		if err != nil {
			return nil, &RecordError{NovelID: id, Err: err}
		}
		return record, nil
	}
}
