package pgforge

// catalog.go answers column-existence questions against the system
// catalog. Lookups run through the same transactional path as everything
// else, and results are cached per table/column with in-flight coalescing
// so concurrent auto-timestamp checks for the same column share one query.

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

const columnExistsSQL = "SELECT column_name FROM information_schema.columns WHERE table_name = $1 AND column_name = $2"

type catalog struct {
	group singleflight.Group
	mu    sync.RWMutex
	known map[string]bool
}

func newCatalog() *catalog {
	return &catalog{known: make(map[string]bool)}
}

// HasColumn reports whether table has the named column. The first lookup
// for a table/column pair hits the database; later ones are served from
// cache. Schema changes after the first lookup are not observed.
func (c *Client) HasColumn(ctx context.Context, table, column string) (bool, error) {
	key := table + "." + column

	c.catalog.mu.RLock()
	exists, ok := c.catalog.known[key]
	c.catalog.mu.RUnlock()
	if ok {
		return exists, nil
	}

	v, err, _ := c.catalog.group.Do(key, func() (any, error) {
		res, err := c.Transaction(ctx, TxRequest{
			Statements: []StatementSpec{{SQL: columnExistsSQL, Args: []any{table, column}}},
		}, nil)
		if err != nil {
			return false, err
		}
		found := len(res.Rows) > 0

		c.catalog.mu.Lock()
		c.catalog.known[key] = found
		c.catalog.mu.Unlock()
		return found, nil
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}
