package localdb

import (
	"context"
	"fmt"

	"trajet.transportbi.org/internal/gateway"
)

// TableCounts returns the row count of every application table.
func (c *Client) TableCounts(ctx context.Context) (map[string]int, error) {
	tables := []string{
		gateway.TableCities,
		gateway.TableBusLines,
		gateway.TableAgencies,
		gateway.TableRoutes,
		gateway.TableAdmins,
		"users",
	}

	counts := make(map[string]int, len(tables))
	for _, table := range tables {
		n, err := c.count(ctx, table)
		if err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}
