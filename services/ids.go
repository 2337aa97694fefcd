package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dsz/skyfleet/repositories"
)

// nextSequentialID returns prefix plus one more than the highest numeric
// suffix in the collection, zero padded to width: P001, P002, ...
// Ids that do not follow the pattern are ignored.
func nextSequentialID[T any](ctx context.Context, c *repositories.Collection[T], prefix string, width int) (string, error) {
	ids, err := c.IDs(ctx)
	if err != nil {
		return "", err
	}

	highest := 0
	for _, id := range ids {
		if !strings.HasPrefix(id, prefix) {
			continue
		}
		n, err := strconv.Atoi(id[len(prefix):])
		if err != nil || n < 0 {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("%s%0*d", prefix, width, highest+1), nil
}
