package backend

import (
	"context"
	"slices"
	"strings"
)

// ListByPrefix returns the sorted keys starting with prefix. Stores
// implementing PrefixLister filter server-side, all others are scanned fully.
func ListByPrefix(ctx context.Context, store Store, prefix string) ([]string, error) {
	var keys []string
	var err error

	if lister, ok := store.(PrefixLister); ok {
		keys, err = lister.ListKeysWithPrefix(ctx, prefix)
		if err != nil {
			return nil, err
		}
	} else {
		all, err := store.ListKeys(ctx)
		if err != nil {
			return nil, err
		}

		for _, key := range all {
			if strings.HasPrefix(key, prefix) {
				keys = append(keys, key)
			}
		}
	}

	slices.Sort(keys)
	return slices.Compact(keys), nil
}
