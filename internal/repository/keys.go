package repository

import "fmt"

// Cache key layout shared by the projection writers (services) and the
// invalidation worker.

func OwnerItemsKey(ownerID int64) string {
	return fmt.Sprintf("items:owner:%d", ownerID)
}

func ItemKey(itemID int64) string {
	return fmt.Sprintf("item:%d", itemID)
}
