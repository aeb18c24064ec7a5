package repositories

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestNotificationIndexes(t *testing.T) {
	indexes := notificationIndexes()
	if len(indexes) != 3 {
		t.Fatalf("indexes=%d want 3", len(indexes))
	}

	// partialFilterExpression cannot express "field absent" ($exists: false is
	// rejected at index creation), and unread reads filter exactly that, so no
	// index may carry a partial filter.
	for i, idx := range indexes {
		if idx.Options != nil && idx.Options.PartialFilterExpression != nil {
			t.Errorf("index %d carries a partial filter expression", i)
		}
	}

	var ttl bool
	for _, idx := range indexes {
		keys, ok := idx.Keys.(bson.D)
		if !ok || len(keys) == 0 {
			t.Fatal("index keys must be a non-empty bson.D")
		}
		if keys[0].Key == "expires_at" {
			if idx.Options == nil || idx.Options.ExpireAfterSeconds == nil || *idx.Options.ExpireAfterSeconds != 0 {
				t.Error("expires_at index must set expireAfterSeconds to 0")
			}
			ttl = true
		}
	}
	if !ttl {
		t.Error("TTL index on expires_at is missing")
	}
}
