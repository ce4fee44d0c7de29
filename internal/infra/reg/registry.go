package reg

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
	log "github.com/sirupsen/logrus"
)

const DefaultSize = 4096

// NameResolver looks up a user's display name. ok is false when the user
// is unknown to the chat platform.
type NameResolver interface {
	ResolveName(ctx context.Context, userID string) (name string, ok bool)
}

// Names caches display names by user id. An entry is written once and is
// only looked up again after it has been evicted.
type Names struct {
	cache    *lru.Cache[string, string]
	resolver NameResolver
}

func NewNames(resolver NameResolver, size int) *Names {
	if size <= 0 {
		size = DefaultSize
	}
	cache, err := lru.New[string, string](size)
	if err != nil {
		log.WithError(err).Fatalln("cant create names cache")
	}
	return &Names{cache: cache, resolver: resolver}
}

// Get returns the cached name, resolving it on a miss. Unresolvable ids are
// returned as-is and are not cached, so a later lookup can still succeed.
func (n *Names) Get(ctx context.Context, userID string) string {
	if name, ok := n.cache.Get(userID); ok {
		return name
	}
	entry := log.WithFields(log.Fields{"object": "Names", "user_id": userID})
	if n.resolver == nil {
		return userID
	}
	name, ok := n.resolver.ResolveName(ctx, userID)
	if !ok || name == "" {
		entry.Debug("cant resolve name, using id")
		return userID
	}
	entry.WithField("name", name).Trace("resolved name")
	n.cache.Add(userID, name)
	return name
}

func (n *Names) Len() int {
	return n.cache.Len()
}
