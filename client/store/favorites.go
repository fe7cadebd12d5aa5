package store

import (
	"sort"
	"sync"

	"librarydesk/model"
)

// FavoriteSet is the client's single record of which books the signed-in user
// has favorited. It is replaced wholesale from each authoritative user record.
type FavoriteSet struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

func NewFavoriteSet() *FavoriteSet { return &FavoriteSet{ids: map[string]struct{}{}} }

// Replace resets the set to u's favorites; a nil user empties it.
func (f *FavoriteSet) Replace(u *model.User) {
	next := map[string]struct{}{}
	if u != nil {
		for _, b := range u.FavoriteBooks {
			next[b.ID] = struct{}{}
		}
	}
	f.mu.Lock()
	f.ids = next
	f.mu.Unlock()
}

func (f *FavoriteSet) Clear() { f.Replace(nil) }

func (f *FavoriteSet) Has(bookID string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.ids[bookID]
	return ok
}

func (f *FavoriteSet) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.ids)
}

// IDs returns the favorited book ids in sorted order.
func (f *FavoriteSet) IDs() []string {
	f.mu.RLock()
	out := make([]string, 0, len(f.ids))
	for id := range f.ids {
		out = append(out, id)
	}
	f.mu.RUnlock()
	sort.Strings(out)
	return out
}
