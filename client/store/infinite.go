package store

import (
	"context"
	"sync"
)

const DefaultScrollThreshold = 250

// LoadFunc loads page and returns the total page count.
type LoadFunc func(ctx context.Context, page int) (totalPages int, err error)

// InfiniteLoader requests the next page when the viewport nears the bottom of
// the list. It never has two pages outstanding and stops after the last page.
type InfiniteLoader struct {
	load      LoadFunc
	threshold float64

	mu         sync.Mutex
	page       int
	totalPages int
	inflight   bool
}

// NewInfiniteLoader starts after page 1 with totalPages known from the first load.
func NewInfiniteLoader(load LoadFunc, totalPages int) *InfiniteLoader {
	return &InfiniteLoader{load: load, threshold: DefaultScrollThreshold, page: 1, totalPages: totalPages}
}

// Reset restarts paging, e.g. after the search or filter changed.
func (l *InfiniteLoader) Reset(totalPages int) {
	l.mu.Lock()
	l.page = 1
	l.totalPages = totalPages
	l.mu.Unlock()
}

// HasMore reports whether a further page exists.
func (l *InfiniteLoader) HasMore() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.page < l.totalPages
}

// OnScroll loads the next page when scrollHeight-(scrollTop+clientHeight) is
// within the threshold. It reports whether a load ran.
func (l *InfiniteLoader) OnScroll(ctx context.Context, scrollTop, clientHeight, scrollHeight float64) (bool, error) {
	if scrollHeight-(scrollTop+clientHeight) > l.threshold {
		return false, nil
	}
	l.mu.Lock()
	if l.inflight || l.page >= l.totalPages {
		l.mu.Unlock()
		return false, nil
	}
	l.inflight = true
	next := l.page + 1
	l.mu.Unlock()

	total, err := l.load(ctx, next)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.inflight = false
	if err != nil {
		return true, err
	}
	l.page = next
	l.totalPages = total
	return true, nil
}
