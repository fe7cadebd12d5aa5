package borrowsvc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"librarydesk/model"
	borrowrepo "librarydesk/repository/borrow"
)

// Notifier delivers a message to one connected user.
type Notifier interface {
	Notify(userID string, kind, message string, data any) bool
}

type Watcher interface {
	// Scan notifies borrowers of overdue books and of books due within a day. It never changes status.
	Scan(ctx context.Context) (overdue, dueSoon int, err error)
	Run(ctx context.Context, every time.Duration) error
}

type watcher struct {
	r    borrowrepo.Repo
	n    Notifier
	fine FinePolicy
	log  *slog.Logger
	now  func() time.Time
}

func NewWatcher(r borrowrepo.Repo, n Notifier, fine FinePolicy, log *slog.Logger, now func() time.Time) Watcher {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = slog.Default()
	}
	return &watcher{r: r, n: n, fine: fine, log: log, now: now}
}

func (w *watcher) Scan(ctx context.Context) (int, int, error) {
	now := w.now().UTC()

	late, err := w.r.ListOverdue(ctx, now)
	if err != nil {
		return 0, 0, err
	}
	for _, req := range late {
		if !model.IsOverdue(req, now) {
			continue
		}
		days := int(now.Sub(req.ExpectedReturnDate).Hours() / 24)
		msg := fmt.Sprintf("%q is overdue by %d day(s). Fine so far: %.2f. Please return it as soon as possible.",
			req.Book.Title, days+1, w.fine.Fine(req.ExpectedReturnDate, now))
		w.n.Notify(req.User.ID, "overdue", msg, req)
	}

	soon, err := w.r.ListDueBetween(ctx, now, now.Add(24*time.Hour))
	if err != nil {
		return len(late), 0, err
	}
	for _, req := range soon {
		msg := fmt.Sprintf("%q is due within 24 hours.", req.Book.Title)
		w.n.Notify(req.User.ID, "due_soon", msg, req)
	}
	return len(late), len(soon), nil
}

// Run scans immediately and then on every tick until ctx is done.
func (w *watcher) Run(ctx context.Context, every time.Duration) error {
	if every <= 0 {
		every = time.Hour
	}
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		overdue, soon, err := w.Scan(ctx)
		if err != nil {
			w.log.Error("overdue scan failed", "err", err)
		} else {
			w.log.Info("overdue scan", "overdue", overdue, "due_soon", soon)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}
