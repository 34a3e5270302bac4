package monitor

import (
	"context"
	"log"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"hort-presence-backend/config"
	"hort-presence-backend/internal/notification"
	"hort-presence-backend/internal/session"
	"hort-presence-backend/internal/store"
)

// Backend is the slice of the session client the monitor loop consumes.
type Backend interface {
	ListActiveGroups(ctx context.Context) ([]session.ActiveGroup, error)
	DisplayVisits(ctx context.Context, activeGroupID string) ([]session.StudentLocation, error)
	UnclaimedActiveGroups(ctx context.Context) ([]session.ActiveGroup, error)
}

// Service orchestrates the presence-monitor cycle: it pulls the current
// roster from the session backend, persists presence changes and dispatches
// alerts for newly unclaimed sessions.
type Service struct {
	cfg        *config.Config
	store      store.Store
	backend    Backend
	workerPool *notification.WorkerPool
}

// NewService creates and initializes a new monitor service.
func NewService(cfg *config.Config, store store.Store, backend Backend) *Service {
	webpushOptions := webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}

	workerPool := notification.NewWorkerPool(cfg.WorkerPool.Size, store.DB(), &webpushOptions)

	return &Service{
		cfg:        cfg,
		store:      store,
		backend:    backend,
		workerPool: workerPool,
	}
}

// Run starts the monitor loop.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Monitor.Enabled {
		log.Println("Monitor is disabled. Not starting.")
		return
	}
	log.Println("Starting presence monitor...")

	s.workerPool.Start(ctx)

	s.PollOnce(ctx)

	timer := time.NewTimer(s.cfg.Monitor.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Presence monitor shutting down.")
			return
		case <-timer.C:
			s.PollOnce(ctx)
			timer.Reset(s.cfg.Monitor.Interval)
		}
	}
}

// PollOnce performs a single monitor cycle and calls the store to persist changes.
func (s *Service) PollOnce(ctx context.Context) {
	log.Println("Executing monitor cycle...")
	now := time.Now().UTC()

	// Step 1: Fetch the currently running sessions.
	groups, err := s.backend.ListActiveGroups(ctx)
	if err != nil {
		log.Printf("Monitor cycle aborted: failed to list active groups: %v. Presence data will not be updated.", err)
		return
	}

	// Step 2: Pull the presence feed of every session.
	var rows []session.StudentLocation
	var fetchErr error
	seen := make(map[string]bool)
	for _, group := range groups {
		groupRows, err := s.backend.DisplayVisits(ctx, group.ID)
		if err != nil {
			log.Printf("Error fetching display visits for active group %s: %v", group.ID, err)
			fetchErr = err
			continue
		}
		for _, row := range groupRows {
			// A student checked into overlapping sessions shows up more than
			// once; the first row wins so one cycle archives at most one span.
			if seen[row.StudentID] {
				continue
			}
			seen[row.StudentID] = true
			rows = append(rows, row)
		}
	}

	// Step 3: Delegate persistence to the store layer. A failed feed leaves
	// that group's students out of the snapshot, and diffing against a partial
	// snapshot would archive them all as departed. Any fetch failure skips the
	// presence update; the next cycle retries.
	if fetchErr != nil {
		log.Println("Skipping presence update due to fetch errors. Presence data will not be updated this cycle.")
	} else {
		if err := s.store.UpsertGroupsAndStudents(ctx, rows); err != nil {
			log.Printf("Error processing groups and students: %v", err)
			return
		}

		changed, err := s.store.UpdatePresence(ctx, now, rows)
		if err != nil {
			log.Printf("Error processing presence changes: %v", err)
		} else if len(changed) > 0 {
			log.Printf("Presence changed for %d students", len(changed))
		}
	}

	// Step 4: Reconcile unclaimed sessions and alert on fresh ones.
	s.checkUnclaimed(ctx, now)

	log.Println("Monitor cycle finished.")
}

// checkUnclaimed fetches the unsupervised sessions, syncs the alert table and
// dispatches one notification job per newly unclaimed session.
func (s *Service) checkUnclaimed(ctx context.Context, now time.Time) {
	unclaimed, err := s.backend.UnclaimedActiveGroups(ctx)
	if err != nil {
		log.Printf("Error fetching unclaimed groups: %v", err)
		return
	}

	fresh, err := s.store.SyncUnclaimed(ctx, now, unclaimed)
	if err != nil {
		log.Printf("Error syncing unclaimed alerts: %v", err)
		return
	}
	if len(fresh) == 0 {
		return
	}

	groupIDByActiveGroup := make(map[string]string, len(unclaimed))
	for _, group := range unclaimed {
		groupIDByActiveGroup[group.ID] = group.GroupID
	}

	log.Printf("Dispatching alerts for %d newly unclaimed sessions", len(fresh))
	for _, activeGroupID := range fresh {
		s.workerPool.Dispatch(notification.Job{
			ActiveGroupID: activeGroupID,
			GroupID:       groupIDByActiveGroup[activeGroupID],
		})
	}
}
