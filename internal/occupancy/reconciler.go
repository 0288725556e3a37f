package occupancy

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"unistay/internal/occupancy/repository"
	"unistay/pkg/logger"
	"unistay/pkg/metrics"

	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrRunning is returned when a reconcile pass is already in progress.
var ErrRunning = errors.New("occupancy reconcile already running")

type OccupancySetter interface {
	SetOccupancy(ctx context.Context, id string, occupied int) error
}

type Correction struct {
	PropertyID string `json:"property_id"`
	Stored     int    `json:"stored"`
	Actual     int    `json:"actual"`
}

type Report struct {
	Checked     int           `json:"checked"`
	Corrections []Correction  `json:"corrections"`
	Failed      int           `json:"failed"`
	Duration    time.Duration `json:"duration_ns"`
}

// Reconciler recomputes every property's occupied room counter from its
// active bookings and repairs drift.
type Reconciler struct {
	repo       repository.OccupancyRepository
	properties OccupancySetter
	log        *logger.Logger
	mu         sync.Mutex
}

func NewReconciler(repo repository.OccupancyRepository, properties OccupancySetter, log *logger.Logger) *Reconciler {
	return &Reconciler{
		repo:       repo,
		properties: properties,
		log:        log,
	}
}

func (r *Reconciler) Run(ctx context.Context) (*Report, error) {
	if !r.mu.TryLock() {
		return nil, ErrRunning
	}
	defer r.mu.Unlock()

	start := time.Now()
	defer func() {
		metrics.OccupancyReconcileDuration.Observe(time.Since(start).Seconds())
	}()

	var (
		stored, active       map[string]int
		errStored, errActive error
		wg                   sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		stored, errStored = r.repo.StoredCounts(ctx)
	}()
	go func() {
		defer wg.Done()
		active, errActive = r.repo.ActiveCounts(ctx)
	}()
	wg.Wait()

	if errStored != nil {
		return nil, errStored
	}
	if errActive != nil {
		return nil, errActive
	}

	report := &Report{Checked: len(stored), Corrections: []Correction{}}
	for _, candidate := range Diff(stored, active) {
		c, drifted, err := r.repair(ctx, candidate.PropertyID)
		if err != nil {
			report.Failed++
			r.log.Error("Failed to repair occupancy", "property_id", candidate.PropertyID, "error", err)
			continue
		}
		if !drifted {
			r.log.Debug("Occupancy settled before repair", "property_id", candidate.PropertyID)
			continue
		}
		metrics.OccupancyCorrectionsTotal.Inc()
		r.log.Warn("Occupancy drift corrected", "property_id", c.PropertyID, "stored", c.Stored, "actual", c.Actual)
		report.Corrections = append(report.Corrections, c)
	}

	for id := range active {
		if _, ok := stored[id]; !ok {
			r.log.Warn("Active bookings reference a missing property", "property_id", id, "active", active[id])
		}
	}

	report.Duration = time.Since(start)
	r.log.Info("Occupancy reconcile finished",
		"checked", report.Checked,
		"corrected", len(report.Corrections),
		"failed", report.Failed,
		"duration", report.Duration,
	)
	if report.Failed > 0 {
		return report, fmt.Errorf("failed to repair %d properties", report.Failed)
	}
	return report, nil
}

// repair recounts one property and rewrites its counter in a single
// transaction. The scan that picked it may be stale, so the decision is made
// on the transaction's snapshot.
func (r *Reconciler) repair(ctx context.Context, propertyID string) (Correction, bool, error) {
	var (
		c       Correction
		drifted bool
	)
	err := r.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		stored, actual, err := r.repo.Recount(sessCtx, propertyID)
		if err != nil {
			return err
		}
		c = Correction{PropertyID: propertyID, Stored: stored, Actual: actual}
		drifted = stored != actual
		if !drifted {
			return nil
		}
		return r.properties.SetOccupancy(sessCtx, propertyID, actual)
	})
	return c, drifted, err
}

// Diff lists properties whose stored counter disagrees with their active
// booking count, sorted by property id.
func Diff(stored, active map[string]int) []Correction {
	var out []Correction
	for id, have := range stored {
		if want := active[id]; want != have {
			out = append(out, Correction{PropertyID: id, Stored: have, Actual: want})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PropertyID < out[j].PropertyID })
	return out
}

// Schedule registers the reconciler on c. Each pass gets its own timeout.
func (r *Reconciler) Schedule(c *cron.Cron, spec string, timeout time.Duration) (cron.EntryID, error) {
	return c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if _, err := r.Run(ctx); err != nil {
			if errors.Is(err, ErrRunning) {
				r.log.Info("Skipping scheduled occupancy reconcile", "reason", err.Error())
				return
			}
			r.log.Error("Scheduled occupancy reconcile failed", "error", err)
		}
	})
}
