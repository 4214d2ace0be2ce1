package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/teemow/inboxplan/internal/extract"
	"github.com/teemow/inboxplan/internal/instrumentation"
	"github.com/teemow/inboxplan/internal/logging"
	"github.com/teemow/inboxplan/internal/mail"
	"github.com/teemow/inboxplan/internal/store"
	"github.com/teemow/inboxplan/internal/task"
)

const (
	defaultMaxWorkers          = 4
	defaultSimilarityThreshold = 0.85
)

// Extractor produces items for one message. Satisfied by *extract.Chain.
type Extractor interface {
	Extract(ctx context.Context, msg mail.Message) extract.Result
}

// FingerprintStore loads the durable fingerprints of prior runs and
// records tasks the sync stage never reaches, so that reruns recognize
// them. Satisfied by *store.Store.
type FingerprintStore interface {
	Known(ctx context.Context, userID string) (map[string]store.Fingerprint, error)
	Upsert(ctx context.Context, userID string, fp store.Fingerprint) error
}

// Syncer reconciles tasks with the calendar. Satisfied by
// *reconcile.Engine.
type Syncer interface {
	Sync(ctx context.Context, userID string, tasks []task.Task) []task.Task
}

// Config wires the collaborators of an Orchestrator.
type Config struct {
	Source       mail.Source
	Extractor    Extractor
	Fingerprints FingerprintStore
	Syncer       Syncer

	// SimilarityThreshold is the normalized title similarity above which
	// two tasks from the same message are considered duplicates
	// (default 0.85).
	SimilarityThreshold float64

	// MaxWorkers bounds concurrent extraction (default 4).
	MaxWorkers int

	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
}

// Stats summarizes one pipeline run.
type Stats struct {
	MessagesFetched int
	MessagesValid   int
	ItemsDropped    int
	TasksNew        int
	TasksCarried    int
	Synced          int
	SyncFailed      int
	// ByMethod counts messages per extraction method, keyed by provider
	// name or "fallback-heuristic".
	ByMethod map[string]int
	Duration time.Duration
}

// Result is the outcome of one run: the final task list with sync status
// and the run statistics.
type Result struct {
	Tasks []task.Task
	Stats Stats
}

// Orchestrator drives the fetch, extract, dedup and sync stages of a run.
type Orchestrator struct {
	source       mail.Source
	extractor    Extractor
	fingerprints FingerprintStore
	syncer       Syncer
	threshold    float64
	maxWorkers   int
	logger       *slog.Logger
	metrics      *instrumentation.Metrics
}

// New creates an Orchestrator from the given wiring. Zero thresholds and
// worker counts fall back to defaults; a nil logger discards output and a
// nil metrics recorder is replaced with a no-op one.
func New(cfg Config) *Orchestrator {
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = defaultSimilarityThreshold
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = defaultMaxWorkers
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Metrics == nil {
		cfg.Metrics = &instrumentation.Metrics{}
	}
	return &Orchestrator{
		source:       cfg.Source,
		extractor:    cfg.Extractor,
		fingerprints: cfg.Fingerprints,
		syncer:       cfg.Syncer,
		threshold:    cfg.SimilarityThreshold,
		maxWorkers:   cfg.MaxWorkers,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
	}
}

// Run executes one full pipeline pass for the given user. The only fatal
// error is failing to list the inbox; every later stage degrades per
// message or per task instead of aborting the run.
func (o *Orchestrator) Run(ctx context.Context, userID string) (*Result, error) {
	start := time.Now()

	messages, err := o.source.FetchRecent(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	stats := Stats{
		MessagesFetched: len(messages),
		ByMethod:        make(map[string]int),
	}

	var valid []mail.Message
	for _, msg := range messages {
		if !msg.Valid() {
			o.logger.Warn("skipping message without usable content",
				logging.Operation("run"),
				logging.MessageID(msg.ID),
				logging.Status(logging.StatusSkipped),
				logging.Domain(msg.Sender))
			continue
		}
		valid = append(valid, msg)
	}
	stats.MessagesValid = len(valid)
	o.metrics.RecordMessages(ctx, len(valid))

	tasks, dropped := o.extractAll(ctx, valid, &stats)
	stats.ItemsDropped = dropped

	known, err := o.fingerprints.Known(ctx, userID)
	if err != nil {
		// Degrade to an empty history: the deterministic task ids plus
		// the store upserts during sync keep reruns convergent.
		o.logger.Error("failed to load fingerprints, treating all tasks as new",
			logging.Operation("run"),
			logging.UserHash(userID),
			logging.Err(err))
		known = nil
	}

	fresh, carried := task.Dedup(tasks, knownIndex(known), o.threshold)
	stats.TasksNew = len(fresh)
	stats.TasksCarried = len(carried)

	submit, settled := partitionCarried(fresh, carried)

	o.logger.Info("deduplicated tasks",
		logging.Operation("run"),
		logging.UserHash(userID),
		slog.Int("new", len(fresh)),
		slog.Int("carried", len(carried)),
		slog.Int("retrying", len(submit)-len(fresh)))

	synced := o.syncer.Sync(ctx, userID, submit)

	final := append(synced, settled...)
	for _, t := range final {
		switch t.Status {
		case task.StatusSynced:
			stats.Synced++
			o.metrics.RecordSync(ctx, string(task.StatusSynced), "")
		case task.StatusSyncFailed:
			stats.SyncFailed++
			o.metrics.RecordSync(ctx, string(task.StatusSyncFailed), t.StatusReason)
		case task.StatusUnsynced:
			// Tasks the sync stage never touches (no due date) are
			// fingerprinted here so the next run carries them instead of
			// counting them as new again.
			o.recordUnsynced(ctx, userID, t)
		}
	}

	stats.Duration = time.Since(start)
	o.metrics.RecordRunDuration(ctx, stats.Duration)

	o.logger.Info("run complete",
		logging.Operation("run"),
		logging.UserHash(userID),
		slog.Int("messages", stats.MessagesValid),
		slog.Int("tasks", len(final)),
		slog.Int("synced", stats.Synced),
		slog.Int("sync_failed", stats.SyncFailed),
		slog.Duration("duration", stats.Duration))

	return &Result{Tasks: final, Stats: stats}, nil
}

// extractAll fans extraction out over a bounded worker pool and merges the
// per-message results back in message order. It returns the normalized
// tasks and the number of items dropped during normalization.
func (o *Orchestrator) extractAll(ctx context.Context, messages []mail.Message, stats *Stats) ([]task.Task, int) {
	perMessage := make([][]task.Task, len(messages))
	methods := make([]string, len(messages))
	droppedPer := make([]int, len(messages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.maxWorkers)

	for i, msg := range messages {
		g.Go(func() error {
			result := o.extractor.Extract(gctx, msg)
			o.recordAttempts(gctx, result)

			var tasks []task.Task
			for _, item := range result.Items {
				t, err := task.Normalize(item, msg)
				if err != nil {
					droppedPer[i]++
					o.logger.Warn("dropping unusable extracted item",
						logging.Operation("extract"),
						logging.MessageID(msg.ID),
						logging.Err(err))
					continue
				}
				t.Method = result.Method
				tasks = append(tasks, t)
			}
			perMessage[i] = tasks
			methods[i] = result.Method
			return nil
		})
	}
	// Workers only report through their slice slots.
	_ = g.Wait()

	var all []task.Task
	dropped := 0
	for i := range messages {
		all = append(all, perMessage[i]...)
		dropped += droppedPer[i]
		if methods[i] != "" {
			stats.ByMethod[methods[i]]++
		}
	}
	return all, dropped
}

// recordUnsynced persists the fingerprint of a task that never reached the
// sync stage. Failure to record is logged and tolerated; the deterministic
// task id keeps the next run convergent anyway.
func (o *Orchestrator) recordUnsynced(ctx context.Context, userID string, t task.Task) {
	err := o.fingerprints.Upsert(ctx, userID, store.Fingerprint{
		TaskID:  t.ID,
		Status:  task.StatusUnsynced,
		EmailID: t.Source.EmailID,
		Title:   t.Title,
	})
	if err != nil {
		o.logger.Warn("failed to record task fingerprint",
			logging.Operation("run"),
			logging.TaskID(t.ID),
			logging.Err(err))
	}
}

// recordAttempts emits the per-provider extraction metrics of one message.
func (o *Orchestrator) recordAttempts(ctx context.Context, result extract.Result) {
	for _, a := range result.Attempts {
		outcome := logging.StatusSuccess
		if a.Failed {
			outcome = a.Class.String()
		}
		o.metrics.RecordExtraction(ctx, a.Provider, outcome)
		o.metrics.RecordProviderDuration(ctx, a.Provider, a.Duration)
	}
	if result.Method == extract.MethodHeuristic {
		o.metrics.RecordFallback(ctx)
	}
}

// knownIndex converts stored fingerprints into the dedup lookup form.
func knownIndex(fps map[string]store.Fingerprint) map[string]task.Known {
	if len(fps) == 0 {
		return nil
	}
	known := make(map[string]task.Known, len(fps))
	for id, fp := range fps {
		known[id] = task.Known{
			Status:  fp.Status,
			EventID: fp.EventID,
			EmailID: fp.EmailID,
			Title:   fp.Title,
		}
	}
	return known
}

// partitionCarried splits the run's tasks into those submitted to the
// syncer and those already settled. Fresh tasks are always submitted.
// Carried tasks that are not yet synced are re-attempted: a previously
// failed sync is reset, and a task that only now gained a due date gets
// its first attempt. The calendar scope is re-evaluated by the syncer on
// every run, so a prior insufficient-scope failure heals once the
// credential is fixed. Carried synced tasks keep their recorded event
// link untouched.
func partitionCarried(fresh, carried []task.Task) (submit, settled []task.Task) {
	submit = append(submit, fresh...)
	for _, t := range carried {
		if t.Status == task.StatusSynced {
			settled = append(settled, t)
			continue
		}
		t.Status = task.StatusUnsynced
		t.StatusReason = ""
		t.Retryable = false
		submit = append(submit, t)
	}
	return submit, settled
}
