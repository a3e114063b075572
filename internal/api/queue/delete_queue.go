package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/anthanhphan/go-channel-file-storage/internal/api/domain"
	"github.com/anthanhphan/go-channel-file-storage/internal/api/metrics"
	"github.com/anthanhphan/go-channel-file-storage/internal/api/port"
	"github.com/anthanhphan/go-channel-file-storage/pkg/netmon"
	"github.com/anthanhphan/go-channel-file-storage/pkg/resilience"
	"github.com/anthanhphan/gosdk/logger"
	"github.com/google/uuid"
)

const recentLimit = 20

// Deleter performs one delete attempt.
type Deleter interface {
	DeleteFile(ctx context.Context, messageID int64) error
}

// Connectivity reports the latest network status.
type Connectivity interface {
	Status() netmon.Status
}

// Callbacks are kept in memory only; reloaded tasks have none.
type Callbacks struct {
	OnSuccess func(task domain.DeleteTask)
	OnError   func(task domain.DeleteTask, err error)
}

type Config struct {
	MaxRetries     int
	RetryDelay     time.Duration
	AttemptTimeout time.Duration
}

// TaskView is a task plus its user-facing hint.
type TaskView struct {
	domain.DeleteTask
	Hint string `json:"hint"`
}

// DeleteQueue retries deletes strictly FIFO with one attempt in flight.
// State is persisted after every mutation.
type DeleteQueue struct {
	cfg     Config
	deleter Deleter
	store   port.TaskStore
	conn    Connectivity
	now     func() time.Time

	mu        sync.Mutex
	tasks     []domain.DeleteTask
	recent    []domain.DeleteTask
	callbacks map[string]Callbacks
	running   bool
	baseCtx   context.Context
	last      netmon.Status

	persistMu sync.Mutex
	wg        sync.WaitGroup
}

// New creates a queue. A nil conn treats the network as always online.
func New(cfg Config, deleter Deleter, store port.TaskStore, conn Connectivity) *DeleteQueue {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 0
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 10 * time.Second
	}
	return &DeleteQueue{
		cfg:       cfg,
		deleter:   deleter,
		store:     store,
		conn:      conn,
		now:       time.Now,
		callbacks: make(map[string]Callbacks),
		baseCtx:   context.Background(),
	}
}

// Start reloads persisted tasks and begins processing if online. Exhausted
// and finished tasks are dropped on reload.
func (q *DeleteQueue) Start(ctx context.Context) error {
	q.mu.Lock()
	q.baseCtx = ctx
	q.mu.Unlock()

	data, err := q.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load delete queue: %w", err)
	}

	loaded := decodeTasks(data)

	kept := make([]domain.DeleteTask, 0, len(loaded))
	for _, t := range loaded {
		if !t.Resumable(q.cfg.MaxRetries) {
			logger.Infow("Dropping non-resumable delete task", "task_id", t.ID, "status", string(t.Status), "retries", t.Retries)
			continue
		}
		t.Status = domain.TaskPending
		kept = append(kept, t)
	}

	q.mu.Lock()
	q.tasks = append(kept, q.tasks...)
	depth := len(q.tasks)
	q.mu.Unlock()

	metrics.DeleteQueueDepth.Set(float64(depth))
	if err := q.persist(ctx); err != nil {
		logger.Warnw("Failed to persist delete queue after reload", "error", err.Error())
	}
	logger.Infow("Delete queue started", "resumed", len(kept), "dropped", len(loaded)-len(kept))

	q.kick()
	return nil
}

// ReadTasks reports the persisted tasks in store without loading them into a
// queue, so the state is left exactly as found.
func ReadTasks(ctx context.Context, store port.TaskStore, maxRetries int, retryDelay time.Duration) ([]TaskView, error) {
	data, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load delete queue: %w", err)
	}

	now := time.Now()
	tasks := decodeTasks(data)
	out := make([]TaskView, 0, len(tasks))
	for _, t := range tasks {
		hint := Hint(t, maxRetries, retryDelay, now)
		if !t.Resumable(maxRetries) && (t.Status == domain.TaskPending || t.Status == domain.TaskProcessing) {
			hint = "exhausted, dropped on next start"
		}
		out = append(out, TaskView{DeleteTask: t, Hint: hint})
	}
	return out, nil
}

func decodeTasks(data []byte) []domain.DeleteTask {
	if len(data) == 0 {
		return nil
	}
	var tasks []domain.DeleteTask
	if err := json.Unmarshal(data, &tasks); err != nil {
		logger.Errorw("Discarding unreadable delete queue state", "error", err.Error())
		return nil
	}
	return tasks
}

// Stop waits for the in-flight drain to return.
func (q *DeleteQueue) Stop() {
	q.wg.Wait()
}

// AddTask enqueues a delete of rec and starts processing when online.
func (q *DeleteQueue) AddTask(ctx context.Context, rec domain.FileRecord, cb Callbacks) (string, error) {
	if rec.MessageID == 0 {
		return "", fmt.Errorf("%w: record has no message id", port.ErrInvalidInput)
	}

	task := domain.DeleteTask{
		ID:        uuid.NewString(),
		FileID:    rec.FileID,
		FileInfo:  rec.Clone(),
		CreatedAt: q.now().UTC(),
		Status:    domain.TaskPending,
	}

	q.mu.Lock()
	q.tasks = append(q.tasks, task)
	q.callbacks[task.ID] = cb
	depth := len(q.tasks)
	q.mu.Unlock()

	metrics.DeleteQueueDepth.Set(float64(depth))
	if err := q.persist(ctx); err != nil {
		logger.Warnw("Failed to persist delete queue", "task_id", task.ID, "error", err.Error())
	}
	logger.Infow("Delete task queued", "task_id", task.ID, "file_id", task.FileID, "message_id", rec.MessageID)

	q.kick()
	return task.ID, nil
}

// Tasks returns queued tasks followed by recently finished ones.
func (q *DeleteQueue) Tasks() []TaskView {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	out := make([]TaskView, 0, len(q.tasks)+len(q.recent))
	for _, t := range q.tasks {
		out = append(out, TaskView{DeleteTask: t, Hint: Hint(t, q.cfg.MaxRetries, q.cfg.RetryDelay, now)})
	}
	for i := len(q.recent) - 1; i >= 0; i-- {
		t := q.recent[i]
		out = append(out, TaskView{DeleteTask: t, Hint: Hint(t, q.cfg.MaxRetries, q.cfg.RetryDelay, now)})
	}
	return out
}

// Len is the number of tasks still queued.
func (q *DeleteQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// OnNetworkStatus is a netmon listener. It drains the queue when the
// network comes back and when quality rises to excellent.
func (q *DeleteQueue) OnNetworkStatus(s netmon.Status) {
	q.mu.Lock()
	prev := q.last
	q.last = s
	pending := len(q.tasks)
	q.mu.Unlock()

	cameOnline := !prev.IsOnline && s.IsOnline
	improved := s.Quality == netmon.QualityExcellent && prev.Quality != netmon.QualityExcellent
	if pending > 0 && (cameOnline || improved) {
		logger.Infow("Network improved, draining delete queue", "quality", string(s.Quality), "pending", pending)
		q.kick()
	}
}

func (q *DeleteQueue) online() bool {
	if q.conn == nil {
		return true
	}
	return q.conn.Status().IsOnline
}

// kick starts a background drain if one is not already running.
func (q *DeleteQueue) kick() {
	if !q.online() {
		return
	}
	q.mu.Lock()
	ctx := q.baseCtx
	q.mu.Unlock()

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		q.ProcessQueue(ctx)
	}()
}

// ProcessQueue drains tasks in order. Concurrent calls return immediately
// while a drain is running. Going offline stops new attempts but never
// aborts the one in flight.
func (q *DeleteQueue) ProcessQueue(ctx context.Context) {
	if !q.claim() {
		return
	}
	for !q.drain(ctx) {
		// A wakeup arriving between the offline exit and the release saw the
		// drain still claimed, so look again once released.
		q.mu.Lock()
		q.running = false
		pending := len(q.tasks)
		q.mu.Unlock()

		if pending == 0 || ctx.Err() != nil || !q.online() || !q.claim() {
			return
		}
	}
}

func (q *DeleteQueue) claim() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return false
	}
	q.running = true
	return true
}

// drain runs head tasks in order. It returns true only when the queue
// emptied, in which case beginHead has already released the claim.
func (q *DeleteQueue) drain(ctx context.Context) bool {
	for {
		if ctx.Err() != nil {
			return false
		}
		if !q.online() {
			logger.Infow("Delete queue paused while offline", "pending", q.Len())
			return false
		}

		task, ok := q.beginHead()
		if !ok {
			return true
		}
		if err := q.persist(ctx); err != nil {
			logger.Warnw("Failed to persist delete queue", "task_id", task.ID, "error", err.Error())
		}

		attemptCtx, cancel := context.WithTimeout(ctx, q.cfg.AttemptTimeout)
		err := q.deleter.DeleteFile(attemptCtx, task.FileInfo.MessageID)
		cancel()

		if err == nil {
			q.complete(ctx, task)
			continue
		}

		// Shutdown is not a failed attempt.
		if ctx.Err() != nil {
			q.release(ctx, task.ID)
			return false
		}

		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %v", port.ErrTimeout, err)
		}
		if !q.fail(ctx, task.ID, err) {
			continue
		}
		if resilience.SleepWithContext(ctx, q.cfg.RetryDelay) != nil {
			return false
		}
	}
}

// beginHead marks the head task processing and returns a copy. On an empty
// queue it ends the drain under the same lock AddTask appends under, so a
// task added concurrently is never stranded.
func (q *DeleteQueue) beginHead() (domain.DeleteTask, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		q.running = false
		return domain.DeleteTask{}, false
	}
	now := q.now().UTC()
	q.tasks[0].Status = domain.TaskProcessing
	q.tasks[0].LastAttempt = &now
	return q.tasks[0], true
}

func (q *DeleteQueue) complete(ctx context.Context, task domain.DeleteTask) {
	q.mu.Lock()
	done, ok := q.popLocked(task.ID)
	if !ok {
		q.mu.Unlock()
		return
	}
	done.Status = domain.TaskCompleted
	q.rememberLocked(done)
	cb := q.callbacks[task.ID]
	delete(q.callbacks, task.ID)
	depth := len(q.tasks)
	q.mu.Unlock()

	metrics.DeleteTasks.WithLabelValues("completed").Inc()
	metrics.DeleteQueueDepth.Set(float64(depth))
	if err := q.persist(ctx); err != nil {
		logger.Warnw("Failed to persist delete queue", "task_id", task.ID, "error", err.Error())
	}
	logger.Infow("Delete task completed", "task_id", task.ID, "file_id", task.FileID, "retries", done.Retries)

	if cb.OnSuccess != nil {
		safeCall(task.ID, func() { cb.OnSuccess(done) })
	}
}

// fail records a failed attempt. It returns true when the task stays queued for another try.
func (q *DeleteQueue) fail(ctx context.Context, taskID string, err error) bool {
	class := Classify(err)

	q.mu.Lock()
	if len(q.tasks) == 0 || q.tasks[0].ID != taskID {
		q.mu.Unlock()
		return false
	}
	head := &q.tasks[0]
	head.Retries++
	head.LastError = err.Error()

	retry := class.Retryable && head.Retries < q.cfg.MaxRetries
	if retry {
		head.Status = domain.TaskPending
		snapshot := *head
		q.mu.Unlock()

		metrics.DeleteTasks.WithLabelValues("retried").Inc()
		if perr := q.persist(ctx); perr != nil {
			logger.Warnw("Failed to persist delete queue", "task_id", taskID, "error", perr.Error())
		}
		logger.Warnw("Delete attempt failed, will retry",
			"task_id", taskID, "retries", snapshot.Retries, "reason", class.Reason, "error", err.Error())
		return true
	}

	failed, _ := q.popLocked(taskID)
	failed.Status = domain.TaskFailed
	q.rememberLocked(failed)
	cb := q.callbacks[taskID]
	delete(q.callbacks, taskID)
	depth := len(q.tasks)
	q.mu.Unlock()

	metrics.DeleteTasks.WithLabelValues("failed").Inc()
	metrics.DeleteQueueDepth.Set(float64(depth))
	if perr := q.persist(ctx); perr != nil {
		logger.Warnw("Failed to persist delete queue", "task_id", taskID, "error", perr.Error())
	}
	logger.Errorw("Delete task failed permanently",
		"task_id", taskID, "file_id", failed.FileID, "retries", failed.Retries, "reason", class.Reason, "error", err.Error())

	if cb.OnError != nil {
		safeCall(taskID, func() { cb.OnError(failed, err) })
	}
	return false
}

// release returns an interrupted head task to pending without spending a retry.
func (q *DeleteQueue) release(ctx context.Context, taskID string) {
	q.mu.Lock()
	if len(q.tasks) > 0 && q.tasks[0].ID == taskID {
		q.tasks[0].Status = domain.TaskPending
	}
	q.mu.Unlock()

	if err := q.persist(ctx); err != nil {
		logger.Warnw("Failed to persist delete queue", "task_id", taskID, "error", err.Error())
	}
}

func (q *DeleteQueue) popLocked(taskID string) (domain.DeleteTask, bool) {
	for i, t := range q.tasks {
		if t.ID == taskID {
			q.tasks = append(q.tasks[:i], q.tasks[i+1:]...)
			return t, true
		}
	}
	return domain.DeleteTask{}, false
}

func (q *DeleteQueue) rememberLocked(t domain.DeleteTask) {
	q.recent = append(q.recent, t)
	if len(q.recent) > recentLimit {
		q.recent = q.recent[len(q.recent)-recentLimit:]
	}
}

// persist writes the queued tasks. Snapshots are taken in order so a stale
// snapshot never overwrites a newer one.
func (q *DeleteQueue) persist(ctx context.Context) error {
	q.persistMu.Lock()
	defer q.persistMu.Unlock()

	q.mu.Lock()
	tasks := q.tasks
	if tasks == nil {
		tasks = []domain.DeleteTask{}
	}
	data, err := json.Marshal(tasks)
	q.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encode delete queue: %w", err)
	}
	// A finished attempt is recorded even while shutting down.
	return q.store.Save(context.WithoutCancel(ctx), data)
}

func safeCall(taskID string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorw("Delete task callback panicked", "task_id", taskID, "panic", fmt.Sprint(r))
		}
	}()
	fn()
}
