package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/career-assistant/internal/analysis"
	apistorage "github.com/cuongbtq/career-assistant/internal/api/storage"
	"github.com/cuongbtq/career-assistant/internal/importer"
	"github.com/cuongbtq/career-assistant/internal/storetest"
	"github.com/cuongbtq/career-assistant/internal/task"
	"github.com/cuongbtq/career-assistant/internal/worker/domain"
	"github.com/cuongbtq/career-assistant/internal/worker/storage"
)

type fakeImporter struct {
	mu    sync.Mutex
	calls int
	err   error
	query string
}

func (f *fakeImporter) Import(_ context.Context, userID, query string, tiers []task.Experience, onProgress func(importer.Progress)) (*importer.Result, error) {
	f.mu.Lock()
	f.calls++
	f.query = query
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	onProgress(importer.Progress{Processed: 1, Total: 2})
	onProgress(importer.Progress{Processed: 2, Total: 2})
	return &importer.Result{Fetched: 2, Filtered: 2, NewAdded: 2, UserID: userID}, nil
}

func (f *fakeImporter) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeAnalyzer struct {
	params task.AnalysisParams
}

func (f *fakeAnalyzer) Run(_ context.Context, userID string, params task.AnalysisParams, onProgress func(analysis.Progress)) (*analysis.Result, error) {
	f.params = params
	onProgress(analysis.Progress{Processed: 1, Total: 1})
	return &analysis.Result{Analyzed: 1, Vacancies: 1, UserID: userID}, nil
}

// fakeAcker records how deliveries were settled
type fakeAcker struct {
	mu      sync.Mutex
	acked   []uint64
	nacked  []uint64
	requeue []bool
}

func (a *fakeAcker) Ack(tag uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked = append(a.acked, tag)
	return nil
}

func (a *fakeAcker) Nack(tag uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacked = append(a.nacked, tag)
	a.requeue = append(a.requeue, requeue)
	return nil
}

func (a *fakeAcker) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func (a *fakeAcker) settled() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.acked) + len(a.nacked)
}

type fakeConsumer struct {
	deliveries chan amqp.Delivery
	mu         sync.Mutex
	canceled   []string
}

func (c *fakeConsumer) Consume(string) (<-chan amqp.Delivery, error) {
	return c.deliveries, nil
}

func (c *fakeConsumer) Cancel(tag string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.canceled = append(c.canceled, tag)
	return nil
}

type fakeIdleCloser struct {
	closed bool
}

func (f *fakeIdleCloser) CloseIdleConnections() {
	f.closed = true
}

type fixture struct {
	worker   *Worker
	api      *apistorage.Storage
	tasks    *storage.Storage
	redis    *miniredis.Miniredis
	locker   *task.RedisLocker
	importer *fakeImporter
	analyzer *fakeAnalyzer
	consumer *fakeConsumer
	idle     *fakeIdleCloser
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := storetest.New(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	f := &fixture{
		api:      apistorage.NewStorage(db),
		tasks:    storage.NewStorage(db, logger, 3*time.Minute),
		redis:    mr,
		locker:   task.NewRedisLocker(client),
		importer: &fakeImporter{},
		analyzer: &fakeAnalyzer{},
		consumer: &fakeConsumer{deliveries: make(chan amqp.Delivery, 4)},
		idle:     &fakeIdleCloser{},
	}

	f.worker = NewWorker(&Config{
		Logger:            logger,
		Consumer:          f.consumer,
		Storage:           f.tasks,
		Locker:            f.locker,
		Importer:          f.importer,
		Analyzer:          f.analyzer,
		IdleClosers:       []IdleCloser{f.idle},
		Concurrency:       2,
		JobTimeout:        time.Minute,
		HeartbeatInterval: time.Minute,
	})

	return f
}

// dispatch stores a PENDING task and takes its lock like the api-service does
func (f *fixture) dispatch(t *testing.T, params task.Params, maxRetries int) string {
	t.Helper()
	ctx := context.Background()

	id := params.TaskID("user-1")
	payload, err := json.Marshal(params)
	require.NoError(t, err)

	ok, err := f.locker.TryAcquire(ctx, id, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	now := time.Now().UTC()
	require.NoError(t, f.api.UpsertPendingTask(ctx, &task.Task{
		ID:         id,
		Kind:       params.Kind(),
		UserID:     "user-1",
		Status:     task.StatusPending,
		Payload:    payload,
		MaxRetries: maxRetries,
		CreatedAt:  now,
		UpdatedAt:  now,
	}))
	return id
}

func (f *fixture) task(t *testing.T, id string) *task.Task {
	t.Helper()
	got, err := f.tasks.GetTask(context.Background(), id)
	require.NoError(t, err)
	return got
}

func (f *fixture) locked(id string) bool {
	return f.redis.Exists(task.LockKey(id))
}

func message(id string) *domain.TaskMessage {
	return &domain.TaskMessage{TaskID: id}
}

func TestProcessTask_Import(t *testing.T) {
	f := newFixture(t)
	id := f.dispatch(t, task.ImportParams{Query: "golang"}, 3)

	require.NoError(t, f.worker.processTask(context.Background(), message(id)))

	got := f.task(t, id)
	assert.Equal(t, task.StatusSucceeded, got.Status)
	assert.JSONEq(t, `{"fetched":2,"filtered":2,"total_found":0,"already_exists":0,"new_added":2,"errors":0,"user_id":"user-1"}`,
		string(got.Result.JSONText))
	assert.JSONEq(t, `{"processed":2,"total":2}`, string(got.Progress.JSONText))
	assert.Equal(t, f.worker.ID(), got.WorkerID.String)
	assert.Equal(t, "golang", f.importer.query)
	assert.False(t, f.locked(id))
}

func TestProcessTask_Analysis(t *testing.T) {
	f := newFixture(t)
	params := task.AnalysisParams{
		Types: []task.AnalysisType{task.AnalysisMatching},
		Limit: 10,
		Tiers: []task.Experience{task.ExperienceNone},
	}
	id := f.dispatch(t, params, 3)

	require.NoError(t, f.worker.processTask(context.Background(), message(id)))

	got := f.task(t, id)
	assert.Equal(t, task.StatusSucceeded, got.Status)
	assert.JSONEq(t, `{"analyzed":1,"vacancies":1,"skipped":0,"user_id":"user-1"}`, string(got.Result.JSONText))
	assert.Equal(t, params, f.analyzer.params)
	assert.False(t, f.locked(id))
}

func TestProcessTask_RetryThenFail(t *testing.T) {
	f := newFixture(t)
	f.importer.err = errors.New("headhunter unavailable")
	id := f.dispatch(t, task.ImportParams{Query: "golang"}, 1)

	err := f.worker.processTask(context.Background(), message(id))
	var retryable *domain.RetryableError
	require.ErrorAs(t, err, &retryable)
	assert.True(t, shouldRequeue(err))

	got := f.task(t, id)
	assert.Equal(t, task.StatusPending, got.Status)
	assert.Equal(t, 1, got.RetryCount)
	assert.Contains(t, got.Error.String, "headhunter unavailable")
	assert.True(t, f.locked(id), "lock is kept while retries remain")

	err = f.worker.processTask(context.Background(), message(id))
	require.ErrorIs(t, err, domain.ErrMaxRetriesExceeded)
	assert.False(t, shouldRequeue(err))

	got = f.task(t, id)
	assert.Equal(t, task.StatusFailed, got.Status)
	assert.Contains(t, got.Error.String, "headhunter unavailable")
	assert.False(t, f.locked(id))
	assert.Equal(t, 2, f.importer.Calls())
}

func TestProcessTask_InvalidPayload(t *testing.T) {
	f := newFixture(t)
	id := f.dispatch(t, task.ImportParams{Query: "golang"}, 3)
	_, err := f.api.DB().Exec(`UPDATE tasks SET payload = ? WHERE id = ?`, `{"query":"  "}`, id)
	require.NoError(t, err)

	err = f.worker.processTask(context.Background(), message(id))
	require.ErrorIs(t, err, domain.ErrInvalidPayload)
	assert.False(t, shouldRequeue(err))

	got := f.task(t, id)
	assert.Equal(t, task.StatusFailed, got.Status)
	assert.Equal(t, 0, got.RetryCount)
	assert.False(t, f.locked(id))
	assert.Zero(t, f.importer.Calls())
}

func TestProcessTask_RunningElsewhere(t *testing.T) {
	f := newFixture(t)
	id := f.dispatch(t, task.ImportParams{Query: "golang"}, 3)
	_, err := f.tasks.ClaimTask(context.Background(), id, "other-worker")
	require.NoError(t, err)

	err = f.worker.processTask(context.Background(), message(id))
	require.ErrorIs(t, err, domain.ErrTaskRunning)
	assert.True(t, shouldRequeue(err), "checked again until the owner finishes or goes stale")
	assert.Zero(t, f.importer.Calls())
	assert.True(t, f.locked(id))

	require.NoError(t, f.tasks.CompleteTask(context.Background(), id, []byte(`{}`)))
	err = f.worker.processTask(context.Background(), message(id))
	require.ErrorIs(t, err, domain.ErrJobAlreadyClaimed)
	assert.False(t, shouldRequeue(err))
}

func TestProcessTask_TakesOverCrashedWorker(t *testing.T) {
	f := newFixture(t)
	id := f.dispatch(t, task.ImportParams{Query: "golang"}, 3)
	_, err := f.tasks.ClaimTask(context.Background(), id, "crashed-worker")
	require.NoError(t, err)

	stale := time.Now().UTC().Add(-time.Hour)
	_, err = f.api.DB().Exec(`UPDATE tasks SET heartbeat_at = ? WHERE id = ?`, stale, id)
	require.NoError(t, err)

	require.NoError(t, f.worker.processTask(context.Background(), message(id)))

	got := f.task(t, id)
	assert.Equal(t, task.StatusSucceeded, got.Status)
	assert.Equal(t, f.worker.ID(), got.WorkerID.String)
	assert.Equal(t, 1, got.RetryCount)
	assert.Equal(t, 1, f.importer.Calls())
	assert.False(t, f.locked(id))
}

func TestProcessTask_AbandonedTooOften(t *testing.T) {
	f := newFixture(t)
	id := f.dispatch(t, task.ImportParams{Query: "golang"}, 1)
	_, err := f.tasks.ClaimTask(context.Background(), id, "crashed-worker")
	require.NoError(t, err)

	stale := time.Now().UTC().Add(-time.Hour)
	_, err = f.api.DB().Exec(`UPDATE tasks SET heartbeat_at = ?, retry_count = 1 WHERE id = ?`, stale, id)
	require.NoError(t, err)

	err = f.worker.processTask(context.Background(), message(id))
	require.ErrorIs(t, err, domain.ErrMaxRetriesExceeded)

	got := f.task(t, id)
	assert.Equal(t, task.StatusFailed, got.Status)
	assert.Contains(t, got.Error.String, "abandoned")
	assert.Zero(t, f.importer.Calls())
	assert.False(t, f.locked(id))
}

func TestShouldRequeue(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "retryable", err: domain.NewRetryableError(errors.New("timeout")), want: true},
		{name: "wrapped retryable", err: errors.Join(errors.New("x"), domain.NewRetryableError(errors.New("y"))), want: true},
		{name: "already claimed", err: domain.ErrJobAlreadyClaimed, want: false},
		{name: "running elsewhere", err: domain.NewRetryableError(domain.ErrTaskRunning), want: true},
		{name: "invalid payload", err: domain.ErrInvalidPayload, want: false},
		{name: "max retries", err: domain.ErrMaxRetriesExceeded, want: false},
		{name: "unknown", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shouldRequeue(tt.err))
		})
	}
}

func TestDecodeMessage(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{name: "import", body: `{"task_id":"import:u1:golang"}`, want: "import:u1:golang"},
		{name: "analysis", body: `{"task_id":"analysis:u1:matching:50"}`, want: "analysis:u1:matching:50"},
		{name: "query with colons", body: `{"task_id":"import:u1:a:b"}`, want: "import:u1:a:b"},
		{name: "not json", body: `task`, wantErr: true},
		{name: "empty id", body: `{}`, wantErr: true},
		{name: "unknown kind", body: `{"task_id":"export:u1"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := decodeMessage(amqp.Delivery{Body: []byte(tt.body), DeliveryTag: 7})
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidPayload)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, msg.TaskID)
			assert.Equal(t, uint64(7), msg.DeliveryTag)
		})
	}
}

func TestWorker_StartStop(t *testing.T) {
	f := newFixture(t)
	id := f.dispatch(t, task.ImportParams{Query: "golang"}, 3)
	acker := &fakeAcker{}

	body, err := json.Marshal(task.Message{TaskID: id})
	require.NoError(t, err)
	f.consumer.deliveries <- amqp.Delivery{Acknowledger: acker, DeliveryTag: 1, Body: body}
	f.consumer.deliveries <- amqp.Delivery{Acknowledger: acker, DeliveryTag: 2, Body: []byte("garbage")}

	done := make(chan error, 1)
	go func() { done <- f.worker.Start(context.Background()) }()

	require.Eventually(t, func() bool { return acker.settled() == 2 }, 5*time.Second, 10*time.Millisecond)

	f.worker.Stop()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}

	acker.mu.Lock()
	assert.Equal(t, []uint64{1}, acker.acked)
	assert.Equal(t, []uint64{2}, acker.nacked)
	assert.Equal(t, []bool{false}, acker.requeue)
	acker.mu.Unlock()

	assert.Equal(t, task.StatusSucceeded, f.task(t, id).Status)
	assert.Equal(t, []string{f.worker.ID()}, f.consumer.canceled)
	assert.True(t, f.idle.closed)
}

func TestWorker_StartReturnsWhenDeliveriesClose(t *testing.T) {
	f := newFixture(t)

	done := make(chan error, 1)
	go func() { done <- f.worker.Start(context.Background()) }()

	close(f.consumer.deliveries)

	select {
	case err := <-done:
		require.ErrorIs(t, err, domain.ErrConsumerClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("worker kept running after the delivery channel closed")
	}

	f.worker.Stop()
	assert.True(t, f.idle.closed)
}
