package taskqueue

import (
	"context"
	"errors"
	"testing"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	setnxTaken bool
	setErr     error
	lpushErr   error

	stored map[string]string
	dels   []string
	pushes []string
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{stored: map[string]string{}}
}

func (f *fakeRedis) SetNX(_ context.Context, key string, _ interface{}, _ time.Duration) *redislib.BoolCmd {
	return redislib.NewBoolResult(!f.setnxTaken, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, _ time.Duration) *redislib.StatusCmd {
	if f.setErr != nil {
		return redislib.NewStatusResult("", f.setErr)
	}
	f.stored[key] = string(value.([]byte))
	return redislib.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(_ context.Context, key string) *redislib.StringCmd {
	raw, ok := f.stored[key]
	if !ok {
		return redislib.NewStringResult("", redislib.Nil)
	}
	return redislib.NewStringResult(raw, nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redislib.IntCmd {
	f.dels = append(f.dels, keys...)
	return redislib.NewIntResult(int64(len(keys)), nil)
}

func (f *fakeRedis) LPush(_ context.Context, _ string, values ...interface{}) *redislib.IntCmd {
	if f.lpushErr != nil {
		return redislib.NewIntResult(0, f.lpushErr)
	}
	for _, v := range values {
		f.pushes = append(f.pushes, v.(string))
	}
	return redislib.NewIntResult(int64(len(values)), nil)
}

func (f *fakeRedis) BRPop(_ context.Context, _ time.Duration, _ ...string) *redislib.StringSliceCmd {
	if len(f.pushes) == 0 {
		return redislib.NewStringSliceResult(nil, redislib.Nil)
	}
	id := f.pushes[len(f.pushes)-1]
	f.pushes = f.pushes[:len(f.pushes)-1]
	return redislib.NewStringSliceResult([]string{keyQueue, id}, nil)
}

func TestEnqueueAndDequeue(t *testing.T) {
	fr := newFakeRedis()
	svc := &Service{r: fr}
	ctx := context.Background()

	task, err := svc.Enqueue(ctx, "threat.verified", map[string]string{"threat_id": "t1"}, "t1")
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, TaskPending, task.Status)

	got, err := svc.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, TaskRunning, got.Status)

	require.NoError(t, svc.Finish(ctx, got, nil))
	final, err := svc.GetByID(ctx, got.ID)
	require.NoError(t, err)
	assert.Equal(t, TaskCompleted, final.Status)
}

func TestEnqueueDuplicateIsDropped(t *testing.T) {
	fr := newFakeRedis()
	fr.setnxTaken = true
	svc := &Service{r: fr}

	task, err := svc.Enqueue(context.Background(), "threat.verified", nil, "t1")
	require.NoError(t, err)
	assert.Nil(t, task)
	assert.Empty(t, fr.pushes)
}

func TestEnqueueReleasesDedupOnSaveFailure(t *testing.T) {
	fr := newFakeRedis()
	fr.setErr = errors.New("redis down")
	svc := &Service{r: fr}

	_, err := svc.Enqueue(context.Background(), "threat.verified", nil, "t1")
	require.Error(t, err)
	assert.Contains(t, fr.dels, dedupRedisKey("threat.verified", "t1"),
		"a failed enqueue must not suppress retries for the dedup window")
}

func TestEnqueueReleasesDedupOnPushFailure(t *testing.T) {
	fr := newFakeRedis()
	fr.lpushErr = errors.New("redis down")
	svc := &Service{r: fr}

	_, err := svc.Enqueue(context.Background(), "threat.verified", nil, "t1")
	require.Error(t, err)
	assert.Contains(t, fr.dels, dedupRedisKey("threat.verified", "t1"))
}

func TestDequeueEmpty(t *testing.T) {
	svc := &Service{r: newFakeRedis()}

	_, err := svc.Dequeue(context.Background(), 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestFinishRecordsFailure(t *testing.T) {
	fr := newFakeRedis()
	svc := &Service{r: fr}
	ctx := context.Background()

	task, err := svc.Enqueue(ctx, "subscription.registered", map[string]string{"email": "a@b.com"}, "")
	require.NoError(t, err)

	require.NoError(t, svc.Finish(ctx, task, errors.New("smtp unreachable")))
	got, err := svc.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, TaskFailed, got.Status)
	assert.Equal(t, "smtp unreachable", got.Error)
}
