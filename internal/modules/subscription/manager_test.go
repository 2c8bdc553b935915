package subscription

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trustnet/core/internal/models"
	"github.com/trustnet/core/internal/pkg/apierror"
)

type fakeStore struct {
	mu   sync.Mutex
	recs map[string]*models.SubscriptionModel
	err  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{recs: map[string]*models.SubscriptionModel{}}
}

func (f *fakeStore) PutIfAbsent(_ context.Context, rec *models.SubscriptionModel) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, ok := f.recs[rec.UserID]; ok {
		return nil
	}
	cp := *rec
	f.recs[rec.UserID] = &cp
	return nil
}

func (f *fakeStore) PutAlways(_ context.Context, rec *models.SubscriptionModel) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	cp := *rec
	f.recs[rec.UserID] = &cp
	return nil
}

func (f *fakeStore) UpdateIfPresent(_ context.Context, userID string, subscribed bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	rec, ok := f.recs[userID]
	if !ok {
		return ErrAbsent
	}
	rec.Subscribed = subscribed
	return nil
}

func (f *fakeStore) Get(_ context.Context, userID string) (*models.SubscriptionModel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	rec, ok := f.recs[userID]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

type fakeTopic struct {
	mu         sync.Mutex
	registered []string
	err        error
}

func (f *fakeTopic) Register(_ context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.registered = append(f.registered, email)
	return nil
}

func newManager(store Store, topic Topic) *Manager {
	return NewManager(store, topic, zap.NewNop())
}

func TestAutoSubscribeCreatesWhenAbsent(t *testing.T) {
	store := newFakeStore()
	mgr := newManager(store, &fakeTopic{})

	require.NoError(t, mgr.AutoSubscribe(context.Background(), "u1", "u1@example.com"))

	rec := store.recs["u1"]
	require.NotNil(t, rec)
	assert.True(t, rec.Subscribed)
	assert.Equal(t, "u1@example.com", rec.Email)
}

func TestAutoSubscribeNeverOverridesOptOut(t *testing.T) {
	store := newFakeStore()
	store.recs["u1"] = &models.SubscriptionModel{
		UserID:     "u1",
		Email:      "old@example.com",
		Subscribed: false,
	}
	mgr := newManager(store, &fakeTopic{})

	require.NoError(t, mgr.AutoSubscribe(context.Background(), "u1", "new@example.com"))

	rec := store.recs["u1"]
	assert.False(t, rec.Subscribed, "explicit opt-out must survive auto subscribe")
	assert.Equal(t, "old@example.com", rec.Email)
}

func TestAutoSubscribeIdempotent(t *testing.T) {
	store := newFakeStore()
	mgr := newManager(store, &fakeTopic{})

	for i := 0; i < 3; i++ {
		require.NoError(t, mgr.AutoSubscribe(context.Background(), "u1", "u1@example.com"))
	}
	assert.Len(t, store.recs, 1)
	assert.True(t, store.recs["u1"].Subscribed)
}

func TestSubscribeOverwritesExistingState(t *testing.T) {
	store := newFakeStore()
	store.recs["u1"] = &models.SubscriptionModel{
		UserID:     "u1",
		Email:      "old@example.com",
		Subscribed: false,
	}
	topic := &fakeTopic{}
	mgr := newManager(store, topic)

	require.NoError(t, mgr.Subscribe(context.Background(), "u1", "new@example.com"))

	rec := store.recs["u1"]
	assert.True(t, rec.Subscribed)
	assert.Equal(t, "new@example.com", rec.Email)
	assert.Equal(t, []string{"new@example.com"}, topic.registered)
}

func TestSubscribeValidation(t *testing.T) {
	store := newFakeStore()
	mgr := newManager(store, &fakeTopic{})

	err := mgr.Subscribe(context.Background(), "", "u1@example.com")
	assert.Equal(t, apierror.KindValidation, apierror.KindOf(err))

	err = mgr.Subscribe(context.Background(), "u1", "")
	assert.Equal(t, apierror.KindValidation, apierror.KindOf(err))

	assert.Empty(t, store.recs, "validation failures must not touch the store")
}

func TestSubscribeSurvivesTopicFailure(t *testing.T) {
	store := newFakeStore()
	topic := &fakeTopic{err: errors.New("queue down")}
	mgr := newManager(store, topic)

	require.NoError(t, mgr.Subscribe(context.Background(), "u1", "u1@example.com"))
	assert.True(t, store.recs["u1"].Subscribed, "subscription truth lives in the store")
}

func TestGetStatusAbsentIsNotAnError(t *testing.T) {
	mgr := newManager(newFakeStore(), &fakeTopic{})

	st, err := mgr.GetStatus(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, st.Subscribed)
	assert.Nil(t, st.Email)
}

func TestGetStatusPresent(t *testing.T) {
	store := newFakeStore()
	store.recs["u1"] = &models.SubscriptionModel{
		UserID:     "u1",
		Email:      "u1@example.com",
		Subscribed: true,
	}
	mgr := newManager(store, &fakeTopic{})

	st, err := mgr.GetStatus(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, st.Subscribed)
	require.NotNil(t, st.Email)
	assert.Equal(t, "u1@example.com", *st.Email)
}

func TestToggleRequiresExistingRecord(t *testing.T) {
	mgr := newManager(newFakeStore(), &fakeTopic{})

	err := mgr.Toggle(context.Background(), "ghost", true)
	assert.Equal(t, apierror.KindNotSubscribed, apierror.KindOf(err))
	assert.Equal(t, "no subscription found, must subscribe first", apierror.Message(err))
}

func TestToggleFlipsWithoutTouchingEmail(t *testing.T) {
	store := newFakeStore()
	store.recs["u1"] = &models.SubscriptionModel{
		UserID:     "u1",
		Email:      "u1@example.com",
		Subscribed: true,
	}
	mgr := newManager(store, &fakeTopic{})

	require.NoError(t, mgr.Toggle(context.Background(), "u1", false))
	assert.False(t, store.recs["u1"].Subscribed)

	require.NoError(t, mgr.Toggle(context.Background(), "u1", true))
	assert.True(t, store.recs["u1"].Subscribed)
	assert.Equal(t, "u1@example.com", store.recs["u1"].Email)
}

func TestStoreFailuresSurfaceAsDependency(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("connection refused")
	mgr := newManager(store, &fakeTopic{})
	ctx := context.Background()

	assert.Equal(t, apierror.KindDependency, apierror.KindOf(mgr.AutoSubscribe(ctx, "u1", "u1@example.com")))
	assert.Equal(t, apierror.KindDependency, apierror.KindOf(mgr.Subscribe(ctx, "u1", "u1@example.com")))
	assert.Equal(t, apierror.KindDependency, apierror.KindOf(mgr.Toggle(ctx, "u1", true)))
	_, err := mgr.GetStatus(ctx, "u1")
	assert.Equal(t, apierror.KindDependency, apierror.KindOf(err))
}

func TestSubscriptionLifecycle(t *testing.T) {
	store := newFakeStore()
	mgr := newManager(store, &fakeTopic{})
	ctx := context.Background()

	require.NoError(t, mgr.Subscribe(ctx, "u1", "u1@example.com"))
	require.NoError(t, mgr.Toggle(ctx, "u1", false))

	st, err := mgr.GetStatus(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, st.Subscribed)

	// A later sign-in triggers auto subscribe; the opt-out must hold.
	require.NoError(t, mgr.AutoSubscribe(ctx, "u1", "u1@example.com"))

	st, err = mgr.GetStatus(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, st.Subscribed)
	require.NotNil(t, st.Email)
	assert.Equal(t, "u1@example.com", *st.Email)
}

func TestConcurrentFirstSubscribe(t *testing.T) {
	store := newFakeStore()
	mgr := newManager(store, &fakeTopic{})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = mgr.AutoSubscribe(context.Background(), "u1", "u1@example.com")
		}()
	}
	wg.Wait()

	require.Len(t, store.recs, 1)
	assert.True(t, store.recs["u1"].Subscribed)
}

func TestConcurrentExplicitSubscribe(t *testing.T) {
	store := newFakeStore()
	mgr := newManager(store, &fakeTopic{})

	errs := make(chan error, 16)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- mgr.Subscribe(context.Background(), "u1", "u1@example.com")
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err, "concurrent subscribes must not surface duplicate errors")
	}
	require.Len(t, store.recs, 1)
	assert.True(t, store.recs["u1"].Subscribed)
}
