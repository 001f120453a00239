package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"subcatalog/internal/cache"
	"subcatalog/internal/dto"
	"subcatalog/internal/models"
	"subcatalog/internal/notify"
	"subcatalog/internal/repositories"
	"subcatalog/pkg/apperrors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRepo is an in-memory SubscriptionRepository for service tests.
type fakeRepo struct {
	subs   map[uint]*models.Subscription
	nextID uint

	// Calls counts store reads so tests can assert cache hits.
	findByStatusCalls int
	failAll           error
	// pretendNotExists makes ExistsByName lie, simulating a concurrent
	// writer landing between the existence check and the insert.
	pretendNotExists bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{subs: make(map[uint]*models.Subscription), nextID: 1}
}

func (f *fakeRepo) Create(_ context.Context, sub *models.Subscription) error {
	if f.failAll != nil {
		return f.failAll
	}
	for _, existing := range f.subs {
		if existing.Name == sub.Name {
			return repositories.ErrDuplicateName
		}
	}
	sub.ID = f.nextID
	f.nextID++
	sub.CreatedAt = time.Now()
	sub.UpdatedAt = sub.CreatedAt
	clone := *sub
	f.subs[sub.ID] = &clone
	return nil
}

func (f *fakeRepo) Save(_ context.Context, sub *models.Subscription) error {
	if f.failAll != nil {
		return f.failAll
	}
	for id, existing := range f.subs {
		if id != sub.ID && existing.Name == sub.Name {
			return repositories.ErrDuplicateName
		}
	}
	sub.UpdatedAt = time.Now()
	clone := *sub
	f.subs[sub.ID] = &clone
	return nil
}

func (f *fakeRepo) FindByID(_ context.Context, id uint) (*models.Subscription, error) {
	if f.failAll != nil {
		return nil, f.failAll
	}
	sub, ok := f.subs[id]
	if !ok {
		return nil, repositories.ErrSubscriptionNotFound
	}
	clone := *sub
	return &clone, nil
}

func (f *fakeRepo) ExistsByName(_ context.Context, name string) (bool, error) {
	if f.failAll != nil {
		return false, f.failAll
	}
	if f.pretendNotExists {
		return false, nil
	}
	for _, sub := range f.subs {
		if sub.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) FindByStatus(_ context.Context, status models.Status) ([]models.Subscription, error) {
	if f.failAll != nil {
		return nil, f.failAll
	}
	f.findByStatusCalls++
	var out []models.Subscription
	for _, sub := range f.subs {
		if sub.Status == status {
			out = append(out, *sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeRepo) FindByCategoryAndStatus(_ context.Context, category string, status models.Status) ([]models.Subscription, error) {
	var out []models.Subscription
	for _, sub := range f.subs {
		if sub.Category == category && sub.Status == status {
			out = append(out, *sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price.LessThan(out[j].Price) })
	return out, nil
}

func (f *fakeRepo) FindDistinctActiveCategories(_ context.Context) ([]string, error) {
	seen := map[string]bool{}
	for _, sub := range f.subs {
		if sub.Status == models.StatusActive {
			seen[sub.Category] = true
		}
	}
	var out []string
	for category := range seen {
		out = append(out, category)
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeRepo) SearchActiveByName(_ context.Context, term string) ([]models.Subscription, error) {
	var out []models.Subscription
	for _, sub := range f.subs {
		if sub.Status == models.StatusActive &&
			strings.Contains(strings.ToLower(sub.Name), strings.ToLower(term)) {
			out = append(out, *sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeRepo) FindPage(_ context.Context, page, size int, _, _ string, status *models.Status) ([]models.Subscription, int64, error) {
	var all []models.Subscription
	for _, sub := range f.subs {
		if status == nil || sub.Status == *status {
			all = append(all, *sub)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := int64(len(all))

	start := page * size
	if start > len(all) {
		start = len(all)
	}
	end := start + size
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (f *fakeRepo) SearchPage(_ context.Context, term string, page, size int) ([]models.Subscription, int64, error) {
	lower := strings.ToLower(term)
	var all []models.Subscription
	for _, sub := range f.subs {
		if strings.Contains(strings.ToLower(sub.Name), lower) ||
			strings.Contains(strings.ToLower(sub.Description), lower) ||
			strings.Contains(strings.ToLower(sub.Category), lower) {
			all = append(all, *sub)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := int64(len(all))

	start := page * size
	if start > len(all) {
		start = len(all)
	}
	end := start + size
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (f *fakeRepo) CountByStatus(_ context.Context, status models.Status) (int64, error) {
	var count int64
	for _, sub := range f.subs {
		if sub.Status == status {
			count++
		}
	}
	return count, nil
}

func (f *fakeRepo) CountDistinctActiveCategories(_ context.Context) (int64, error) {
	categories, _ := f.FindDistinctActiveCategories(context.Background())
	return int64(len(categories)), nil
}

func (f *fakeRepo) CountActiveByCategory(_ context.Context) (map[string]int64, error) {
	counts := make(map[string]int64)
	for _, sub := range f.subs {
		if sub.Status == models.StatusActive {
			counts[sub.Category]++
		}
	}
	return counts, nil
}

// recordingNotifier captures notifications for assertions.
type recordingNotifier struct {
	events     []notify.Event
	recipients []string
	names      []string
	fail       error
}

func (r *recordingNotifier) Notify(event notify.Event, recipient, subscriptionName string) error {
	r.events = append(r.events, event)
	r.recipients = append(r.recipients, recipient)
	r.names = append(r.names, subscriptionName)
	return r.fail
}

// failingCache errors on every operation; reads must fall back to the store.
type failingCache struct{}

func (failingCache) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("cache down")
}
func (failingCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("cache down")
}
func (failingCache) Delete(context.Context, ...string) error {
	return errors.New("cache down")
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestService(t *testing.T) (SubscriptionService, *fakeRepo, *cache.MemoryCache, *recordingNotifier) {
	t.Helper()
	repo := newFakeRepo()
	mem := cache.NewMemoryCache()
	notifier := &recordingNotifier{}
	svc := NewSubscriptionService(repo, mem, notifier, "admin@example.com", time.Hour)
	return svc, repo, mem, notifier
}

func request(name, category, priceStr string) *dto.SubscriptionRequest {
	req := &dto.SubscriptionRequest{
		Name:     name,
		Price:    price(priceStr),
		Category: category,
	}
	req.ApplyDefaults()
	return req
}

func TestService_CreateAndGetByID(t *testing.T) {
	svc, _, _, notifier := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, request("Netflix", "Streaming", "9.99"))
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "Netflix", created.Name)
	assert.Equal(t, "AZN", created.Currency)
	assert.Equal(t, models.BillingMonthly, created.BillingPeriod)
	assert.True(t, created.IsActive)

	got, err := svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.True(t, got.Price.Equal(price("9.99")))

	require.Len(t, notifier.events, 1)
	assert.Equal(t, notify.EventCreated, notifier.events[0])
	assert.Equal(t, "admin@example.com", notifier.recipients[0])
}

func TestService_CreateDuplicateNameRejected(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, request("Spotify", "Music", "9.99"))
	require.NoError(t, err)

	_, err = svc.Create(ctx, request("Spotify", "Music", "12.99"))
	require.Error(t, err)

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeConflict, appErr.Code)
	assert.Equal(t, 400, appErr.HTTPCode)
}

func TestService_CreateMapsRepositoryRace(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()

	sub := &models.Subscription{Name: "Dropbox", Category: "Storage", Price: price("9.99"), Status: models.StatusActive}
	require.NoError(t, repo.Create(ctx, sub))
	repo.pretendNotExists = true

	_, err := svc.Create(ctx, request("Dropbox", "Storage", "9.99"))
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeConflict, appErr.Code)
}

func TestService_GetByIDMissingIsNotFound(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.GetByID(context.Background(), 42)
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
}

func TestService_DeactivateHidesFromPublicReads(t *testing.T) {
	svc, _, _, notifier := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, request("Netflix", "Streaming", "9.99"))
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(ctx, created.ID))

	_, err = svc.GetByID(ctx, created.ID)
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)

	all, err := svc.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	// Admin still sees the record, flagged inactive.
	adminView, err := svc.GetByIDForAdmin(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, adminView.IsActive)

	assert.Equal(t, []notify.Event{notify.EventCreated, notify.EventDeactivated}, notifier.events)
}

func TestService_DeactivateIsIdempotent(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, request("Spotify", "Music", "9.99"))
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(ctx, created.ID))
	require.NoError(t, svc.Deactivate(ctx, created.ID))

	err = svc.Deactivate(ctx, 9999)
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
}

func TestService_ActivateRestoresVisibility(t *testing.T) {
	svc, _, _, notifier := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, request("Xbox Game Pass", "Gaming", "14.99"))
	require.NoError(t, err)
	require.NoError(t, svc.Deactivate(ctx, created.ID))

	restored, err := svc.Activate(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, restored.IsActive)

	got, err := svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	assert.Equal(t,
		[]notify.Event{notify.EventCreated, notify.EventDeactivated, notify.EventActivated},
		notifier.events)
}

func TestService_GetAllServesSecondReadFromCache(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, request("Netflix", "Streaming", "9.99"))
	require.NoError(t, err)

	first, err := svc.GetAll(ctx)
	require.NoError(t, err)
	second, err := svc.GetAll(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.findByStatusCalls, "second read must come from cache")
}

func TestService_WritesInvalidateListCaches(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, request("Netflix", "Streaming", "9.99"))
	require.NoError(t, err)

	all, err := svc.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, 1, repo.findByStatusCalls)

	_, err = svc.Create(ctx, request("Spotify", "Music", "9.99"))
	require.NoError(t, err)

	all, err = svc.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2, "list read after a write must see the new record")
	assert.Equal(t, 2, repo.findByStatusCalls)

	categories, err := svc.GetAllCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Music", "Streaming"}, categories)
}

func TestService_StaleByIDEntryServedWithinTTL(t *testing.T) {
	// Per-id keys are not invalidated on writes; a deactivated record may
	// be served from cache until the entry expires.
	svc, _, mem, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, request("Netflix", "Streaming", "9.99"))
	require.NoError(t, err)

	_, err = svc.GetByID(ctx, created.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(ctx, created.ID))

	cachedAgain, err := svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, cachedAgain.IsActive, "stale cached entry is acceptable within the TTL")

	// Once the entry is gone the store's view wins.
	require.NoError(t, mem.Delete(ctx, cache.KeyByID(created.ID)))
	_, err = svc.GetByID(ctx, created.ID)
	require.Error(t, err)
}

func TestService_SearchExcludesInactive(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	netflix, err := svc.Create(ctx, request("Netflix", "Streaming", "9.99"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, request("Net Extra", "Streaming", "4.99"))
	require.NoError(t, err)

	results, err := svc.Search(ctx, "net")
	require.NoError(t, err)
	assert.Len(t, results, 2)

	require.NoError(t, svc.Deactivate(ctx, netflix.ID))

	results, err = svc.Search(ctx, "net")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Net Extra", results[0].Name)
}

func TestService_GetByCategoryOrdersByPrice(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, request("Xbox Game Pass", "Gaming", "14.99"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, request("PlayStation Plus", "Gaming", "9.99"))
	require.NoError(t, err)

	results, err := svc.GetByCategory(ctx, "Gaming")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "PlayStation Plus", results[0].Name)
	assert.Equal(t, "Xbox Game Pass", results[1].Name)
}

func TestService_UpdateRenameConflictLeavesRecordUnchanged(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, request("Netflix", "Streaming", "9.99"))
	require.NoError(t, err)
	spotify, err := svc.Create(ctx, request("Spotify", "Music", "9.99"))
	require.NoError(t, err)

	_, err = svc.Update(ctx, spotify.ID, request("Netflix", "Music", "9.99"))
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeConflict, appErr.Code)

	unchanged, err := svc.GetByID(ctx, spotify.ID)
	require.NoError(t, err)
	assert.Equal(t, "Spotify", unchanged.Name)
}

func TestService_UpdateSameNameIsNotAConflict(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, request("Netflix", "Streaming", "9.99"))
	require.NoError(t, err)

	req := request("Netflix", "Streaming", "11.99")
	req.Description = "Video streaming service"
	updated, err := svc.Update(ctx, created.ID, req)
	require.NoError(t, err)
	assert.True(t, updated.Price.Equal(price("11.99")))
	assert.Equal(t, "Video streaming service", updated.Description)
}

func TestService_UpdateInactiveIsNotFound(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, request("Dropbox", "Storage", "9.99"))
	require.NoError(t, err)
	require.NoError(t, svc.Deactivate(ctx, created.ID))

	_, err = svc.Update(ctx, created.ID, request("Dropbox", "Storage", "11.99"))
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
}

func TestService_Statistics(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, request("Netflix", "Streaming", "9.99"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, request("YouTube Premium", "Streaming", "11.99"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, request("Spotify", "Music", "9.99"))
	require.NoError(t, err)
	dropbox, err := svc.Create(ctx, request("Dropbox", "Storage", "9.99"))
	require.NoError(t, err)
	icloud, err := svc.Create(ctx, request("iCloud+", "Storage", "0.99"))
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(ctx, dropbox.ID))
	require.NoError(t, svc.Deactivate(ctx, icloud.ID))

	stats, err := svc.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.ActiveSubscriptions)
	assert.Equal(t, int64(2), stats.InactiveSubscriptions)
	assert.Equal(t, int64(5), stats.TotalSubscriptions)
	assert.Equal(t, int64(2), stats.ActiveCategories)
	assert.Equal(t, map[string]int64{"Streaming": 2, "Music": 1}, stats.SubscriptionsByCategory)
}

func TestService_AdminListingFiltersAndPages(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	names := []string{"Netflix", "Spotify", "Dropbox", "iCloud+", "Microsoft 365"}
	var last *dto.SubscriptionResponse
	for _, name := range names {
		created, err := svc.Create(ctx, request(name, "Misc", "9.99"))
		require.NoError(t, err)
		last = created
	}
	require.NoError(t, svc.Deactivate(ctx, last.ID))

	page, err := svc.GetAllForAdmin(ctx, dto.PageQuery{Page: 0, Size: 2, SortBy: "id", SortDir: "asc"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.TotalItems)
	assert.Equal(t, 3, page.TotalPages)
	assert.Len(t, page.Content, 2)

	active := true
	page, err = svc.GetAllForAdmin(ctx, dto.PageQuery{Page: 0, Size: 10, IsActive: &active})
	require.NoError(t, err)
	assert.Equal(t, int64(4), page.TotalItems)

	inactive := false
	page, err = svc.GetAllForAdmin(ctx, dto.PageQuery{Page: 0, Size: 10, IsActive: &inactive})
	require.NoError(t, err)
	require.Equal(t, int64(1), page.TotalItems)
	assert.False(t, page.Content[0].IsActive)
}

func TestService_AdminSearchSpansAllStatuses(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, request("Netflix", "Streaming", "9.99"))
	require.NoError(t, err)
	require.NoError(t, svc.Deactivate(ctx, created.ID))

	page, err := svc.SearchForAdmin(ctx, "netflix", 0, 10)
	require.NoError(t, err)
	require.Equal(t, int64(1), page.TotalItems)
	assert.False(t, page.Content[0].IsActive)
}

func TestService_SurvivesFailingCache(t *testing.T) {
	repo := newFakeRepo()
	notifier := &recordingNotifier{}
	svc := NewSubscriptionService(repo, failingCache{}, notifier, "admin@example.com", time.Hour)
	ctx := context.Background()

	created, err := svc.Create(ctx, request("Netflix", "Streaming", "9.99"))
	require.NoError(t, err)

	all, err := svc.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	got, err := svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	require.NoError(t, svc.Deactivate(ctx, created.ID))
}

func TestService_NotifierFailureDoesNotFailWrite(t *testing.T) {
	repo := newFakeRepo()
	notifier := &recordingNotifier{fail: errors.New("smtp down")}
	svc := NewSubscriptionService(repo, cache.NewMemoryCache(), notifier, "admin@example.com", time.Hour)

	created, err := svc.Create(context.Background(), request("Netflix", "Streaming", "9.99"))
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Len(t, notifier.events, 1)
}

func TestService_NoAdminEmailSkipsNotifications(t *testing.T) {
	repo := newFakeRepo()
	notifier := &recordingNotifier{}
	svc := NewSubscriptionService(repo, cache.NewMemoryCache(), notifier, "", time.Hour)

	_, err := svc.Create(context.Background(), request("Netflix", "Streaming", "9.99"))
	require.NoError(t, err)
	assert.Empty(t, notifier.events)
}

func TestService_GetAllCategoriesEmptyIsNotNull(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	categories, err := svc.GetAllCategories(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, categories)
	assert.Empty(t, categories)
}
