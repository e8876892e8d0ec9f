package services

import (
	"context"
	"sync"
	"time"

	"konfihub/internal/models"
)

// In-memory repository fakes. They honor the same uniqueness guarantees
// the SQL layer enforces via constraints, so the services can be tested
// against the invariants they rely on.

// ===============================
// LEDGER
// ===============================

type fakeLedgerRepo struct {
	mu      sync.Mutex
	nextID  int64
	records []*models.ActivityRecord
	failAll bool
}

func newFakeLedgerRepo() *fakeLedgerRepo {
	return &fakeLedgerRepo{nextID: 1}
}

func (f *fakeLedgerRepo) GetHistory(_ context.Context, participantID int64) ([]*models.ActivityRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return nil, errUnavailable
	}
	var out []*models.ActivityRecord
	for _, r := range f.records {
		if r.ParticipantID == participantID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeLedgerRepo) GetTotals(ctx context.Context, participantID int64) (models.PointTotals, error) {
	history, err := f.GetHistory(ctx, participantID)
	if err != nil {
		return models.PointTotals{}, err
	}
	return totalsFromHistory(history), nil
}

func (f *fakeLedgerRepo) CreateRecord(_ context.Context, record *models.ActivityRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errUnavailable
	}
	record.ID = f.nextID
	f.nextID++
	record.CreatedAt = time.Now()
	f.records = append(f.records, record)
	return nil
}

func (f *fakeLedgerRepo) CreateForRequest(_ context.Context, record *models.ActivityRecord) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return false, errUnavailable
	}
	for _, r := range f.records {
		if r.RequestID != nil && record.RequestID != nil && *r.RequestID == *record.RequestID {
			return false, nil
		}
	}
	record.ID = f.nextID
	f.nextID++
	record.CreatedAt = time.Now()
	f.records = append(f.records, record)
	return true, nil
}

func (f *fakeLedgerRepo) DeleteForRequest(_ context.Context, requestID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.records[:0]
	for _, r := range f.records {
		if r.RequestID == nil || *r.RequestID != requestID {
			kept = append(kept, r)
		}
	}
	f.records = kept
	return nil
}

func (f *fakeLedgerRepo) entriesForRequest(requestID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, r := range f.records {
		if r.RequestID != nil && *r.RequestID == requestID {
			count++
		}
	}
	return count
}

// ===============================
// BADGES
// ===============================

type awardKey struct {
	participantID int64
	badgeID       int64
}

type fakeBadgeRepo struct {
	mu     sync.Mutex
	nextID int64
	badges []*models.BadgeDefinition
	awards map[awardKey]time.Time

	// hideEarned makes ListEarnedIDs report nothing, simulating a stale
	// read racing against a concurrent awarding pass.
	hideEarned bool
}

func newFakeBadgeRepo() *fakeBadgeRepo {
	return &fakeBadgeRepo{nextID: 1, awards: make(map[awardKey]time.Time)}
}

func (f *fakeBadgeRepo) ListActive(_ context.Context) ([]*models.BadgeDefinition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.BadgeDefinition
	for _, b := range f.badges {
		if b.IsActive {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBadgeRepo) GetByID(_ context.Context, id int64) (*models.BadgeDefinition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.badges {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, nil
}

func (f *fakeBadgeRepo) Create(_ context.Context, badge *models.BadgeDefinition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	badge.ID = f.nextID
	f.nextID++
	badge.CreatedAt = time.Now()
	f.badges = append(f.badges, badge)
	return nil
}

func (f *fakeBadgeRepo) Update(_ context.Context, badge *models.BadgeDefinition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, b := range f.badges {
		if b.ID == badge.ID {
			f.badges[i] = badge
			return nil
		}
	}
	return errUnavailable
}

func (f *fakeBadgeRepo) ListEarnedIDs(_ context.Context, participantID int64) (map[int64]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	earned := make(map[int64]bool)
	if f.hideEarned {
		return earned, nil
	}
	for key := range f.awards {
		if key.participantID == participantID {
			earned[key.badgeID] = true
		}
	}
	return earned, nil
}

func (f *fakeBadgeRepo) ListEarned(_ context.Context, participantID int64) ([]*models.EarnedBadge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.EarnedBadge
	for key, earnedAt := range f.awards {
		if key.participantID != participantID {
			continue
		}
		for _, b := range f.badges {
			if b.ID == key.badgeID {
				out = append(out, &models.EarnedBadge{BadgeDefinition: *b, EarnedAt: earnedAt})
			}
		}
	}
	return out, nil
}

func (f *fakeBadgeRepo) InsertAward(_ context.Context, participantID, badgeID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := awardKey{participantID: participantID, badgeID: badgeID}
	if _, exists := f.awards[key]; exists {
		return false, nil
	}
	f.awards[key] = time.Now()
	return true, nil
}

func (f *fakeBadgeRepo) awardCount(participantID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for key := range f.awards {
		if key.participantID == participantID {
			count++
		}
	}
	return count
}

// ===============================
// REQUESTS
// ===============================

// fakeRequestRepo pairs each transition with its ledger mutation, like
// the SQL implementation does inside one transaction.
type fakeRequestRepo struct {
	mu       sync.Mutex
	nextID   int64
	requests map[int64]*models.ActivityRequest
	ledger   *fakeLedgerRepo
}

func newFakeRequestRepo(ledger *fakeLedgerRepo) *fakeRequestRepo {
	return &fakeRequestRepo{
		nextID:   1,
		requests: make(map[int64]*models.ActivityRequest),
		ledger:   ledger,
	}
}

func (f *fakeRequestRepo) Create(_ context.Context, request *models.ActivityRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	request.ID = f.nextID
	f.nextID++
	request.Status = models.RequestStatusPending
	request.CreatedAt = time.Now()
	request.UpdatedAt = request.CreatedAt
	f.requests[request.ID] = request
	return nil
}

func (f *fakeRequestRepo) GetByID(_ context.Context, id int64) (*models.ActivityRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	request, ok := f.requests[id]
	if !ok {
		return nil, nil
	}
	copied := *request
	return &copied, nil
}

func (f *fakeRequestRepo) ListByParticipant(_ context.Context, participantID int64) ([]*models.ActivityRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.ActivityRequest
	for _, r := range f.requests {
		if r.ParticipantID == participantID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRequestRepo) ListPending(_ context.Context) ([]*models.ActivityRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.ActivityRequest
	for _, r := range f.requests {
		if r.Status == models.RequestStatusPending {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRequestRepo) Approve(ctx context.Context, requestID, approverID int64, adminComment *string, record *models.ActivityRecord) (*models.ActivityRequest, error) {
	f.mu.Lock()
	request, ok := f.requests[requestID]
	if !ok {
		f.mu.Unlock()
		return nil, nil
	}
	request.Status = models.RequestStatusApproved
	request.ApproverID = &approverID
	request.AdminComment = adminComment
	request.UpdatedAt = time.Now()
	copied := *request
	f.mu.Unlock()

	if _, err := f.ledger.CreateForRequest(ctx, record); err != nil {
		return nil, err
	}
	return &copied, nil
}

func (f *fakeRequestRepo) Reject(ctx context.Context, requestID, approverID int64, adminComment string) (*models.ActivityRequest, error) {
	f.mu.Lock()
	request, ok := f.requests[requestID]
	if !ok {
		f.mu.Unlock()
		return nil, nil
	}
	request.Status = models.RequestStatusRejected
	request.ApproverID = &approverID
	request.AdminComment = &adminComment
	request.UpdatedAt = time.Now()
	copied := *request
	f.mu.Unlock()

	if err := f.ledger.DeleteForRequest(ctx, requestID); err != nil {
		return nil, err
	}
	return &copied, nil
}

func (f *fakeRequestRepo) UpdateAdminComment(_ context.Context, requestID, approverID int64, adminComment *string) (*models.ActivityRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	request, ok := f.requests[requestID]
	if !ok {
		return nil, nil
	}
	request.ApproverID = &approverID
	request.AdminComment = adminComment
	request.UpdatedAt = time.Now()
	copied := *request
	return &copied, nil
}

// ===============================
// ACTIVITIES
// ===============================

type fakeActivityRepo struct {
	mu         sync.Mutex
	nextID     int64
	activities map[int64]*models.Activity
}

func newFakeActivityRepo() *fakeActivityRepo {
	return &fakeActivityRepo{nextID: 1, activities: make(map[int64]*models.Activity)}
}

func (f *fakeActivityRepo) GetByID(_ context.Context, id int64) (*models.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	activity, ok := f.activities[id]
	if !ok {
		return nil, nil
	}
	return activity, nil
}

func (f *fakeActivityRepo) List(_ context.Context, activeOnly bool) ([]*models.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Activity
	for _, a := range f.activities {
		if !activeOnly || a.IsActive {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeActivityRepo) Create(_ context.Context, activity *models.Activity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	activity.ID = f.nextID
	f.nextID++
	activity.CreatedAt = time.Now()
	f.activities[activity.ID] = activity
	return nil
}

// ===============================
// PHOTOS
// ===============================

type fakePhotoService struct {
	uploads int
	fail    bool
}

func (f *fakePhotoService) UploadPhoto(_ context.Context, _ string) (string, error) {
	if f.fail {
		return "", errUnavailable
	}
	f.uploads++
	return "https://media.example/konfihub/photo-1.jpg", nil
}

var errUnavailable = contextError("store unavailable")

type contextError string

func (e contextError) Error() string { return string(e) }
