package services

import (
	"context"
	"testing"
	"time"

	"konfihub/internal/cache"
	"konfihub/internal/events"
	"konfihub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type requestServiceFixture struct {
	service     RequestService
	requestRepo *fakeRequestRepo
	ledgerRepo  *fakeLedgerRepo
	badgeRepo   *fakeBadgeRepo
	activities  *fakeActivityRepo
	photos      *fakePhotoService
	activity    *models.Activity
}

func newRequestServiceFixture(t *testing.T) *requestServiceFixture {
	t.Helper()
	ledgerRepo := newFakeLedgerRepo()
	badgeRepo := newFakeBadgeRepo()
	requestRepo := newFakeRequestRepo(ledgerRepo)
	activityRepo := newFakeActivityRepo()
	photos := &fakePhotoService{}
	bus := events.NewEventBus(zap.NewNop())

	badgeService := NewBadgeService(
		badgeRepo, ledgerRepo, NewEvaluator(zap.NewNop()),
		cache.NewMemoryCache(), time.Minute, bus, zap.NewNop())
	service := NewRequestService(
		requestRepo, activityRepo, badgeService, photos, bus, zap.NewNop())

	activity := &models.Activity{
		Name:     "Sonntagsgottesdienst",
		Points:   2,
		Type:     models.ActivityTypeGottesdienst,
		IsActive: true,
	}
	require.NoError(t, activityRepo.Create(context.Background(), activity))

	return &requestServiceFixture{
		service:     service,
		requestRepo: requestRepo,
		ledgerRepo:  ledgerRepo,
		badgeRepo:   badgeRepo,
		activities:  activityRepo,
		photos:      photos,
		activity:    activity,
	}
}

func (f *requestServiceFixture) createPending(t *testing.T, participantID int64) *models.ActivityRequest {
	t.Helper()
	request, err := f.service.CreateRequest(context.Background(), &CreateRequestRequest{
		ParticipantID: participantID,
		ActivityID:    f.activity.ID,
		RequestedDate: time.Now().AddDate(0, 0, -2),
	})
	require.NoError(t, err)
	return request
}

func TestCreateRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("new claim starts pending", func(t *testing.T) {
		f := newRequestServiceFixture(t)
		request := f.createPending(t, 1)
		assert.Equal(t, models.RequestStatusPending, request.Status)
		assert.Nil(t, request.PhotoRef)
		// Nothing enters the ledger before approval.
		history, err := f.ledgerRepo.GetHistory(ctx, 1)
		require.NoError(t, err)
		assert.Empty(t, history)
	})

	t.Run("photo is uploaded before the claim is stored", func(t *testing.T) {
		f := newRequestServiceFixture(t)
		request, err := f.service.CreateRequest(ctx, &CreateRequestRequest{
			ParticipantID: 1,
			ActivityID:    f.activity.ID,
			RequestedDate: time.Now().AddDate(0, 0, -1),
			PhotoData:     "data:image/jpeg;base64,Zm9v",
		})
		require.NoError(t, err)
		require.NotNil(t, request.PhotoRef)
		assert.Equal(t, 1, f.photos.uploads)
	})

	t.Run("photo outage blocks the claim", func(t *testing.T) {
		f := newRequestServiceFixture(t)
		f.photos.fail = true
		_, err := f.service.CreateRequest(ctx, &CreateRequestRequest{
			ParticipantID: 1,
			ActivityID:    f.activity.ID,
			RequestedDate: time.Now().AddDate(0, 0, -1),
			PhotoData:     "data:image/jpeg;base64,Zm9v",
		})
		assert.True(t, IsErrorType(err, "SERVICE_UNAVAILABLE"))
	})

	t.Run("future date is rejected", func(t *testing.T) {
		f := newRequestServiceFixture(t)
		_, err := f.service.CreateRequest(ctx, &CreateRequestRequest{
			ParticipantID: 1,
			ActivityID:    f.activity.ID,
			RequestedDate: time.Now().AddDate(0, 0, 7),
		})
		assert.True(t, IsValidationError(err))
	})

	t.Run("inactive activity is rejected", func(t *testing.T) {
		f := newRequestServiceFixture(t)
		f.activity.IsActive = false
		_, err := f.service.CreateRequest(ctx, &CreateRequestRequest{
			ParticipantID: 1,
			ActivityID:    f.activity.ID,
			RequestedDate: time.Now().AddDate(0, 0, -1),
		})
		assert.True(t, IsValidationError(err))
	})
}

func TestRejectRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("requires a reason", func(t *testing.T) {
		f := newRequestServiceFixture(t)
		request := f.createPending(t, 1)

		_, err := f.service.UpdateRequestStatus(ctx, &UpdateRequestStatusRequest{
			RequestID:    request.ID,
			ApproverID:   9,
			NewStatus:    models.RequestStatusRejected,
			AdminComment: "   ",
		})
		assert.True(t, IsValidationError(err))

		// The failed transition leaves the request untouched.
		unchanged, err := f.service.GetRequest(ctx, request.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RequestStatusPending, unchanged.Status)
	})

	t.Run("rejection writes no ledger entry and awards nothing", func(t *testing.T) {
		f := newRequestServiceFixture(t)
		f.badgeRepo.Create(ctx, badge(models.CriteriaActivityCount, 1, ""))
		request := f.createPending(t, 1)

		result, err := f.service.UpdateRequestStatus(ctx, &UpdateRequestStatusRequest{
			RequestID:    request.ID,
			ApproverID:   9,
			NewStatus:    models.RequestStatusRejected,
			AdminComment: "kein Nachweis",
		})
		require.NoError(t, err)
		assert.Equal(t, models.RequestStatusRejected, result.Request.Status)
		assert.Empty(t, result.NewlyAwardedBadges)

		history, err := f.ledgerRepo.GetHistory(ctx, 1)
		require.NoError(t, err)
		assert.Empty(t, history)
		assert.Equal(t, 0, f.badgeRepo.awardCount(1))
	})
}

func TestApproveRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("approval writes exactly one ledger entry", func(t *testing.T) {
		f := newRequestServiceFixture(t)
		request := f.createPending(t, 1)

		result, err := f.service.UpdateRequestStatus(ctx, &UpdateRequestStatusRequest{
			RequestID:  request.ID,
			ApproverID: 9,
			NewStatus:  models.RequestStatusApproved,
		})
		require.NoError(t, err)
		assert.Equal(t, models.RequestStatusApproved, result.Request.Status)
		assert.Equal(t, 1, f.ledgerRepo.entriesForRequest(request.ID))

		history, err := f.ledgerRepo.GetHistory(ctx, 1)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, f.activity.Name, history[0].Name)
		assert.Equal(t, f.activity.Points, history[0].Points)
		assert.Equal(t, models.ActivitySourceAssigned, history[0].Source)
	})

	t.Run("approval triggers badge awarding", func(t *testing.T) {
		f := newRequestServiceFixture(t)
		f.badgeRepo.Create(ctx, badge(models.CriteriaActivityCount, 1, ""))
		request := f.createPending(t, 1)

		result, err := f.service.UpdateRequestStatus(ctx, &UpdateRequestStatusRequest{
			RequestID:  request.ID,
			ApproverID: 9,
			NewStatus:  models.RequestStatusApproved,
		})
		require.NoError(t, err)
		assert.Len(t, result.NewlyAwardedBadges, 1)
		assert.Equal(t, 1, f.badgeRepo.awardCount(1))
	})

	t.Run("re-approving an approved request only edits the comment", func(t *testing.T) {
		f := newRequestServiceFixture(t)
		f.badgeRepo.Create(ctx, badge(models.CriteriaActivityCount, 1, ""))
		request := f.createPending(t, 1)

		first, err := f.service.UpdateRequestStatus(ctx, &UpdateRequestStatusRequest{
			RequestID:  request.ID,
			ApproverID: 9,
			NewStatus:  models.RequestStatusApproved,
		})
		require.NoError(t, err)
		require.Len(t, first.NewlyAwardedBadges, 1)

		second, err := f.service.UpdateRequestStatus(ctx, &UpdateRequestStatusRequest{
			RequestID:    request.ID,
			ApproverID:   9,
			NewStatus:    models.RequestStatusApproved,
			AdminComment: "nachgetragen",
		})
		require.NoError(t, err)
		require.NotNil(t, second.Request.AdminComment)
		assert.Equal(t, "nachgetragen", *second.Request.AdminComment)
		assert.Empty(t, second.NewlyAwardedBadges)
		assert.Equal(t, 1, f.ledgerRepo.entriesForRequest(request.ID))
	})

	t.Run("approved to rejected removes the entry but keeps awards", func(t *testing.T) {
		f := newRequestServiceFixture(t)
		f.badgeRepo.Create(ctx, badge(models.CriteriaActivityCount, 1, ""))
		request := f.createPending(t, 1)

		_, err := f.service.UpdateRequestStatus(ctx, &UpdateRequestStatusRequest{
			RequestID:  request.ID,
			ApproverID: 9,
			NewStatus:  models.RequestStatusApproved,
		})
		require.NoError(t, err)
		require.Equal(t, 1, f.badgeRepo.awardCount(1))

		result, err := f.service.UpdateRequestStatus(ctx, &UpdateRequestStatusRequest{
			RequestID:    request.ID,
			ApproverID:   9,
			NewStatus:    models.RequestStatusRejected,
			AdminComment: "doch nicht",
		})
		require.NoError(t, err)
		assert.Equal(t, models.RequestStatusRejected, result.Request.Status)
		assert.Equal(t, 0, f.ledgerRepo.entriesForRequest(request.ID))
		// Awards are never retracted.
		assert.Equal(t, 1, f.badgeRepo.awardCount(1))
	})

	t.Run("rejected to approved re-creates exactly one entry", func(t *testing.T) {
		f := newRequestServiceFixture(t)
		request := f.createPending(t, 1)

		_, err := f.service.UpdateRequestStatus(ctx, &UpdateRequestStatusRequest{
			RequestID:    request.ID,
			ApproverID:   9,
			NewStatus:    models.RequestStatusRejected,
			AdminComment: "fehlerhaft",
		})
		require.NoError(t, err)

		_, err = f.service.UpdateRequestStatus(ctx, &UpdateRequestStatusRequest{
			RequestID:  request.ID,
			ApproverID: 9,
			NewStatus:  models.RequestStatusApproved,
		})
		require.NoError(t, err)
		assert.Equal(t, 1, f.ledgerRepo.entriesForRequest(request.ID))
	})
}

func TestUpdateRequestStatusValidation(t *testing.T) {
	ctx := context.Background()

	t.Run("pending is not a target status", func(t *testing.T) {
		f := newRequestServiceFixture(t)
		request := f.createPending(t, 1)
		_, err := f.service.UpdateRequestStatus(ctx, &UpdateRequestStatusRequest{
			RequestID:  request.ID,
			ApproverID: 9,
			NewStatus:  models.RequestStatusPending,
		})
		assert.True(t, IsValidationError(err))
	})

	t.Run("unknown status", func(t *testing.T) {
		f := newRequestServiceFixture(t)
		request := f.createPending(t, 1)
		_, err := f.service.UpdateRequestStatus(ctx, &UpdateRequestStatusRequest{
			RequestID:  request.ID,
			ApproverID: 9,
			NewStatus:  models.RequestStatus("cancelled"),
		})
		assert.True(t, IsValidationError(err))
	})

	t.Run("unknown request", func(t *testing.T) {
		f := newRequestServiceFixture(t)
		_, err := f.service.UpdateRequestStatus(ctx, &UpdateRequestStatusRequest{
			RequestID:  404,
			ApproverID: 9,
			NewStatus:  models.RequestStatusApproved,
		})
		assert.True(t, IsNotFoundError(err))
	})
}

func TestListRequests(t *testing.T) {
	ctx := context.Background()
	f := newRequestServiceFixture(t)
	f.createPending(t, 1)
	f.createPending(t, 1)
	other := f.createPending(t, 2)

	mine, err := f.service.ListByParticipant(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	pending, err := f.service.ListPending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 3)

	_, err = f.service.UpdateRequestStatus(ctx, &UpdateRequestStatusRequest{
		RequestID:  other.ID,
		ApproverID: 9,
		NewStatus:  models.RequestStatusApproved,
	})
	require.NoError(t, err)

	pending, err = f.service.ListPending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}
