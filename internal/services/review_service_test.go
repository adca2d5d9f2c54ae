package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReviewGate(t *testing.T) {
	f := newSessionFixture(t)
	reviews := NewReviewService(f.store, f.store, nil)
	ctx := context.Background()

	scheduled := f.book(t, testOtherStudentID, "13:00", 1)
	_, err := reviews.SubmitReview(ctx, testOtherStudentID, SubmitReviewInput{SessionID: scheduled.ID, Rating: 5})
	require.ErrorIs(t, err, ErrInvalidState)
	assert.ErrorIs(t, err, ErrSessionNotCompleted)

	detail := f.confirmed(t)
	_, err = f.service.Complete(ctx, testTutorID, detail.ID)
	require.NoError(t, err)

	_, err = reviews.SubmitReview(ctx, testTutorID, SubmitReviewInput{SessionID: detail.ID, Rating: 5})
	assert.ErrorIs(t, err, ErrNotYourSession)

	_, err = reviews.SubmitReview(ctx, testStudentID, SubmitReviewInput{SessionID: detail.ID, Rating: 0})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = reviews.SubmitReview(ctx, testStudentID, SubmitReviewInput{SessionID: 777, Rating: 4})
	assert.ErrorIs(t, err, ErrNotFound)

	review, err := reviews.SubmitReview(ctx, testStudentID, SubmitReviewInput{
		SessionID: detail.ID,
		Rating:    4,
		Comment:   "  clear explanations ",
	})
	require.NoError(t, err)
	assert.Equal(t, 4, review.Rating)
	assert.Equal(t, "clear explanations", review.Comment)
	assert.Equal(t, testTutorID, review.TutorID)

	_, err = reviews.SubmitReview(ctx, testStudentID, SubmitReviewInput{SessionID: detail.ID, Rating: 5})
	require.ErrorIs(t, err, ErrConflict)
	assert.ErrorIs(t, err, ErrAlreadyReviewed)

	forTutor, err := reviews.ListForTutor(ctx, testTutorID)
	require.NoError(t, err)
	assert.Len(t, forTutor, 1)

	stored, err := f.service.GetSession(ctx, testStudentID, detail.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Rating)
	assert.Equal(t, 4, *stored.Rating)
}
