package service

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/venuehunt/venuehunt/internal/model"
	"github.com/venuehunt/venuehunt/internal/repository"
)

// ReviewService lets organizers review venues they have booked and paid for.
type ReviewService struct {
	reviews  *repository.ReviewRepo
	bookings *repository.BookingRepo
	logger   logrus.FieldLogger
}

func NewReviewService(reviews *repository.ReviewRepo, bookings *repository.BookingRepo, logger logrus.FieldLogger) *ReviewService {
	if reviews == nil || bookings == nil {
		panic("nil repository passed to NewReviewService")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ReviewService{reviews: reviews, bookings: bookings, logger: logger.WithField("component", "review")}
}

// Create stores a review of the booking's venue.  Only the organizer of a
// confirmed, paid booking may review it, once.
func (s *ReviewService) Create(ctx context.Context, reviewerID, bookingID uint64, rating int, comment string) (*model.Review, error) {
	if !model.ValidRating(rating) {
		return nil, ErrInvalidRating
	}
	d, err := s.bookings.GetDetail(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if d.OrganizerID != reviewerID {
		return nil, repository.ErrForbidden
	}
	if d.Status != model.BookingConfirmed || d.PaymentStatus != model.PaymentPaid {
		return nil, ErrReviewNotAllowed
	}
	rv := &model.Review{
		VenueID:    d.VenueID,
		ReviewerID: reviewerID,
		BookingID:  &d.ID,
		Rating:     rating,
		Comment:    strings.TrimSpace(comment),
	}
	if err := s.reviews.Create(ctx, rv); err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"venue_id": rv.VenueID, "review_id": rv.ID}).Info("review created")
	return rv, nil
}

// Update edits a review written by reviewerID.
func (s *ReviewService) Update(ctx context.Context, reviewerID, reviewID uint64, rating int, comment string) (*model.Review, error) {
	if !model.ValidRating(rating) {
		return nil, ErrInvalidRating
	}
	if err := s.reviews.Update(ctx, reviewID, reviewerID, rating, strings.TrimSpace(comment)); err != nil {
		return nil, err
	}
	return s.reviews.GetByID(ctx, reviewID)
}

// Delete removes a review written by reviewerID.
func (s *ReviewService) Delete(ctx context.Context, reviewerID, reviewID uint64) error {
	return s.reviews.Delete(ctx, reviewID, reviewerID)
}

func (s *ReviewService) ForVenue(ctx context.Context, venueID uint64) ([]model.Review, error) {
	return s.reviews.ListByVenue(ctx, venueID)
}

func (s *ReviewService) ForOwner(ctx context.Context, ownerID uint64) ([]model.Review, error) {
	return s.reviews.ListByOwner(ctx, ownerID)
}
