package service

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/venuehunt/venuehunt/internal/booking"
	"github.com/venuehunt/venuehunt/internal/model"
	"github.com/venuehunt/venuehunt/internal/payment"
	"github.com/venuehunt/venuehunt/internal/payment/paymenttest"
	"github.com/venuehunt/venuehunt/internal/queue"
	"github.com/venuehunt/venuehunt/internal/repository"
)

var fixedNow = time.Date(2030, 1, 15, 12, 0, 0, 0, time.UTC)

var venueColumns = []string{
	"id", "owner_id", "name", "description", "address", "latitude", "longitude",
	"capacity", "price_per_person_minor", "has_parking", "has_wifi", "has_sound_system",
	"has_catering", "event_category", "supported_event", "created_at", "updated_at",
}

var bookingColumns = []string{
	"id", "venue_id", "organizer_id", "event_date", "start_time", "end_time",
	"number_of_guests", "event_category", "event_type", "special_requests", "status",
	"payment_status", "payment_order_id", "transaction_id", "total_amount_minor",
	"payable_minor", "amount_paid_minor", "is_advance_payment", "created_at", "updated_at",
}

var detailColumns = append(append([]string{}, bookingColumns...), "venue_name", "owner_id", "email")

func venueRows() *sqlmock.Rows {
	return sqlmock.NewRows(venueColumns).AddRow(
		uint64(7), uint64(2), "Lakeside Hall", "lake view", "1 Lake Road", nil, nil,
		50, int64(10000), true, false, false, true, "informal", "wedding", fixedNow, fixedNow,
	)
}

type row struct {
	id        uint64
	date      time.Time
	start     string
	end       string
	status    string
	payStatus string
	orderID   any
	paid      int64
}

func (r row) values() []driver.Value {
	if r.date.IsZero() {
		r.date = time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)
	}
	if r.start == "" {
		r.start, r.end = "14:00:00", "16:00:00"
	}
	return []driver.Value{
		r.id, uint64(7), uint64(5), r.date, []byte(r.start), []byte(r.end),
		40, "informal", "wedding", "", r.status,
		r.payStatus, r.orderID, nil, int64(400000),
		int64(80000), r.paid, true, fixedNow, fixedNow,
	}
}

func bookingRows(rs ...row) *sqlmock.Rows {
	rows := sqlmock.NewRows(bookingColumns)
	for _, r := range rs {
		rows.AddRow(r.values()...)
	}
	return rows
}

func detailRows(r row) *sqlmock.Rows {
	return sqlmock.NewRows(detailColumns).
		AddRow(append(r.values(), "Lakeside Hall", uint64(2), "org@example.com")...)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []queue.BookingEvent
}

func (p *fakePublisher) Publish(_ context.Context, ev queue.BookingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

type fakeRecorder struct {
	calls []model.InteractionType
}

func (r *fakeRecorder) Record(_ context.Context, _, _ uint64, kind model.InteractionType) error {
	r.calls = append(r.calls, kind)
	return nil
}

type fixture struct {
	svc      *BookingService
	mock     sqlmock.Sqlmock
	gateway  *paymenttest.Gateway
	events   *fakePublisher
	recorder *fakeRecorder
	hook     *test.Hook
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, sm, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	checker := booking.NewChecker(booking.OverlapExclusive, time.UTC)
	checker.Now = func() time.Time { return fixedNow }

	f := &fixture{
		mock:     sm,
		gateway:  paymenttest.NewGateway(t),
		events:   &fakePublisher{},
		recorder: &fakeRecorder{},
		hook:     hook,
	}
	f.svc = NewBookingService(BookingDeps{
		DB:       db,
		Venues:   repository.NewVenueRepo(db),
		Bookings: repository.NewBookingRepo(db),
		Checker:  checker,
		Pricer:   booking.Pricer{AdvancePercent: 20, CeilingMinor: 4000000, Currency: "INR"},
		Gateway:  f.gateway,
		Events:   f.events,
		Recorder: f.recorder,
		Logger:   logger,
	})
	f.svc.KeyID = "rzp_test_key"
	f.svc.BaseURL = "https://venuehunt.test"
	return f
}

func weddingInput() CreateBookingInput {
	return CreateBookingInput{
		VenueID:        7,
		EventDate:      model.NewDate(time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)),
		Start:          model.NewTimeOfDay(14, 0, 0),
		End:            model.NewTimeOfDay(16, 0, 0),
		Guests:         40,
		EventType:      model.EventWedding,
		AdvancePayment: true,
	}
}

func TestCreateBooking(t *testing.T) {
	f := newFixture(t)

	f.mock.ExpectBegin()
	f.mock.ExpectQuery(`FROM venues v WHERE v.id = \? FOR UPDATE`).WithArgs(uint64(7)).WillReturnRows(venueRows())
	f.mock.ExpectQuery(`b.status = 'confirmed'`).WithArgs(uint64(7), "2030-06-01").WillReturnRows(bookingRows())
	f.mock.ExpectExec(`INSERT INTO bookings`).WillReturnResult(sqlmock.NewResult(11, 1))
	f.mock.ExpectQuery(`FROM bookings b WHERE b.id = \?`).WillReturnRows(bookingRows(row{id: 11, status: "pending", payStatus: "pending"}))
	f.mock.ExpectCommit()
	f.gateway.On("CreateOrder", mock.Anything, mock.MatchedBy(func(req payment.OrderRequest) bool {
		return req.AmountMinor == 80000 && req.Receipt == "booking_11" && req.Notes["payment_type"] == "advance"
	})).Return(payment.Order{ID: "order_11", AmountMinor: 80000, Currency: "INR"}, nil)
	f.mock.ExpectExec(`UPDATE bookings SET payment_order_id=\?`).WithArgs("order_11", uint64(11)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	out, err := f.svc.Create(context.Background(), 5, weddingInput())
	require.NoError(t, err)
	assert.Equal(t, "order_11", out.OrderID)
	assert.Equal(t, int64(80000), out.AmountMinor)
	assert.Equal(t, "20% Advance Payment", out.Description)
	assert.Equal(t, "rzp_test_key", out.KeyID)
	assert.Equal(t, "https://venuehunt.test/v1/payments/callback", out.CallbackURL)
	assert.Equal(t, "order_11", out.Booking.PaymentOrderID)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCreateBookingRejectedByAdmission(t *testing.T) {
	f := newFixture(t)
	in := weddingInput()
	in.Guests = 80

	f.mock.ExpectBegin()
	f.mock.ExpectQuery(`FOR UPDATE`).WillReturnRows(venueRows())
	f.mock.ExpectQuery(`b.status = 'confirmed'`).WillReturnRows(bookingRows(
		row{id: 3, start: "15:00:00", end: "18:00:00", status: "confirmed", payStatus: "paid", orderID: "order_3"},
	))
	f.mock.ExpectRollback()

	_, err := f.svc.Create(context.Background(), 5, in)
	var verr *booking.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Has("number_of_guests"))
	assert.Len(t, verr.Violations, 2)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCreateBookingGatewayFailureDiscardsBooking(t *testing.T) {
	f := newFixture(t)

	f.mock.ExpectBegin()
	f.mock.ExpectQuery(`FOR UPDATE`).WillReturnRows(venueRows())
	f.mock.ExpectQuery(`b.status = 'confirmed'`).WillReturnRows(bookingRows())
	f.mock.ExpectExec(`INSERT INTO bookings`).WillReturnResult(sqlmock.NewResult(11, 1))
	f.mock.ExpectQuery(`FROM bookings b WHERE b.id = \?`).WillReturnRows(bookingRows(row{id: 11, status: "pending", payStatus: "pending"}))
	f.mock.ExpectCommit()
	f.gateway.On("CreateOrder", mock.Anything, mock.Anything).
		Return(payment.Order{}, fmt.Errorf("%w: connection reset", payment.ErrGateway))
	f.mock.ExpectExec(`DELETE FROM bookings WHERE id = \?`).WithArgs(uint64(11)).WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := f.svc.Create(context.Background(), 5, weddingInput())
	assert.ErrorIs(t, err, payment.ErrGateway)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCreateBookingOrderSaveFailureDiscardsBooking(t *testing.T) {
	f := newFixture(t)

	f.mock.ExpectBegin()
	f.mock.ExpectQuery(`FOR UPDATE`).WillReturnRows(venueRows())
	f.mock.ExpectQuery(`b.status = 'confirmed'`).WillReturnRows(bookingRows())
	f.mock.ExpectExec(`INSERT INTO bookings`).WillReturnResult(sqlmock.NewResult(11, 1))
	f.mock.ExpectQuery(`FROM bookings b WHERE b.id = \?`).WillReturnRows(bookingRows(row{id: 11, status: "pending", payStatus: "pending"}))
	f.mock.ExpectCommit()
	f.gateway.On("CreateOrder", mock.Anything, mock.Anything).
		Return(payment.Order{ID: "order_11", AmountMinor: 80000, Currency: "INR"}, nil)
	f.mock.ExpectExec(`UPDATE bookings SET payment_order_id=\?`).WithArgs("order_11", uint64(11)).
		WillReturnError(fmt.Errorf("db gone"))
	f.mock.ExpectExec(`DELETE FROM bookings WHERE id = \?`).WithArgs(uint64(11)).WillReturnResult(sqlmock.NewResult(0, 1))

	out, err := f.svc.Create(context.Background(), 5, weddingInput())
	assert.Nil(t, out)
	assert.ErrorContains(t, err, "db gone")
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestNewBookingServiceDefaults(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := NewBookingService(BookingDeps{
		DB:       db,
		Venues:   repository.NewVenueRepo(db),
		Bookings: repository.NewBookingRepo(db),
		Checker:  booking.NewChecker(booking.OverlapExclusive, time.UTC),
		Gateway:  paymenttest.NewGateway(t),
	})
	assert.NotPanics(t, func() {
		_ = svc.events.Publish(context.Background(), queue.BookingEvent{Type: queue.EventBookingConfirmed, BookingID: 1})
	})
}

func successCallback() Callback {
	return Callback{OrderID: "order_11", PaymentID: "pay_1", Signature: "sig"}
}

func TestCallbackConfirmsBooking(t *testing.T) {
	f := newFixture(t)
	pending := row{id: 11, status: "pending", payStatus: "pending", orderID: "order_11"}

	f.gateway.On("VerifySignature", "order_11", "pay_1", "sig").Return(true)
	f.mock.ExpectQuery(`WHERE b.payment_order_id = \?`).WithArgs("order_11").WillReturnRows(detailRows(pending))
	f.gateway.On("FetchCapturedAmount", mock.Anything, "pay_1").Return(int64(80000), nil)
	f.mock.ExpectBegin()
	f.mock.ExpectQuery(`FROM venues v WHERE v.id = \? FOR UPDATE`).WithArgs(uint64(7)).WillReturnRows(venueRows())
	f.mock.ExpectQuery(`WHERE b.payment_order_id = \? FOR UPDATE`).WithArgs("order_11").WillReturnRows(bookingRows(pending))
	f.mock.ExpectQuery(`b.status = 'confirmed'`).WillReturnRows(bookingRows())
	f.mock.ExpectExec(`UPDATE bookings SET status=\?`).
		WithArgs("confirmed", "paid", "order_11", "pay_1", int64(80000), int64(80000), uint64(11)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectCommit()

	res, err := f.svc.HandleCallback(context.Background(), successCallback())
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, res.Booking.Status)
	assert.Empty(t, res.RetryURL)
	require.Len(t, f.events.events, 1)
	assert.Equal(t, queue.EventBookingConfirmed, f.events.events[0].Type)
	assert.Equal(t, "Lakeside Hall", f.events.events[0].VenueName)
	assert.Equal(t, "14:00", f.events.events[0].StartTime)
	assert.Equal(t, []model.InteractionType{model.InteractionBook}, f.recorder.calls)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCallbackPaysOwnerConfirmedBooking(t *testing.T) {
	f := newFixture(t)
	pending := row{id: 11, status: "pending", payStatus: "pending", orderID: "order_11"}
	confirmed := row{id: 11, status: "confirmed", payStatus: "pending", orderID: "order_11"}

	f.mock.ExpectQuery(`WHERE b.id = \?`).WillReturnRows(detailRows(pending))
	f.mock.ExpectBegin()
	f.mock.ExpectQuery(`FROM venues v WHERE v.id = \? FOR UPDATE`).WillReturnRows(venueRows())
	f.mock.ExpectQuery(`WHERE b.id = \? FOR UPDATE`).WillReturnRows(bookingRows(pending))
	f.mock.ExpectQuery(`b.status = 'confirmed'`).WillReturnRows(bookingRows())
	f.mock.ExpectExec(`UPDATE bookings SET status=\?`).
		WithArgs("confirmed", "pending", "order_11", nil, int64(80000), int64(0), uint64(11)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectCommit()

	b, err := f.svc.SetStatus(context.Background(), 2, 11, model.BookingConfirmed)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPending, b.PaymentStatus)

	f.gateway.On("VerifySignature", "order_11", "pay_1", "sig").Return(true)
	f.mock.ExpectQuery(`WHERE b.payment_order_id = \?`).WillReturnRows(detailRows(confirmed))
	f.gateway.On("FetchCapturedAmount", mock.Anything, "pay_1").Return(int64(80000), nil)
	f.mock.ExpectBegin()
	f.mock.ExpectQuery(`FROM venues v WHERE v.id = \? FOR UPDATE`).WillReturnRows(venueRows())
	f.mock.ExpectQuery(`WHERE b.payment_order_id = \? FOR UPDATE`).WillReturnRows(bookingRows(confirmed))
	f.mock.ExpectQuery(`b.status = 'confirmed'`).WillReturnRows(bookingRows(confirmed))
	f.mock.ExpectExec(`UPDATE bookings SET status=\?`).
		WithArgs("confirmed", "paid", "order_11", "pay_1", int64(80000), int64(80000), uint64(11)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectCommit()

	res, err := f.svc.HandleCallback(context.Background(), successCallback())
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, res.Booking.Status)
	assert.Equal(t, model.PaymentPaid, res.Booking.PaymentStatus)
	assert.Equal(t, "pay_1", res.Booking.TransactionID)
	assert.Equal(t, []model.InteractionType{model.InteractionBook}, f.recorder.calls)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCallbackSlotTakenCancelsPaidBooking(t *testing.T) {
	f := newFixture(t)
	pending := row{id: 11, status: "pending", payStatus: "pending", orderID: "order_11"}
	rival := row{id: 12, start: "15:00:00", end: "17:00:00", status: "confirmed", payStatus: "paid", orderID: "order_12"}

	f.gateway.On("VerifySignature", "order_11", "pay_1", "sig").Return(true)
	f.mock.ExpectQuery(`WHERE b.payment_order_id = \?`).WillReturnRows(detailRows(pending))
	f.gateway.On("FetchCapturedAmount", mock.Anything, "pay_1").Return(int64(0), fmt.Errorf("timeout"))
	f.mock.ExpectBegin()
	f.mock.ExpectQuery(`FOR UPDATE`).WillReturnRows(venueRows())
	f.mock.ExpectQuery(`WHERE b.payment_order_id = \? FOR UPDATE`).WillReturnRows(bookingRows(pending))
	f.mock.ExpectQuery(`b.status = 'confirmed'`).WillReturnRows(bookingRows(rival))
	f.mock.ExpectExec(`UPDATE bookings SET status=\?`).
		WithArgs("cancelled", "paid", "order_11", "pay_1", int64(80000), int64(80000), uint64(11)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectCommit()

	res, err := f.svc.HandleCallback(context.Background(), successCallback())
	assert.ErrorIs(t, err, ErrSlotTaken)
	require.NotNil(t, res)
	assert.Equal(t, model.BookingCancelled, res.Booking.Status)
	assert.Equal(t, model.PaymentPaid, res.Booking.PaymentStatus)
	require.Len(t, f.events.events, 1)
	assert.Equal(t, queue.EventBookingCancelled, f.events.events[0].Type)
	assert.Empty(t, f.recorder.calls)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCallbackDuplicateIsIgnored(t *testing.T) {
	f := newFixture(t)
	paid := row{id: 11, status: "confirmed", payStatus: "paid", orderID: "order_11", paid: 80000}

	f.gateway.On("VerifySignature", "order_11", "pay_1", "sig").Return(true)
	f.mock.ExpectQuery(`WHERE b.payment_order_id = \?`).WillReturnRows(detailRows(paid))
	f.gateway.On("FetchCapturedAmount", mock.Anything, "pay_1").Return(int64(80000), nil)
	f.mock.ExpectBegin()
	f.mock.ExpectQuery(`FOR UPDATE`).WillReturnRows(venueRows())
	f.mock.ExpectQuery(`WHERE b.payment_order_id = \? FOR UPDATE`).WillReturnRows(bookingRows(paid))
	f.mock.ExpectRollback()

	_, err := f.svc.HandleCallback(context.Background(), successCallback())
	assert.ErrorIs(t, err, booking.ErrAlreadyProcessed)
	assert.Empty(t, f.events.events)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCallbackBadSignatureMarksFailed(t *testing.T) {
	f := newFixture(t)
	pending := row{id: 11, status: "pending", payStatus: "pending", orderID: "order_11"}

	f.gateway.On("VerifySignature", "order_11", "pay_1", "forged").Return(false)
	f.mock.ExpectBegin()
	f.mock.ExpectQuery(`WHERE b.payment_order_id = \? FOR UPDATE`).WillReturnRows(bookingRows(pending))
	f.mock.ExpectExec(`UPDATE bookings SET status=\?`).
		WithArgs("pending", "failed", "order_11", nil, int64(80000), int64(0), uint64(11)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectCommit()

	res, err := f.svc.HandleCallback(context.Background(), Callback{OrderID: "order_11", PaymentID: "pay_1", Signature: "forged"})
	assert.ErrorIs(t, err, ErrSignatureInvalid)
	require.NotNil(t, res)
	assert.Equal(t, model.PaymentFailed, res.Booking.PaymentStatus)
	assert.Equal(t, "https://venuehunt.test/v1/bookings/11/retry-payment", res.RetryURL)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCallbackCheckoutFailureWithoutOrder(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.HandleCallback(context.Background(), Callback{ErrorCode: "BAD_REQUEST_ERROR", ErrorDescription: "Payment authorization failed"})
	assert.ErrorIs(t, err, ErrPaymentFailed)
	require.NotNil(t, res)
	assert.Contains(t, res.Message, "declined")
	assert.Nil(t, res.Booking)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRetryPayment(t *testing.T) {
	f := newFixture(t)
	failed := row{id: 11, status: "pending", payStatus: "failed", orderID: "order_11"}

	t.Run("Success", func(t *testing.T) {
		f.mock.ExpectQuery(`WHERE b.id = \?`).WithArgs(uint64(11)).WillReturnRows(detailRows(failed))
		f.gateway.On("CreateOrder", mock.Anything, mock.MatchedBy(func(req payment.OrderRequest) bool {
			return req.AmountMinor == 80000 && req.Receipt == "booking_11_retry"
		})).Return(payment.Order{ID: "order_11b"}, nil).Once()
		f.mock.ExpectBegin()
		f.mock.ExpectQuery(`WHERE b.id = \? FOR UPDATE`).WillReturnRows(bookingRows(failed))
		f.mock.ExpectExec(`UPDATE bookings SET status=\?`).
			WithArgs("pending", "pending", "order_11b", nil, int64(80000), int64(0), uint64(11)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		f.mock.ExpectCommit()

		out, err := f.svc.RetryPayment(context.Background(), 5, 11)
		require.NoError(t, err)
		assert.Equal(t, "order_11b", out.OrderID)
		assert.Equal(t, "20% Advance Payment", out.Description)
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("Not Organizer", func(t *testing.T) {
		f.mock.ExpectQuery(`WHERE b.id = \?`).WillReturnRows(detailRows(failed))
		_, err := f.svc.RetryPayment(context.Background(), 6, 11)
		assert.ErrorIs(t, err, repository.ErrForbidden)
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("Already Paid", func(t *testing.T) {
		f.mock.ExpectQuery(`WHERE b.id = \?`).
			WillReturnRows(detailRows(row{id: 11, status: "confirmed", payStatus: "paid", orderID: "order_11"}))
		_, err := f.svc.RetryPayment(context.Background(), 5, 11)
		assert.ErrorIs(t, err, booking.ErrRetryNotAllowed)
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})
}

func TestCancelBooking(t *testing.T) {
	f := newFixture(t)

	t.Run("Organizer", func(t *testing.T) {
		confirmed := row{id: 11, status: "confirmed", payStatus: "paid", orderID: "order_11", paid: 80000}
		f.mock.ExpectQuery(`WHERE b.id = \?`).WillReturnRows(detailRows(confirmed))
		f.mock.ExpectBegin()
		f.mock.ExpectQuery(`WHERE b.id = \? FOR UPDATE`).WillReturnRows(bookingRows(confirmed))
		f.mock.ExpectExec(`UPDATE bookings SET status=\?`).
			WithArgs("cancelled", "paid", "order_11", nil, int64(80000), int64(80000), uint64(11)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		f.mock.ExpectCommit()

		b, err := f.svc.Cancel(context.Background(), 5, 11)
		require.NoError(t, err)
		assert.Equal(t, model.BookingCancelled, b.Status)
		require.Len(t, f.events.events, 1)
		assert.Equal(t, "cancelled by organizer", f.events.events[0].Reason)
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("Too Late", func(t *testing.T) {
		soon := row{id: 12, date: time.Date(2030, 1, 17, 0, 0, 0, 0, time.UTC), status: "confirmed", payStatus: "paid"}
		f.mock.ExpectQuery(`WHERE b.id = \?`).WillReturnRows(detailRows(soon))
		f.mock.ExpectBegin()
		f.mock.ExpectQuery(`FOR UPDATE`).WillReturnRows(bookingRows(soon))
		f.mock.ExpectRollback()

		_, err := f.svc.Cancel(context.Background(), 5, 12)
		assert.ErrorIs(t, err, booking.ErrTooLateToCancel)
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("Stranger", func(t *testing.T) {
		f.mock.ExpectQuery(`WHERE b.id = \?`).WillReturnRows(detailRows(row{id: 13, status: "pending", payStatus: "pending"}))
		_, err := f.svc.Cancel(context.Background(), 42, 13)
		assert.ErrorIs(t, err, repository.ErrForbidden)
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})
}

func TestOwnerConfirmRechecksSchedule(t *testing.T) {
	f := newFixture(t)
	pending := row{id: 11, status: "pending", payStatus: "pending", orderID: "order_11"}
	rival := row{id: 12, start: "13:00:00", end: "15:00:00", status: "confirmed", payStatus: "paid"}

	f.mock.ExpectQuery(`WHERE b.id = \?`).WillReturnRows(detailRows(pending))
	f.mock.ExpectBegin()
	f.mock.ExpectQuery(`FROM venues v WHERE v.id = \? FOR UPDATE`).WillReturnRows(venueRows())
	f.mock.ExpectQuery(`WHERE b.id = \? FOR UPDATE`).WillReturnRows(bookingRows(pending))
	f.mock.ExpectQuery(`b.status = 'confirmed'`).WillReturnRows(bookingRows(rival))
	f.mock.ExpectRollback()

	_, err := f.svc.SetStatus(context.Background(), 2, 11, model.BookingConfirmed)
	assert.ErrorIs(t, err, ErrSlotTaken)
	assert.NoError(t, f.mock.ExpectationsWereMet())

	f.mock.ExpectQuery(`WHERE b.id = \?`).WillReturnRows(detailRows(pending))
	_, err = f.svc.SetStatus(context.Background(), 3, 11, model.BookingConfirmed)
	assert.ErrorIs(t, err, repository.ErrForbidden)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestGetBookingParticipantsOnly(t *testing.T) {
	f := newFixture(t)
	r := row{id: 11, status: "pending", payStatus: "pending"}

	f.mock.ExpectQuery(`WHERE b.id = \?`).WillReturnRows(detailRows(r))
	d, err := f.svc.Get(context.Background(), 2, 11)
	require.NoError(t, err)
	assert.Equal(t, "org@example.com", d.OrganizerEmail)

	f.mock.ExpectQuery(`WHERE b.id = \?`).WillReturnRows(detailRows(r))
	_, err = f.svc.Get(context.Background(), 9, 11)
	assert.ErrorIs(t, err, repository.ErrForbidden)

	f.mock.ExpectQuery(`WHERE b.id = \?`).WillReturnError(sql.ErrNoRows)
	_, err = f.svc.Get(context.Background(), 5, 99)
	assert.ErrorIs(t, err, repository.ErrBookingNotFound)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}
