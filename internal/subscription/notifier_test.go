package subscription

import (
	"context"
	"errors"
	"testing"

	"flatup/internal/metrics"
	"flatup/internal/plan"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestNotifier_Notify(t *testing.T) {
	metrics.NotificationsTotal.Reset()
	mailer := new(MockMailer)
	broker, _ := plan.Lookup("broker")

	mailer.On("SendSubscriptionConfirmation", mock.Anything, "b@example.com", "Bina", "Broker Plan", int64(100000)).Return(nil)

	NewNotifier(mailer).Notify(context.Background(), Recipient{Email: "b@example.com", Name: "Bina"}, broker, broker.Amount)

	mailer.AssertExpectations(t)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.NotificationsTotal.WithLabelValues("queued")))
}

func TestNotifier_FailureIsSwallowed(t *testing.T) {
	metrics.NotificationsTotal.Reset()
	mailer := new(MockMailer)
	owner, _ := plan.Lookup("owner")

	mailer.On("SendSubscriptionConfirmation", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("queue unavailable"))

	assert.NotPanics(t, func() {
		NewNotifier(mailer).Notify(context.Background(), Recipient{Email: "o@example.com"}, owner, owner.Amount)
	})
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.NotificationsTotal.WithLabelValues("failed")))
}

func TestNotifier_SurvivesCancelledRequest(t *testing.T) {
	mailer := new(MockMailer)
	owner, _ := plan.Lookup("owner")

	mailer.On("SendSubscriptionConfirmation", mock.MatchedBy(func(ctx context.Context) bool {
		return ctx.Err() == nil
	}), mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	NewNotifier(mailer).Notify(ctx, Recipient{Email: "o@example.com"}, owner, owner.Amount)

	mailer.AssertExpectations(t)
}

func TestNotifier_NoEmailSkips(t *testing.T) {
	mailer := new(MockMailer)
	owner, _ := plan.Lookup("owner")

	NewNotifier(mailer).Notify(context.Background(), Recipient{}, owner, owner.Amount)

	mailer.AssertNotCalled(t, "SendSubscriptionConfirmation", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
