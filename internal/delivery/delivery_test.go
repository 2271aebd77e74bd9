package delivery

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/singlethrowdata/scout-anomaly-detection/internal/config"
	"github.com/singlethrowdata/scout-anomaly-detection/internal/model"
)

func TestLogDelivererAllClear(t *testing.T) {
	logger := logrus.New()
	d := NewLogDeliverer(logger)

	digest := &model.Digest{
		ReferenceDate: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		AllClear:      true,
	}

	require.NoError(t, d.Deliver(context.Background(), digest))
}

func TestSMTPDelivererMissingConfig(t *testing.T) {
	cfg := config.Default()
	d := NewSMTPDeliverer(cfg, logrus.New())

	digest := &model.Digest{ReferenceDate: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)}
	err := d.Deliver(context.Background(), digest)

	var deliveryErr *model.DeliveryError
	require.ErrorAs(t, err, &deliveryErr)
	require.Equal(t, "smtp", deliveryErr.ProviderID)
}
