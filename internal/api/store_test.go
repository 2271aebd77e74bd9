package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/singlethrowdata/scout-anomaly-detection/internal/model"
)

func TestDigestStoreGetAndList(t *testing.T) {
	store := NewDigestStore()

	d1 := &model.Digest{ReferenceDate: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), TotalAlerts: 1}
	d2 := &model.Digest{ReferenceDate: time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC), TotalAlerts: 2}
	store.Add(d1)
	store.Add(d2)

	got, ok := store.Get(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, 1, got.TotalAlerts)

	list := store.List(0)
	require.Len(t, list, 2)
	assert.Equal(t, 2, list[0].TotalAlerts, "List returns newest first")
}

func TestDigestStoreNotifiesSubscribers(t *testing.T) {
	store := NewDigestStore()
	sub := &AlertSubscriber{ID: "s1", Channel: make(chan model.Alert, 4)}
	store.Subscribe(sub)

	store.Add(&model.Digest{
		ReferenceDate: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		Alerts:        []model.Alert{{PropertyID: "P1"}, {PropertyID: "P2"}},
	})

	first := <-sub.Channel
	second := <-sub.Channel
	assert.Equal(t, "P1", first.PropertyID)
	assert.Equal(t, "P2", second.PropertyID)

	store.Unsubscribe(sub)
	_, ok := <-sub.Channel
	assert.False(t, ok, "channel closes on unsubscribe")
}
