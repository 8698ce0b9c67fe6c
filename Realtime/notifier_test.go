package Realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilter(t *testing.T) {
	col, val, err := ParseFilter("work_date=eq.2025-01-15")
	require.NoError(t, err)
	assert.Equal(t, "work_date", col)
	assert.Equal(t, "2025-01-15", val)

	_, _, err = ParseFilter("work_date")
	assert.Error(t, err)
	_, _, err = ParseFilter("work_date=gt.2025-01-15")
	assert.Error(t, err)
}

func TestPublishMatchesTableAndFilter(t *testing.T) {
	n := NewNotifier(4)

	all, err := n.Subscribe(Spec{Event: Any, Table: "today_work"})
	require.NoError(t, err)
	defer all.Unsubscribe()

	today, err := n.Subscribe(Spec{Event: Any, Table: "today_work", Filter: "work_date=eq.2025-01-15"})
	require.NoError(t, err)
	defer today.Unsubscribe()

	inserts, err := n.Subscribe(Spec{Event: Insert, Table: "ceo_work_assignments"})
	require.NoError(t, err)
	defer inserts.Unsubscribe()

	n.Publish(Event{Type: Update, Table: "today_work", Columns: map[string]string{"work_date": "2025-01-14"}})
	n.Publish(Event{Type: Insert, Table: "today_work", Columns: map[string]string{"work_date": "2025-01-15"}})
	n.Publish(Event{Type: Delete, Table: "ceo_work_assignments"})

	assert.Len(t, all.C, 2)
	assert.Len(t, today.C, 1)
	assert.Len(t, inserts.C, 0)

	e := <-today.C
	assert.Equal(t, Insert, e.Type)
	assert.False(t, e.CommitTimestamp.IsZero())
}

func TestPublishCoalescesWhenBufferFull(t *testing.T) {
	n := NewNotifier(1)
	sub, err := n.Subscribe(Spec{Table: "ceo_work_assignments"})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	for i := 0; i < 5; i++ {
		n.Publish(Event{Type: Update, Table: "ceo_work_assignments"})
	}
	assert.Len(t, sub.C, 1)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	n := NewNotifier(1)
	sub, err := n.Subscribe(Spec{Table: "today_work"})
	require.NoError(t, err)
	assert.Equal(t, 1, n.Subscribers())

	sub.Unsubscribe()
	sub.Unsubscribe()
	assert.Equal(t, 0, n.Subscribers())

	_, ok := <-sub.C
	assert.False(t, ok)

	// publishing after release must not panic
	n.Publish(Event{Type: Insert, Table: "today_work"})
}

func TestSubscribeRejectsBadSpec(t *testing.T) {
	n := NewNotifier(0)
	_, err := n.Subscribe(Spec{})
	assert.Error(t, err)
	_, err = n.Subscribe(Spec{Table: "today_work", Filter: "bad"})
	assert.Error(t, err)
}
