package CronJobs

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"ClientMax/Models"
	"ClientMax/Repository"
	"ClientMax/Store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestKeepAlivePing(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/keepalive", r.URL.Path)
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	k := NewKeepAlive(srv.URL, time.Minute)
	require.NotNil(t, k)
	require.NoError(t, k.Ping(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestKeepAlivePingFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := NewKeepAlive(srv.URL, time.Minute).Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestKeepAliveDisabledWithoutURL(t *testing.T) {
	k := NewKeepAlive("", time.Minute)
	assert.Nil(t, k)
	assert.NoError(t, k.Start())
	k.Stop()
}

func TestKeepAliveStartStop(t *testing.T) {
	k := NewKeepAlive("http://127.0.0.1:1", 5*time.Minute)
	require.NoError(t, k.Start())
	k.Stop()
}

type staticLister struct {
	items []Models.WorkAssignment
	err   error
}

func (s staticLister) List(context.Context, Store.AssignmentFilter) ([]Models.WorkAssignment, error) {
	return s.items, s.err
}

type recordingPoster struct {
	summary Repository.Summary
	overdue []Models.WorkAssignment
	err     error
	calls   int
}

func (p *recordingPoster) PostDigest(_ context.Context, summary Repository.Summary, overdue []Models.WorkAssignment, _ time.Time) error {
	p.calls++
	p.summary = summary
	p.overdue = overdue
	return p.err
}

type recordingMailer struct {
	to         []string
	subject    string
	attachment Models.Attachment
}

func (m *recordingMailer) SendReport(_ context.Context, to []string, subject, _ string, attachment Models.Attachment) error {
	m.to = to
	m.subject = subject
	m.attachment = attachment
	return nil
}

func digestFixture(t *testing.T) (time.Time, []Models.WorkAssignment) {
	now := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
	late := Models.CalendarDate(now.AddDate(0, 0, -2))
	due := Models.CalendarDate(now)
	return now, []Models.WorkAssignment{
		{ID: "a-1", Title: "Late", Status: Models.StatusPending, DueDate: &late, CreatedAt: now, UpdatedAt: now},
		{ID: "a-2", Title: "Today", Status: Models.StatusInProgress, DueDate: &due, CreatedAt: now, UpdatedAt: now},
		{ID: "a-3", Title: "Done", Status: Models.StatusCompleted, CreatedAt: now, UpdatedAt: now},
	}
}

func TestDigestRun(t *testing.T) {
	now, items := digestFixture(t)
	poster := &recordingPoster{}
	mailer := &recordingMailer{}

	d := NewDigest("0 0 9 * * *", staticLister{items: items}, poster)
	d.Mailer = mailer
	d.Recipients = []string{"ceo@example.com"}
	d.Now = func() time.Time { return now }

	require.NoError(t, d.Run(context.Background()))

	assert.Equal(t, 1, poster.calls)
	assert.Equal(t, Repository.Summary{Total: 3, DueToday: 1, Pending: 1, InProgress: 1, Completed: 1}, poster.summary)
	require.Len(t, poster.overdue, 1)
	assert.Equal(t, "a-1", poster.overdue[0].ID)

	assert.Equal(t, []string{"ceo@example.com"}, mailer.to)
	assert.Equal(t, "Assignments report 2025-01-15", mailer.subject)
	assert.Equal(t, "assignments-2025-01-15.xlsx", mailer.attachment.Filename)

	f, err := excelize.OpenReader(bytes.NewReader(mailer.attachment.Data))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Assignments")
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}

func TestDigestRunPosterErrorStillEmails(t *testing.T) {
	now, items := digestFixture(t)
	poster := &recordingPoster{err: errors.New("slack down")}
	mailer := &recordingMailer{}

	d := NewDigest("0 0 9 * * *", staticLister{items: items}, poster)
	d.Mailer = mailer
	d.Recipients = []string{"ceo@example.com"}
	d.Now = func() time.Time { return now }

	err := d.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slack down")
	assert.NotEmpty(t, mailer.attachment.Data)
}

func TestDigestRunListError(t *testing.T) {
	poster := &recordingPoster{}
	d := NewDigest("0 0 9 * * *", staticLister{err: errors.New("db closed")}, poster)

	require.Error(t, d.Run(context.Background()))
	assert.Equal(t, 0, poster.calls)
}

func TestDigestInvalidSchedule(t *testing.T) {
	d := NewDigest("not a schedule", staticLister{}, &recordingPoster{})
	require.Error(t, d.Start())
}
