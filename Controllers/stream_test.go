package Controllers

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"ClientMax/Models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID string `json:"id"`
}

func TestWriteSnapshots(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	changes := make(chan []item, 2)
	changes <- []item{{ID: "a"}, {ID: "b"}}
	close(changes)

	err := writeSnapshots(w, []item{{ID: "a"}}, changes, time.Hour, nil)
	require.NoError(t, err)

	frames := strings.Split(strings.TrimSuffix(buf.String(), "\n\n"), "\n\n")
	require.Len(t, frames, 2)
	assert.Equal(t, "event: snapshot\ndata: [{\"id\":\"a\"}]", frames[0])
	assert.Equal(t, "event: snapshot\ndata: [{\"id\":\"a\"},{\"id\":\"b\"}]", frames[1])
}

func TestWriteSnapshotsStopsOnDone(t *testing.T) {
	var buf bytes.Buffer
	done := make(chan struct{})
	close(done)

	err := writeSnapshots(bufio.NewWriter(&buf), []item{}, make(chan []item), time.Hour, done)
	require.NoError(t, err)
	assert.Equal(t, "event: snapshot\ndata: []\n\n", buf.String())
}

func TestWriteSnapshotsHeartbeat(t *testing.T) {
	var buf bytes.Buffer
	done := make(chan struct{})
	changes := make(chan []item)
	result := make(chan error, 1)
	go func() {
		result <- writeSnapshots(bufio.NewWriter(&buf), []item{}, changes, 10*time.Millisecond, done)
	}()

	time.Sleep(50 * time.Millisecond)
	close(done)
	require.NoError(t, <-result)
	assert.Contains(t, buf.String(), ": ping\n\n")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("client went away")
}

func TestWriteSnapshotsWriteError(t *testing.T) {
	err := writeSnapshots(bufio.NewWriter(failingWriter{}), []item{}, make(chan []item), time.Hour, nil)
	require.Error(t, err)
}

func TestValidatorMessages(t *testing.T) {
	v := NewValidator()

	err := v.Struct(assignmentInput{AssignedTo: "emp-1"})
	var verr *Models.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "title", verr.Field)
	assert.Contains(t, verr.Message, "title is a required field")

	err = v.Struct(assignmentInput{Title: "x", AssignedTo: "emp-1", Priority: "whenever"})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "priority", verr.Field)

	assert.NoError(t, v.Struct(assignmentInput{Title: "x", AssignedTo: "emp-1", Priority: "urgent"}))
}

func TestParseDate(t *testing.T) {
	d, err := parseDate(nil)
	require.NoError(t, err)
	assert.Nil(t, d)

	s := "2025-01-15"
	d, err = parseDate(&s)
	require.NoError(t, err)
	assert.Equal(t, s, time.Time(*d).Format(Models.DateLayout))

	bad := "15/01/2025"
	_, err = parseDate(&bad)
	assert.True(t, Models.IsValidation(err), fmt.Sprint(err))
}
