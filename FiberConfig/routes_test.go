package FiberConfig

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"ClientMax/Access"
	"ClientMax/Config"
	"ClientMax/Controllers"
	"ClientMax/Models"
	"ClientMax/Realtime"
	"ClientMax/Reports"
	"ClientMax/Store"
	"ClientMax/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type capturingNotifier struct {
	mu     sync.Mutex
	titles []string
}

func (n *capturingNotifier) NotifyAssignment(_ context.Context, a Models.WorkAssignment) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.titles = append(n.titles, a.Title)
	return nil
}

func (n *capturingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.titles)
}

type fixture struct {
	app      *fiber.App
	stores   *Store.Stores
	auth     *middleware.Authenticator
	notifier *capturingNotifier
	ceo      Models.Employee
	sara     Models.Employee
	omar     Models.Employee
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := Models.Connect("sqlite", "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	feed := Realtime.NewNotifier(8)
	stores := Store.New(db, feed)
	gate := Access.NewGate("CEO", []string{"ceo@example.com"}, true)
	dir := t.TempDir()
	cfg := &Config.Config{
		Port:             "0",
		JWTSecret:        testSecret,
		CORSOrigins:      []string{"http://localhost:5173"},
		KeepAliveEnabled: true,
		RequestLogFile:   filepath.Join(dir, "requests.log"),
		ErrorLogFile:     filepath.Join(dir, "errors.log"),
	}
	notifier := &capturingNotifier{}

	f := &fixture{
		app: NewApp(Dependencies{
			Config:    cfg,
			Stores:    stores,
			Feed:      feed,
			Gate:      gate,
			Notifiers: []Controllers.AssignmentNotifier{notifier},
		}),
		stores:   stores,
		auth:     middleware.NewAuthenticator(testSecret, stores.Employees, gate),
		notifier: notifier,
	}

	ctx := context.Background()
	f.ceo, err = stores.Employees.Create(ctx, Models.NewEmployee{Name: "Junaid", Email: "ceo@example.com", Role: "CEO", Password: "admin123"})
	require.NoError(t, err)
	f.sara, err = stores.Employees.Create(ctx, Models.NewEmployee{Name: "Sara", Email: "sara@example.com", Role: "Manager", Password: "secret1"})
	require.NoError(t, err)
	f.omar, err = stores.Employees.Create(ctx, Models.NewEmployee{Name: "Omar", Email: "omar@example.com", Role: "Manager", Password: "secret2"})
	require.NoError(t, err)
	return f
}

func (f *fixture) token(t *testing.T, e Models.Employee) string {
	t.Helper()
	token, _, err := f.auth.IssueToken(e, time.Now())
	require.NoError(t, err)
	return token
}

func (f *fixture) do(t *testing.T, as *Models.Employee, method, path string, body interface{}) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if as != nil {
		req.Header.Set("Authorization", "Bearer "+f.token(t, *as))
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

func TestHealthRoutes(t *testing.T) {
	f := setup(t)

	resp := f.do(t, nil, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	decode(t, resp, &body)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "ClientMax Pro API", body["service"])
	assert.Equal(t, "active", body["keep_alive"])

	resp = f.do(t, nil, http.MethodGet, "/favicon.ico", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.do(t, nil, http.MethodGet, "/api/keepalive", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLogin(t *testing.T) {
	f := setup(t)

	resp := f.do(t, nil, http.MethodPost, "/api/login", map[string]string{"email": "ceo@example.com", "password": "admin123"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == middleware.CookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	var body struct {
		Employee   Models.Employee `json:"employee"`
		Privileged bool            `json:"privileged"`
		Token      string          `json:"token"`
	}
	decode(t, resp, &body)
	assert.Equal(t, f.ceo.ID, body.Employee.ID)
	assert.True(t, body.Privileged)

	// the cookie alone authenticates
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: middleware.CookieName, Value: cookie.Value})
	me, err := f.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, me.StatusCode)

	resp = f.do(t, nil, http.MethodPost, "/api/login", map[string]string{"email": "ceo@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = f.do(t, nil, http.MethodPost, "/api/login", map[string]string{"email": "not-an-email", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUnauthenticated(t *testing.T) {
	f := setup(t)

	resp := f.do(t, nil, http.MethodGet, "/api/assignments", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/api/assignments", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMePrivilege(t *testing.T) {
	f := setup(t)

	var body struct {
		Privileged bool `json:"privileged"`
	}
	decode(t, f.do(t, &f.ceo, http.MethodGet, "/api/me", nil), &body)
	assert.True(t, body.Privileged)

	decode(t, f.do(t, &f.sara, http.MethodGet, "/api/me", nil), &body)
	assert.False(t, body.Privileged)
}

func TestEmployeeRoutes(t *testing.T) {
	f := setup(t)

	var list []Models.Employee
	decode(t, f.do(t, &f.sara, http.MethodGet, "/api/employees", nil), &list)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"Junaid", "Omar", "Sara"}, []string{list[0].Name, list[1].Name, list[2].Name})

	resp := f.do(t, &f.sara, http.MethodPost, "/api/employees", map[string]string{"name": "New", "email": "new@example.com"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = f.do(t, &f.ceo, http.MethodPost, "/api/employees", map[string]string{"name": "New", "email": "new@example.com", "password": "secret9"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = f.do(t, &f.ceo, http.MethodPost, "/api/employees", map[string]string{"name": "Dup", "email": "new@example.com"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// self edit is allowed, role changes are not
	resp = f.do(t, &f.sara, http.MethodPatch, "/api/employees/"+f.sara.ID, map[string]string{"name": "Sara K"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = f.do(t, &f.sara, http.MethodPatch, "/api/employees/"+f.sara.ID, map[string]string{"role": "CEO"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp = f.do(t, &f.sara, http.MethodPatch, "/api/employees/"+f.omar.ID, map[string]string{"name": "X"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestClientRoutes(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	for _, c := range []Models.Client{
		{CompanyName: "Acme", HealthScore: 90, HealthStatus: Models.HealthExcellent},
		{CompanyName: "Bolt", HealthScore: 20, HealthStatus: Models.HealthCritical},
		{CompanyName: "Crane", HealthScore: 45, HealthStatus: Models.HealthWarning},
	} {
		_, err := f.stores.Clients.Create(ctx, c)
		require.NoError(t, err)
	}

	var all []Models.Client
	decode(t, f.do(t, &f.sara, http.MethodGet, "/api/clients", nil), &all)
	assert.Len(t, all, 3)

	var atRisk []Models.Client
	decode(t, f.do(t, &f.sara, http.MethodGet, "/api/clients/at-risk", nil), &atRisk)
	require.Len(t, atRisk, 2)
	assert.Equal(t, "Bolt", atRisk[0].CompanyName)
	assert.Equal(t, "Crane", atRisk[1].CompanyName)

	var one Models.Client
	decode(t, f.do(t, &f.sara, http.MethodGet, "/api/clients/"+all[0].ID, nil), &one)
	assert.Equal(t, all[0].CompanyName, one.CompanyName)

	resp := f.do(t, &f.sara, http.MethodGet, "/api/clients/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAssignmentLifecycle(t *testing.T) {
	f := setup(t)

	resp := f.do(t, &f.ceo, http.MethodPost, "/api/assignments", map[string]interface{}{
		"title":       "Audit Q1 ads",
		"assigned_to": f.sara.ID,
		"priority":    "high",
		"due_date":    time.Now().Format(Models.DateLayout),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created Models.WorkAssignment
	decode(t, resp, &created)
	assert.Equal(t, Models.StatusPending, created.Status)
	assert.Equal(t, f.ceo.ID, created.AssignedBy)
	require.NotNil(t, created.AssignedToEmployee)
	assert.Equal(t, "Sara", created.AssignedToEmployee.Name)

	require.Eventually(t, func() bool { return f.notifier.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	// a second assignment for someone else
	resp = f.do(t, &f.ceo, http.MethodPost, "/api/assignments", map[string]interface{}{
		"title":       "Refresh listings",
		"assigned_to": f.omar.ID,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var other Models.WorkAssignment
	decode(t, resp, &other)

	var ceoList []Models.WorkAssignment
	decode(t, f.do(t, &f.ceo, http.MethodGet, "/api/assignments", nil), &ceoList)
	assert.Len(t, ceoList, 2)

	var saraList []Models.WorkAssignment
	decode(t, f.do(t, &f.sara, http.MethodGet, "/api/assignments", nil), &saraList)
	require.Len(t, saraList, 1)
	assert.Equal(t, created.ID, saraList[0].ID)

	// other people's assignments are hidden from Sara
	resp = f.do(t, &f.sara, http.MethodGet, "/api/assignments/"+other.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var detail struct {
		Assignment  Models.WorkAssignment     `json:"assignment"`
		Transitions []Models.AssignmentStatus `json:"transitions"`
	}
	decode(t, f.do(t, &f.sara, http.MethodGet, "/api/assignments/"+created.ID, nil), &detail)
	assert.Equal(t, created.ID, detail.Assignment.ID)
	assert.Equal(t, Access.AllowedTransitions(Models.StatusPending), detail.Transitions)

	// PATCH status to completed does not stamp completed_at
	resp = f.do(t, &f.sara, http.MethodPatch, "/api/assignments/"+created.ID, map[string]string{"status": "completed"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var patched Models.WorkAssignment
	decode(t, resp, &patched)
	assert.Equal(t, Models.StatusCompleted, patched.Status)
	assert.Nil(t, patched.CompletedAt)

	// the status endpoint does
	resp = f.do(t, &f.sara, http.MethodPost, "/api/assignments/"+created.ID+"/status", map[string]string{"status": "completed"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var completed Models.WorkAssignment
	decode(t, resp, &completed)
	assert.NotNil(t, completed.CompletedAt)

	// the assignee may not retitle
	resp = f.do(t, &f.sara, http.MethodPatch, "/api/assignments/"+created.ID, map[string]string{"title": "Mine now"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	var active []Models.WorkAssignment
	decode(t, f.do(t, &f.ceo, http.MethodGet, "/api/assignments?active=true", nil), &active)
	require.Len(t, active, 1)
	assert.Equal(t, other.ID, active[0].ID)

	var summary struct {
		Total     int `json:"total"`
		Completed int `json:"completed"`
		Pending   int `json:"pending"`
	}
	decode(t, f.do(t, &f.ceo, http.MethodGet, "/api/assignments/summary", nil), &summary)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.Completed)
	assert.Equal(t, 1, summary.Pending)

	var byStatus []Models.WorkAssignment
	decode(t, f.do(t, &f.ceo, http.MethodGet, "/api/assignments?status=completed", nil), &byStatus)
	require.Len(t, byStatus, 1)
	assert.Equal(t, created.ID, byStatus[0].ID)

	resp = f.do(t, &f.sara, http.MethodDelete, "/api/assignments/"+created.ID, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp = f.do(t, &f.ceo, http.MethodDelete, "/api/assignments/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = f.do(t, &f.ceo, http.MethodDelete, "/api/assignments/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAssignmentValidation(t *testing.T) {
	f := setup(t)

	resp := f.do(t, &f.sara, http.MethodPost, "/api/assignments", map[string]string{"title": "x", "assigned_to": f.sara.ID})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = f.do(t, &f.ceo, http.MethodPost, "/api/assignments", map[string]string{"title": "x", "assigned_to": f.sara.ID, "priority": "whenever"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, &f.ceo, http.MethodPost, "/api/assignments", map[string]string{"assigned_to": f.sara.ID})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, &f.ceo, http.MethodPost, "/api/assignments", map[string]string{"title": "x", "assigned_to": "nobody"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, &f.ceo, http.MethodGet, "/api/assignments?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, &f.ceo, http.MethodGet, "/api/assignments/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	assert.Equal(t, 0, f.notifier.count())
}

func TestAssignmentExport(t *testing.T) {
	f := setup(t)
	resp := f.do(t, &f.ceo, http.MethodPost, "/api/assignments", map[string]string{"title": "Audit Q1 ads", "assigned_to": f.sara.ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = f.do(t, &f.sara, http.MethodGet, "/api/assignments/export", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = f.do(t, &f.ceo, http.MethodGet, "/api/assignments/export", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, Reports.XLSXContentType, resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "assignments-")
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	// xlsx files are zip archives
	assert.Equal(t, []byte("PK"), data[:2])
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestReopeningCompletedAssignmentIsLogged(t *testing.T) {
	f := setup(t)
	var out lockedBuffer
	log.SetOutput(&out)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	resp := f.do(t, &f.ceo, http.MethodPost, "/api/assignments", map[string]string{"title": "Audit Q1 ads", "assigned_to": f.sara.ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created Models.WorkAssignment
	decode(t, resp, &created)

	for _, status := range []string{"in_progress", "completed"} {
		resp = f.do(t, &f.sara, http.MethodPost, "/api/assignments/"+created.ID+"/status", map[string]string{"status": status})
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	assert.NotContains(t, out.String(), "outside the offered transitions")

	// terminal statuses are not locked, but the move is recorded
	resp = f.do(t, &f.ceo, http.MethodPost, "/api/assignments/"+created.ID+"/status", map[string]string{"status": "pending"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var reopened Models.WorkAssignment
	decode(t, resp, &reopened)
	assert.Equal(t, Models.StatusPending, reopened.Status)
	assert.Contains(t, out.String(), "moved from completed to pending outside the offered transitions")
}

func TestTodayWorkRoutes(t *testing.T) {
	f := setup(t)

	resp := f.do(t, &f.sara, http.MethodPost, "/api/today-work", map[string]string{"work_text": "x", "assigned_to": f.sara.ID})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = f.do(t, &f.ceo, http.MethodPost, "/api/today-work", map[string]string{"work_text": "Reply to Acme", "assigned_to": f.sara.ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var saraItem Models.DailyWorkItem
	decode(t, resp, &saraItem)
	assert.Equal(t, "Sara", saraItem.AssignedToName)
	assert.Equal(t, "Junaid", saraItem.AssignedByName)

	resp = f.do(t, &f.ceo, http.MethodPost, "/api/today-work", map[string]string{"work_text": "Call Bolt", "assigned_to": f.omar.ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var omarItem Models.DailyWorkItem
	decode(t, resp, &omarItem)

	var today struct {
		Date  string                 `json:"date"`
		Items []Models.DailyWorkItem `json:"items"`
	}
	decode(t, f.do(t, &f.sara, http.MethodGet, "/api/today-work", nil), &today)
	assert.Equal(t, time.Now().Format(Models.DateLayout), today.Date)
	require.Len(t, today.Items, 1)
	assert.Equal(t, saraItem.ID, today.Items[0].ID)

	decode(t, f.do(t, &f.ceo, http.MethodGet, "/api/today-work", nil), &today)
	assert.Len(t, today.Items, 2)

	resp = f.do(t, &f.sara, http.MethodPatch, "/api/today-work/"+saraItem.ID, map[string]string{"work_text": "Replied"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var edited Models.DailyWorkItem
	decode(t, resp, &edited)
	assert.Equal(t, "Replied", edited.WorkText)

	resp = f.do(t, &f.sara, http.MethodPatch, "/api/today-work/"+omarItem.ID, map[string]string{"work_text": "mine"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.do(t, &f.sara, http.MethodDelete, "/api/today-work/"+saraItem.ID, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp = f.do(t, &f.ceo, http.MethodDelete, "/api/today-work/"+saraItem.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLogsRequirePrivilege(t *testing.T) {
	f := setup(t)

	resp := f.do(t, &f.sara, http.MethodGet, "/api/logs", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = f.do(t, &f.ceo, http.MethodGet, "/api/logs", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
