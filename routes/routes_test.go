package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"worksync/config"
	"worksync/middleware"
	"worksync/models"
	"worksync/utils"
)

var dbSeq int64

var fixedNow = time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)

type apiClient struct {
	t   *testing.T
	app *fiber.App
	db  *gorm.DB
}

type apiResponse struct {
	Status int
	Body   map[string]interface{}
}

func (r apiResponse) data() map[string]interface{} {
	m, _ := r.Body["data"].(map[string]interface{})
	return m
}

func (r apiResponse) list() []interface{} {
	l, _ := r.Body["data"].([]interface{})
	return l
}

func newClient(t *testing.T) *apiClient {
	t.Helper()

	config.AppConfig.JWTSecret = "routes-secret"
	config.AppConfig.AccessTokenTTL = time.Hour
	config.AppConfig.RefreshTokenTTL = 24 * time.Hour

	dsn := fmt.Sprintf("file:routes_%d?mode=memory&cache=shared", atomic.AddInt64(&dbSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, models.Migrate(db))

	app := fiber.New()
	SetupRoutes(app, db, Options{
		Location: time.UTC,
		Now:      func() time.Time { return fixedNow },
		Metrics:  middleware.NewMetrics(prometheus.NewRegistry()),
	})
	return &apiClient{t: t, app: app, db: db}
}

// worker creates an account and returns its worker id and access token.
func (a *apiClient) worker(email string, role models.Role) (uint, string) {
	a.t.Helper()

	user := models.User{Email: email, PasswordHash: "x"}
	require.NoError(a.t, a.db.Omit("Worker").Create(&user).Error)
	worker := models.Worker{UserID: user.ID, Role: role}
	require.NoError(a.t, a.db.Omit("User", "Team").Create(&worker).Error)

	access, _, err := utils.GenerateJWTToken(&user)
	require.NoError(a.t, err)
	return worker.ID, access
}

func (a *apiClient) do(method, path, token string, body interface{}) apiResponse {
	a.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.app.Test(req, -1)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	out := apiResponse{Status: resp.StatusCode}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out.Body)
	}
	return out
}

func id(v interface{}) float64 {
	f, _ := v.(float64)
	return f
}

func TestHealthAndAuthRequired(t *testing.T) {
	api := newClient(t)

	assert.Equal(t, fiber.StatusOK, api.do("GET", "/health", "", nil).Status)
	assert.Equal(t, fiber.StatusUnauthorized, api.do("GET", "/api/v1/workers", "", nil).Status)
	assert.Equal(t, fiber.StatusNotFound, api.do("GET", "/nowhere", "", nil).Status)
}

func TestRegisterLoginAndMe(t *testing.T) {
	api := newClient(t)

	resp := api.do("POST", "/auth/register", "", map[string]string{
		"email":      "New@Example.com",
		"password":   "long-enough",
		"first_name": "Ada",
	})
	require.Equal(t, fiber.StatusCreated, resp.Status)
	worker := resp.data()["worker"].(map[string]interface{})
	assert.Equal(t, "new@example.com", worker["email"])
	assert.Equal(t, "NORMAL", worker["role"])
	assert.Nil(t, worker["team"])

	dup := api.do("POST", "/auth/register", "", map[string]string{"email": "new@example.com", "password": "long-enough"})
	assert.Equal(t, fiber.StatusConflict, dup.Status)

	bad := api.do("POST", "/auth/login", "", map[string]string{"email": "new@example.com", "password": "wrong-one"})
	assert.Equal(t, fiber.StatusUnauthorized, bad.Status)

	login := api.do("POST", "/auth/login", "", map[string]string{"email": "new@example.com", "password": "long-enough"})
	require.Equal(t, fiber.StatusOK, login.Status)
	token := login.data()["access_token"].(string)

	me := api.do("GET", "/auth/me", token, nil)
	require.Equal(t, fiber.StatusOK, me.Status)
	assert.Equal(t, "new@example.com", me.data()["email"])

	refresh := api.do("POST", "/auth/refresh", "", map[string]string{"refresh_token": login.data()["refresh_token"].(string)})
	assert.Equal(t, fiber.StatusOK, refresh.Status)

	require.Equal(t, fiber.StatusOK, api.do("POST", "/auth/logout", token, nil).Status)
	assert.Equal(t, fiber.StatusUnauthorized, api.do("GET", "/auth/me", token, nil).Status)
}

func TestTeamMembershipIsExclusive(t *testing.T) {
	api := newClient(t)
	_, admin := api.worker("admin@x.io", models.RoleAdminTeam)
	_, manager := api.worker("manager@x.io", models.RoleManager)
	alice, _ := api.worker("alice@x.io", models.RoleNormal)
	bob, _ := api.worker("bob@x.io", models.RoleNormal)

	forbidden := api.do("POST", "/api/v1/teams", manager, map[string]interface{}{"title": "Ops"})
	assert.Equal(t, fiber.StatusForbidden, forbidden.Status)

	created := api.do("POST", "/api/v1/teams", admin, map[string]interface{}{
		"title":   "Backend",
		"workers": []uint{alice},
	})
	require.Equal(t, fiber.StatusCreated, created.Status)
	teamID := id(created.data()["id"])

	conflict := api.do("POST", "/api/v1/teams", admin, map[string]interface{}{
		"title":   "Frontend",
		"workers": []uint{bob, alice},
	})
	require.Equal(t, fiber.StatusConflict, conflict.Status)
	assert.Equal(t, "team_conflict", conflict.Body["code"])
	details := conflict.Body["details"].(map[string]interface{})
	assert.Equal(t, []interface{}{"alice@x.io"}, details["workers"])

	// bob stayed teamless because the rejected request changed nothing
	worker := api.do("GET", fmt.Sprintf("/api/v1/workers/%d", bob), admin, nil)
	require.Equal(t, fiber.StatusOK, worker.Status)
	assert.Nil(t, worker.data()["team_id"])

	// updating the same team with its own member passes
	updated := api.do("PUT", fmt.Sprintf("/api/v1/teams/%.0f", teamID), admin, map[string]interface{}{
		"title":   "Backend",
		"workers": []uint{alice, bob},
	})
	require.Equal(t, fiber.StatusOK, updated.Status)
	assert.Len(t, updated.data()["workers"], 2)

	assert.Equal(t, fiber.StatusBadRequest, api.do("GET", "/api/v1/teams/abc", admin, nil).Status)
	assert.Equal(t, fiber.StatusNotFound, api.do("GET", "/api/v1/teams/999", admin, nil).Status)

	require.Equal(t, fiber.StatusNoContent, api.do("DELETE", fmt.Sprintf("/api/v1/teams/%.0f", teamID), admin, nil).Status)
	worker = api.do("GET", fmt.Sprintf("/api/v1/workers/%d", alice), admin, nil)
	assert.Nil(t, worker.data()["team_id"])
}

func TestMeetingDoubleBooking(t *testing.T) {
	api := newClient(t)
	_, carol := api.worker("carol@x.io", models.RoleNormal)
	dave, daveToken := api.worker("dave@x.io", models.RoleNormal)
	erin, erinToken := api.worker("erin@x.io", models.RoleNormal)

	first := api.do("POST", "/api/v1/meetings", carol, map[string]interface{}{
		"description": "Planning",
		"datetime":    "2025-07-02T10:00",
		"workers":     []uint{dave},
	})
	require.Equal(t, fiber.StatusCreated, first.Status)
	meetingID := id(first.data()["id"])
	assert.Len(t, first.data()["workers"], 2)

	clash := api.do("POST", "/api/v1/meetings", erinToken, map[string]interface{}{
		"datetime": "2025-07-02T10:00:00Z",
		"workers":  []uint{dave},
	})
	require.Equal(t, fiber.StatusConflict, clash.Status)
	assert.Equal(t, "meeting_conflict", clash.Body["code"])

	// a minute later is a different slot
	later := api.do("POST", "/api/v1/meetings", erinToken, map[string]interface{}{
		"datetime": "2025-07-02T10:01",
		"workers":  []uint{dave},
	})
	assert.Equal(t, fiber.StatusCreated, later.Status)

	// saving the meeting in place does not clash with itself
	same := api.do("PUT", fmt.Sprintf("/api/v1/meetings/%.0f", meetingID), carol, map[string]interface{}{
		"description": "Planning v2",
		"datetime":    "2025-07-02T10:00",
		"workers":     []uint{dave},
	})
	assert.Equal(t, fiber.StatusOK, same.Status)

	past := api.do("POST", "/api/v1/meetings", carol, map[string]interface{}{
		"datetime": "2025-06-30T10:00",
		"workers":  []uint{erin},
	})
	assert.Equal(t, fiber.StatusBadRequest, past.Status)

	notOwner := api.do("DELETE", fmt.Sprintf("/api/v1/meetings/%.0f", meetingID), daveToken, nil)
	assert.Equal(t, fiber.StatusForbidden, notOwner.Status)

	mine := api.do("GET", "/api/v1/meetings/me", daveToken, nil)
	require.Equal(t, fiber.StatusOK, mine.Status)
	assert.Len(t, mine.list(), 2)
	assert.Equal(t, fiber.StatusBadRequest, api.do("GET", "/api/v1/meetings/me?done=2", daveToken, nil).Status)

	calendar := api.do("GET", "/api/v1/workers/me/calendar?date=2025-07-02", daveToken, nil)
	require.Equal(t, fiber.StatusOK, calendar.Status)
	assert.Len(t, calendar.data()["meetings"], 2)
	assert.NotEmpty(t, calendar.data()["table"])

	both := api.do("GET", "/api/v1/workers/me/calendar?date=2025-07-02&month=2025-07", daveToken, nil)
	assert.Equal(t, fiber.StatusBadRequest, both.Status)
}

func TestTaskLifecycleAndEvaluation(t *testing.T) {
	api := newClient(t)
	_, manager := api.worker("manager@x.io", models.RoleManager)
	executor, executorToken := api.worker("exec@x.io", models.RoleNormal)
	_, outsider := api.worker("outsider@x.io", models.RoleNormal)

	assert.Equal(t, fiber.StatusForbidden, api.do("POST", "/api/v1/tasks", outsider, map[string]interface{}{
		"title":    "Nope",
		"deadline": "2025-07-05T18:00",
	}).Status)

	created := api.do("POST", "/api/v1/tasks", manager, map[string]interface{}{
		"title":    "Ship release",
		"deadline": "2025-07-05T18:00",
		"executor": executor,
	})
	require.Equal(t, fiber.StatusCreated, created.Status)
	assert.Equal(t, "OPEN", created.data()["status"])
	taskPath := fmt.Sprintf("/api/v1/tasks/%.0f", id(created.data()["id"]))

	notDone := api.do("POST", taskPath+"/evaluations", manager, map[string]int{"score": 4})
	require.Equal(t, fiber.StatusConflict, notDone.Status)
	assert.Equal(t, "task must be done before it is evaluated", notDone.Body["error"])

	require.Equal(t, fiber.StatusOK, api.do("PATCH", taskPath, manager, map[string]string{"status": "DONE"}).Status)

	assert.Equal(t, fiber.StatusBadRequest, api.do("POST", taskPath+"/evaluations", manager, map[string]int{"score": 6}).Status)
	evaluated := api.do("POST", taskPath+"/evaluations", manager, map[string]int{"score": 4})
	require.Equal(t, fiber.StatusCreated, evaluated.Status)
	evaluationPath := fmt.Sprintf("%s/evaluations/%.0f", taskPath, id(evaluated.data()["id"]))

	again := api.do("POST", taskPath+"/evaluations", manager, map[string]int{"score": 5})
	require.Equal(t, fiber.StatusConflict, again.Status)
	assert.Equal(t, "evaluation_create_conflict", again.Body["code"])

	// executor and status are frozen, other fields are not
	unassign := api.do("PATCH", taskPath, manager, map[string]interface{}{"executor": nil})
	require.Equal(t, fiber.StatusConflict, unassign.Status)
	assert.Equal(t, "task_update_conflict", unassign.Body["code"])
	reopen := api.do("PATCH", taskPath, manager, map[string]string{"status": "AT_WORK"})
	assert.Equal(t, fiber.StatusConflict, reopen.Status)
	renamed := api.do("PATCH", taskPath, manager, map[string]interface{}{"title": "Ship release 2", "executor": executor})
	require.Equal(t, fiber.StatusOK, renamed.Status)
	assert.Equal(t, "Ship release 2", renamed.data()["title"])

	partialPut := api.do("PUT", taskPath, manager, map[string]string{"title": "Only title"})
	assert.Equal(t, fiber.StatusBadRequest, partialPut.Status)

	seen := api.do("GET", taskPath, executorToken, nil)
	require.Equal(t, fiber.StatusOK, seen.Status)
	assert.NotNil(t, seen.data()["evaluation"])
	hidden := api.do("GET", taskPath, outsider, nil)
	require.Equal(t, fiber.StatusOK, hidden.Status)
	assert.Nil(t, hidden.data()["evaluation"])

	// created_at comes from the database clock, not the pinned one
	month := time.Now().UTC().Format(utils.MonthLayout)
	average := api.do("GET", "/api/v1/workers/me/evaluations/average?month="+month, executorToken, nil)
	require.Equal(t, fiber.StatusOK, average.Status)
	assert.EqualValues(t, 1, average.data()["count"])

	rescored := api.do("PATCH", evaluationPath, manager, map[string]int{"score": 2})
	require.Equal(t, fiber.StatusOK, rescored.Status)
	assert.EqualValues(t, 2, rescored.data()["score"])

	// removing the evaluation unfreezes the task
	require.Equal(t, fiber.StatusNoContent, api.do("DELETE", evaluationPath, manager, nil).Status)
	assert.Equal(t, fiber.StatusOK, api.do("PATCH", taskPath, manager, map[string]string{"status": "AT_WORK"}).Status)

	mine := api.do("GET", "/api/v1/tasks/me", executorToken, nil)
	require.Equal(t, fiber.StatusOK, mine.Status)
	assert.Len(t, mine.list(), 1)

	require.Equal(t, fiber.StatusNoContent, api.do("DELETE", taskPath, manager, nil).Status)
	assert.Equal(t, fiber.StatusNotFound, api.do("GET", taskPath, manager, nil).Status)
}

func TestComments(t *testing.T) {
	api := newClient(t)
	_, manager := api.worker("manager@x.io", models.RoleManager)
	_, other := api.worker("other@x.io", models.RoleNormal)

	created := api.do("POST", "/api/v1/tasks", manager, map[string]interface{}{
		"title":    "Write docs",
		"deadline": "2025-07-05T18:00",
	})
	require.Equal(t, fiber.StatusCreated, created.Status)
	commentsPath := fmt.Sprintf("/api/v1/tasks/%.0f/comments", id(created.data()["id"]))

	assert.Equal(t, fiber.StatusBadRequest, api.do("GET", "/api/v1/tasks/abc/comments", other, nil).Status)
	assert.Equal(t, fiber.StatusNotFound, api.do("GET", "/api/v1/tasks/999/comments", other, nil).Status)

	comment := api.do("POST", commentsPath, other, map[string]string{"text": "Started"})
	require.Equal(t, fiber.StatusCreated, comment.Status)
	commentPath := fmt.Sprintf("%s/%.0f", commentsPath, id(comment.data()["id"]))

	assert.Equal(t, fiber.StatusForbidden, api.do("PATCH", commentPath, manager, map[string]string{"text": "Hijacked"}).Status)
	edited := api.do("PATCH", commentPath, other, map[string]string{"text": "Halfway"})
	require.Equal(t, fiber.StatusOK, edited.Status)
	assert.Equal(t, "Halfway", edited.data()["text"])

	list := api.do("GET", commentsPath, manager, nil)
	require.Equal(t, fiber.StatusOK, list.Status)
	assert.Len(t, list.list(), 1)

	assert.Equal(t, fiber.StatusNoContent, api.do("DELETE", commentPath, other, nil).Status)
	assert.Equal(t, fiber.StatusNotFound, api.do("GET", commentPath, other, nil).Status)
}
