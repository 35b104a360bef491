package controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"

	"coursemarket/config"
	"coursemarket/models"
	"coursemarket/routes"
	"coursemarket/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testEnv struct {
	app        *fiber.App
	db         *gorm.DB
	cfg        *config.Config
	userToken  string
	adminToken string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{
		JWTSecret:  "testsecret",
		ServerPort: "8080",
	}

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, utils.Migrate(db))

	app := fiber.New()
	routes.SetupRoutes(app, db, cfg)

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	require.NoError(t, err)

	user := models.User{Username: "student", Email: "student@example.com", PasswordHash: string(hash)}
	require.NoError(t, db.Create(&user).Error)
	admin := models.User{Username: "teacher", Email: "teacher@example.com", PasswordHash: string(hash), Role: "admin"}
	require.NoError(t, db.Create(&admin).Error)

	userToken, err := utils.GenerateJWTToken(user.ID, cfg)
	require.NoError(t, err)
	adminToken, err := utils.GenerateJWTToken(admin.ID, cfg)
	require.NoError(t, err)

	return &testEnv{app: app, db: db, cfg: cfg, userToken: userToken, adminToken: adminToken}
}

func (env *testEnv) request(t *testing.T, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := env.app.Test(req)
	require.NoError(t, err)

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	return resp.StatusCode, result
}

// seedCourse creates a 4-lesson course over HTTP with the admin token and
// returns the course id and its lesson ids.
func (env *testEnv) seedCourse(t *testing.T) (uint, []uint) {
	t.Helper()

	status, result := env.request(t, "POST", "/api/admin/courses", env.adminToken, map[string]interface{}{
		"title":     "Distributed Systems",
		"topic":     "Engineering",
		"published": true,
	})
	require.Equal(t, fiber.StatusOK, status)
	courseID := uint(result["course"].(map[string]interface{})["ID"].(float64))

	var lessonIDs []uint
	for i := 1; i <= 4; i++ {
		status, result = env.request(t, "POST", fmt.Sprintf("/api/admin/courses/%d/lessons", courseID), env.adminToken, map[string]interface{}{
			"title":       fmt.Sprintf("Lesson %d", i),
			"duration_ms": 6000,
		})
		require.Equal(t, fiber.StatusOK, status)
		lessonIDs = append(lessonIDs, uint(result["lesson"].(map[string]interface{})["ID"].(float64)))
	}
	return courseID, lessonIDs
}

func TestEnrollAndListEnrollments(t *testing.T) {
	env := newTestEnv(t)
	courseID, _ := env.seedCourse(t)

	status, result := env.request(t, "POST", fmt.Sprintf("/api/courses/%d/enroll", courseID), env.userToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	enrollment := result["enrollment"].(map[string]interface{})
	assert.Equal(t, "active", enrollment["status"])
	assert.Equal(t, "free", enrollment["payment_status"])
	assert.NotEmpty(t, enrollment["enrollment_id"])

	// Enrolling twice is a conflict.
	status, _ = env.request(t, "POST", fmt.Sprintf("/api/courses/%d/enroll", courseID), env.userToken, nil)
	assert.Equal(t, fiber.StatusConflict, status)

	status, result = env.request(t, "GET", "/api/enrollments", env.userToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, result["enrollments"].([]interface{}), 1)
}

func TestReportProgressOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	courseID, lessonIDs := env.seedCourse(t)

	status, _ := env.request(t, "POST", fmt.Sprintf("/api/courses/%d/enroll", courseID), env.userToken, nil)
	require.Equal(t, fiber.StatusOK, status)

	status, result := env.request(t, "POST", fmt.Sprintf("/api/courses/%d/progress", courseID), env.userToken, map[string]interface{}{
		"lesson_id":   lessonIDs[0],
		"position_ms": 5400,
		"duration_ms": 6000,
	})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Progress updated", result["message"])

	enrollment := result["enrollment"].(map[string]interface{})
	assert.Equal(t, float64(25), enrollment["progress_percent"])
	lessons := enrollment["lessons_progress"].([]interface{})
	require.Len(t, lessons, 1)
	assert.Equal(t, true, lessons[0].(map[string]interface{})["completed"])

	// A stale low-position report leaves everything in place.
	status, result = env.request(t, "POST", fmt.Sprintf("/api/courses/%d/progress", courseID), env.userToken, map[string]interface{}{
		"lesson_id":   lessonIDs[0],
		"position_ms": 100,
		"duration_ms": 6000,
	})
	require.Equal(t, fiber.StatusOK, status)
	enrollment = result["enrollment"].(map[string]interface{})
	assert.Equal(t, float64(25), enrollment["progress_percent"])
	lessons = enrollment["lessons_progress"].([]interface{})
	require.Len(t, lessons, 1)
	assert.Equal(t, float64(5400), lessons[0].(map[string]interface{})["watched_duration_ms"])
}

func TestReportProgressValidation(t *testing.T) {
	env := newTestEnv(t)
	courseID, lessonIDs := env.seedCourse(t)

	status, _ := env.request(t, "POST", fmt.Sprintf("/api/courses/%d/enroll", courseID), env.userToken, nil)
	require.Equal(t, fiber.StatusOK, status)

	cases := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing lesson", map[string]interface{}{"position_ms": 100, "duration_ms": 6000}},
		{"zero duration", map[string]interface{}{"lesson_id": lessonIDs[0], "position_ms": 100, "duration_ms": 0}},
		{"negative position", map[string]interface{}{"lesson_id": lessonIDs[0], "position_ms": -1, "duration_ms": 6000}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, _ := env.request(t, "POST", fmt.Sprintf("/api/courses/%d/progress", courseID), env.userToken, tc.body)
			assert.Equal(t, fiber.StatusBadRequest, status)
		})
	}
}

func TestReportProgressAfterUnenroll(t *testing.T) {
	env := newTestEnv(t)
	courseID, lessonIDs := env.seedCourse(t)

	status, _ := env.request(t, "POST", fmt.Sprintf("/api/courses/%d/enroll", courseID), env.userToken, nil)
	require.Equal(t, fiber.StatusOK, status)

	status, result := env.request(t, "DELETE", fmt.Sprintf("/api/courses/%d/enroll", courseID), env.userToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "unenrolled", result["enrollment"].(map[string]interface{})["status"])

	status, _ = env.request(t, "POST", fmt.Sprintf("/api/courses/%d/progress", courseID), env.userToken, map[string]interface{}{
		"lesson_id":   lessonIDs[0],
		"position_ms": 100,
		"duration_ms": 6000,
	})
	assert.Equal(t, fiber.StatusConflict, status)
}

func TestEnrollmentRoutesRequireAuth(t *testing.T) {
	env := newTestEnv(t)
	courseID, _ := env.seedCourse(t)

	status, _ := env.request(t, "POST", fmt.Sprintf("/api/courses/%d/enroll", courseID), "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = env.request(t, "GET", "/api/enrollments", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	env := newTestEnv(t)

	status, _ := env.request(t, "POST", "/api/admin/courses", env.userToken, map[string]interface{}{
		"title": "Not allowed",
	})
	assert.Equal(t, fiber.StatusForbidden, status)
}

func TestRegisterLoginAndEnrollFlow(t *testing.T) {
	env := newTestEnv(t)
	courseID, lessonIDs := env.seedCourse(t)

	status, result := env.request(t, "POST", "/api/auth/register", "", map[string]string{
		"username": "newstudent",
		"email":    "newstudent@example.com",
		"password": "password123",
	})
	require.Equal(t, fiber.StatusOK, status)
	token := result["token"].(string)
	require.NotEmpty(t, token)

	status, _ = env.request(t, "POST", fmt.Sprintf("/api/courses/%d/enroll", courseID), token, nil)
	require.Equal(t, fiber.StatusOK, status)

	status, result = env.request(t, "POST", fmt.Sprintf("/api/courses/%d/progress", courseID), token, map[string]interface{}{
		"lesson_id":      lessonIDs[0],
		"position_ms":    0,
		"duration_ms":    6000,
		"completed_hint": true,
	})
	require.Equal(t, fiber.StatusOK, status)
	enrollment := result["enrollment"].(map[string]interface{})
	assert.Equal(t, float64(25), enrollment["progress_percent"])
}
