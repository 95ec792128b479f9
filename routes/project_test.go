package routes

import (
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projecthub/models"
	"projecthub/normalize"
)

func memberIDs(refs []normalize.UserRef) []string {
	ids := make([]string, 0, len(refs))
	for _, r := range refs {
		ids = append(ids, r.ID)
	}
	return ids
}

func TestCreateProject(t *testing.T) {
	env := newTestEnv(t)
	manager := env.register("Mia", "mia@example.com", models.RoleManager)
	user := env.register("Uma", "uma@example.com", "")

	code, data := env.do("POST", "/api/projects", user.Token, map[string]string{"title": "Nope"})
	assert.Equal(t, fiber.StatusForbidden, code)
	assert.Equal(t, "Not authorized to create projects", errorBody(t, data)["error"])

	code, data = env.do("POST", "/api/projects", manager.Token, map[string]string{"description": "no title"})
	assert.Equal(t, fiber.StatusBadRequest, code)
	assert.Equal(t, "title", errorBody(t, data)["field"])

	var project normalize.Project
	env.call("POST", "/api/projects", manager.Token, map[string]interface{}{
		"name":    "Site Revamp",
		"members": []string{user.ID, user.ID},
	}, fiber.StatusCreated, &project)

	assert.NotEmpty(t, project.ID)
	assert.Equal(t, "Site Revamp", project.Title)
	assert.Equal(t, normalize.ProjectPending, project.Status)
	assert.Equal(t, manager.ID, project.CreatedBy.ID)
	assert.Equal(t, "Mia", project.CreatedBy.Name)
	assert.Equal(t, []string{user.ID}, memberIDs(project.Members))

	var count int64
	require.NoError(t, env.db.Model(&models.Project{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateProject_UnknownMember(t *testing.T) {
	env := newTestEnv(t)
	manager := env.register("Mia", "mia@example.com", models.RoleManager)

	code, data := env.do("POST", "/api/projects", manager.Token, map[string]interface{}{
		"title":   "Ghosts",
		"members": []string{"missing"},
	})
	assert.Equal(t, fiber.StatusNotFound, code)
	assert.Equal(t, "User not found", errorBody(t, data)["error"])
}

func TestProjectMembership_AddTwiceKeepsOneEntry(t *testing.T) {
	env := newTestEnv(t)
	u1 := env.register("U1", "u1@example.com", models.RoleManager)
	u2 := env.register("U2", "u2@example.com", "")

	var project normalize.Project
	env.call("POST", "/api/projects", u1.Token, map[string]interface{}{
		"title":   "Site Revamp",
		"status":  "pending",
		"members": []string{},
	}, fiber.StatusCreated, &project)
	assert.Empty(t, project.Members)

	for i := 0; i < 2; i++ {
		env.call("POST", "/api/projects/"+project.ID+"/members", u1.Token,
			map[string]string{"userId": u2.ID}, fiber.StatusOK, &project)
	}

	var resp struct {
		Members []normalize.UserRef `json:"members"`
	}
	env.call("GET", "/api/projects/"+project.ID+"/members", u1.Token, nil, fiber.StatusOK, &resp)
	require.Len(t, resp.Members, 1)
	assert.Equal(t, u2.ID, resp.Members[0].ID)
	assert.Equal(t, "U2", resp.Members[0].Name)

	env.call("DELETE", "/api/projects/"+project.ID+"/members/"+u2.ID, u1.Token, nil, fiber.StatusOK, &project)
	assert.Empty(t, project.Members)

	// Removing a non-member is a no-op.
	env.call("DELETE", "/api/projects/"+project.ID+"/members/"+u2.ID, u1.Token, nil, fiber.StatusOK, nil)
}

func TestProjectMembership_ConcurrentAddsKeepEveryone(t *testing.T) {
	env := newTestEnv(t)
	manager := env.register("Mia", "mia@example.com", models.RoleManager)

	var project normalize.Project
	env.call("POST", "/api/projects", manager.Token, map[string]interface{}{"title": "Busy"}, fiber.StatusCreated, &project)

	const n = 8
	users := make([]account, n)
	for i := range users {
		users[i] = env.register(fmt.Sprintf("U%d", i), fmt.Sprintf("u%d@example.com", i), "")
	}

	codes := make([]int, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range users {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := strings.NewReader(`{"userId":"` + users[i].ID + `"}`)
			req := httptest.NewRequest("POST", "/api/projects/"+project.ID+"/members", body)
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+manager.Token)
			resp, err := env.app.Test(req, -1)
			if err != nil {
				errs[i] = err
				return
			}
			codes[i] = resp.StatusCode
			resp.Body.Close()
		}(i)
	}
	wg.Wait()

	for i := range users {
		require.NoError(t, errs[i])
		assert.Equal(t, fiber.StatusOK, codes[i], "add %d", i)
	}

	var resp struct {
		Members []normalize.UserRef `json:"members"`
	}
	env.call("GET", "/api/projects/"+project.ID+"/members", manager.Token, nil, fiber.StatusOK, &resp)
	want := make([]string, 0, n)
	for _, u := range users {
		want = append(want, u.ID)
	}
	assert.ElementsMatch(t, want, memberIDs(resp.Members))
}

func TestProjectMembership_Errors(t *testing.T) {
	env := newTestEnv(t)
	manager := env.register("Mia", "mia@example.com", models.RoleManager)
	user := env.register("Uma", "uma@example.com", "")

	var project normalize.Project
	env.call("POST", "/api/projects", manager.Token, map[string]string{"title": "P"}, fiber.StatusCreated, &project)

	code, _ := env.do("POST", "/api/projects/"+project.ID+"/members", manager.Token, map[string]string{})
	assert.Equal(t, fiber.StatusBadRequest, code)

	code, _ = env.do("POST", "/api/projects/"+project.ID+"/members", manager.Token, map[string]string{"userId": "missing"})
	assert.Equal(t, fiber.StatusNotFound, code)

	code, _ = env.do("POST", "/api/projects/missing/members", manager.Token, map[string]string{"userId": user.ID})
	assert.Equal(t, fiber.StatusNotFound, code)

	code, _ = env.do("POST", "/api/projects/"+project.ID+"/members", user.Token, map[string]string{"userId": user.ID})
	assert.Equal(t, fiber.StatusForbidden, code)
}

func TestUpdateProject_AnyManagerMayModify(t *testing.T) {
	env := newTestEnv(t)
	creator := env.register("Mia", "mia@example.com", models.RoleManager)
	other := env.register("Max", "max@example.com", models.RoleManager)
	user := env.register("Uma", "uma@example.com", "")

	var project normalize.Project
	env.call("POST", "/api/projects", creator.Token, map[string]string{"title": "P"}, fiber.StatusCreated, &project)

	code, _ := env.do("PUT", "/api/projects/"+project.ID, user.Token, map[string]string{"title": "Hijack"})
	assert.Equal(t, fiber.StatusForbidden, code)

	env.call("PUT", "/api/projects/"+project.ID, other.Token, map[string]interface{}{
		"title":   "Renamed",
		"status":  "In Progress",
		"members": []string{user.ID, other.ID},
	}, fiber.StatusOK, &project)

	assert.Equal(t, "Renamed", project.Title)
	assert.Equal(t, normalize.ProjectInProgress, project.Status)
	assert.ElementsMatch(t, []string{user.ID, other.ID}, memberIDs(project.Members))

	// Members omitted leaves membership untouched.
	env.call("PUT", "/api/projects/"+project.ID, other.Token, map[string]string{"description": "d"}, fiber.StatusOK, &project)
	assert.Len(t, project.Members, 2)
	assert.Equal(t, "Renamed", project.Title)

	code, _ = env.do("PUT", "/api/projects/missing", other.Token, map[string]string{"title": "x"})
	assert.Equal(t, fiber.StatusNotFound, code)
}

func TestGetProject(t *testing.T) {
	env := newTestEnv(t)
	manager := env.register("Mia", "mia@example.com", models.RoleManager)
	user := env.register("Uma", "uma@example.com", "")

	var created normalize.Project
	env.call("POST", "/api/projects", manager.Token, map[string]string{"title": "P"}, fiber.StatusCreated, &created)

	var got normalize.Project
	env.call("GET", "/api/projects/"+created.ID, user.Token, nil, fiber.StatusOK, &got)
	assert.Equal(t, created.ID, got.ID)

	code, data := env.do("GET", "/api/projects/missing", user.Token, nil)
	assert.Equal(t, fiber.StatusNotFound, code)
	assert.Equal(t, "Project not found", errorBody(t, data)["error"])

	code, _ = env.do("GET", "/api/projects/"+created.ID, "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, code)
}

func TestListProjects_SortAndLimit(t *testing.T) {
	env := newTestEnv(t)
	manager := env.register("Mia", "mia@example.com", models.RoleManager)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, title := range []string{"First", "Second", "Third"} {
		var p normalize.Project
		env.call("POST", "/api/projects", manager.Token, map[string]string{"title": title}, fiber.StatusCreated, &p)
		require.NoError(t, env.db.Model(&models.Project{}).Where("id = ?", p.ID).
			UpdateColumn("created_at", base.Add(time.Duration(i)*time.Hour)).Error)
	}

	titles := func(ps []normalize.Project) []string {
		out := make([]string, 0, len(ps))
		for _, p := range ps {
			out = append(out, p.Title)
		}
		return out
	}

	var projects []normalize.Project
	env.call("GET", "/api/projects", manager.Token, nil, fiber.StatusOK, &projects)
	assert.Equal(t, []string{"Third", "Second", "First"}, titles(projects))

	env.call("GET", "/api/projects?sort=createdAt:asc&limit=2", manager.Token, nil, fiber.StatusOK, &projects)
	assert.Equal(t, []string{"First", "Second"}, titles(projects))
}

func TestDeleteProject_Cascades(t *testing.T) {
	env := newTestEnv(t)
	admin := env.register("Root", adminEmail, "")
	manager := env.register("Mia", "mia@example.com", models.RoleManager)
	user := env.register("Uma", "uma@example.com", "")

	var project normalize.Project
	env.call("POST", "/api/projects", manager.Token, map[string]interface{}{
		"title":   "Doomed",
		"members": []string{manager.ID},
	}, fiber.StatusCreated, &project)

	var task normalize.Task
	env.call("POST", "/api/projects/"+project.ID+"/tasks", manager.Token,
		map[string]string{"title": "T"}, fiber.StatusCreated, &task)
	env.call("POST", "/api/comments/task/"+task.ID, admin.Token,
		map[string]string{"text": "note"}, fiber.StatusCreated, nil)

	code, _ := env.do("DELETE", "/api/projects/"+project.ID, user.Token, nil)
	assert.Equal(t, fiber.StatusForbidden, code)

	env.call("DELETE", "/api/projects/"+project.ID, manager.Token, nil, fiber.StatusOK, nil)

	for _, model := range []interface{}{&models.Project{}, &models.Task{}, &models.Comment{}, &models.ProjectMember{}} {
		var count int64
		require.NoError(t, env.db.Model(model).Count(&count).Error)
		assert.Zero(t, count, "%T", model)
	}

	code, _ = env.do("DELETE", "/api/projects/"+project.ID, manager.Token, nil)
	assert.Equal(t, fiber.StatusNotFound, code)
}
