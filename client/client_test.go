package client_test

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp/fasthttputil"
	"gorm.io/gorm"

	"projecthub/client"
	"projecthub/config"
	"projecthub/models"
	"projecthub/normalize"
	"projecthub/routes"
)

const password = "password123"

type harness struct {
	t  *testing.T
	db *gorm.DB
	ln *fasthttputil.InmemoryListener
}

// serve runs app on an in-memory listener for the duration of the test.
func serve(t *testing.T, app *fiber.App) *fasthttputil.InmemoryListener {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })
	return ln
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	config.AppConfig = config.Config{
		DBDriver:   "sqlite",
		SQLitePath: ":memory:",
		JWTSecret:  "test-secret",
		JWTTTL:     time.Hour,
	}
	db, err := config.OpenDB(config.AppConfig)
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))

	return &harness{t: t, db: db, ln: serve(t, routes.NewApp(db))}
}

func newClient(ln *fasthttputil.InmemoryListener, store client.SessionStore) *client.Client {
	return client.New("http://hub.test", client.Options{
		Timeout: 5 * time.Second,
		Store:   store,
		Dial:    func(string) (net.Conn, error) { return ln.Dial() },
	})
}

// signUp registers a user with the given role and returns a signed-in client.
func (h *harness) signUp(name, email, role string) *client.Client {
	h.t.Helper()
	c := newClient(h.ln, client.NewMemoryStore())
	s, err := c.Register(context.Background(), name, email, password)
	require.NoError(h.t, err)
	if role != "" {
		require.NoError(h.t, h.db.Model(&models.User{}).Where("id = ?", s.User.ID).Update("role", role).Error)
		_, err = c.Restore(context.Background())
		require.NoError(h.t, err)
	}
	return c
}

func TestSessionLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	store := &client.FileStore{Path: filepath.Join(t.TempDir(), "hub", "session.json")}

	c := newClient(h.ln, store)
	_, err := c.Restore(ctx)
	assert.ErrorIs(t, err, client.ErrNoSession)

	s, err := c.Register(ctx, "Ada", "ada@example.com", password)
	require.NoError(t, err)
	assert.NotEmpty(t, s.Token)
	assert.Equal(t, "Ada", s.User.Name)
	assert.Equal(t, normalize.RoleUser, s.User.Role)
	assert.False(t, s.ExpiresAt.IsZero())

	// A fresh client picks the session up from the store.
	other := newClient(h.ln, store)
	restored, err := other.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, s.User.ID, restored.User.ID)
	assert.Equal(t, s.User.ID, other.Actor().ID)

	require.NoError(t, other.Logout(ctx))
	assert.Nil(t, other.Session())
	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)

	_, err = c.Login(ctx, "ada@example.com", "wrong-password")
	assert.True(t, client.IsStatus(err, fiber.StatusUnauthorized))

	_, err = c.Login(ctx, "ada@example.com", password)
	require.NoError(t, err)
}

func TestRestore_RejectedTokenClearsStore(t *testing.T) {
	h := newHarness(t)
	store := client.NewMemoryStore()
	require.NoError(t, store.Save(&client.Session{Token: "stale", User: normalize.User{ID: "u1"}}))

	c := newClient(h.ln, store)
	_, err := c.Restore(context.Background())
	assert.ErrorIs(t, err, client.ErrNoSession)
	assert.Nil(t, c.Session())

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestUpdateProfileAndPassword(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	store := &client.FileStore{Path: filepath.Join(t.TempDir(), "session.json")}
	c := newClient(h.ln, store)
	_, err := c.Register(ctx, "Ada", "ada@example.com", password)
	require.NoError(t, err)

	name := "Ada Lovelace"
	user, err := c.UpdateProfile(ctx, client.ProfileInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, user.Name)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, name, c.Session().User.Name)

	stored, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, name, stored.User.Name)

	blank := " "
	_, err = c.UpdateProfile(ctx, client.ProfileInput{Name: &blank})
	assert.True(t, client.IsStatus(err, fiber.StatusBadRequest))
	assert.Equal(t, name, c.Session().User.Name)

	err = c.UpdatePassword(ctx, "wrong-password", "new-password-1")
	assert.True(t, client.IsStatus(err, fiber.StatusUnauthorized))
	require.NoError(t, c.UpdatePassword(ctx, password, "new-password-1"))

	_, err = c.Login(ctx, "ada@example.com", password)
	assert.True(t, client.IsStatus(err, fiber.StatusUnauthorized))
	_, err = c.Login(ctx, "ada@example.com", "new-password-1")
	require.NoError(t, err)

	signedOut := newClient(h.ln, nil)
	_, err = signedOut.UpdateProfile(ctx, client.ProfileInput{Name: &name})
	assert.ErrorIs(t, err, client.ErrNoSession)
	assert.ErrorIs(t, signedOut.UpdatePassword(ctx, password, "new-password-1"), client.ErrNoSession)
}

func TestUsers(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	admin := h.signUp("Ann", "ann@example.com", models.RoleAdmin)
	manager := h.signUp("Mia", "mia@example.com", models.RoleManager)

	users, err := admin.Users(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	names := []string{users[0].Name, users[1].Name}
	assert.ElementsMatch(t, []string{"Ann", "Mia"}, names)

	_, err = manager.Users(ctx)
	assert.True(t, client.IsStatus(err, fiber.StatusForbidden))

	// A server without /users falls back to /auth/users.
	stub := newClient(serve(t, stubApp()), nil)
	_, err = stub.Login(ctx, "legacy@example.com", password)
	require.NoError(t, err)
	users, err = stub.Users(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, normalize.User{ID: "u1", Name: "legacy", Role: normalize.RoleManager}, users[0])
}

func TestCallsRequireSession(t *testing.T) {
	h := newHarness(t)
	c := newClient(h.ln, nil)

	_, err := c.Projects(context.Background(), client.ProjectQuery{})
	assert.ErrorIs(t, err, client.ErrNoSession)
	_, err = c.LoadDashboard(context.Background())
	assert.ErrorIs(t, err, client.ErrNoSession)
}

func TestProjectWorkflow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u1 := h.signUp("U1", "u1@example.com", models.RoleManager)
	u2 := h.signUp("U2", "u2@example.com", models.RoleManager)
	viewer := h.signUp("Vic", "vic@example.com", "")

	title := "Site Revamp"
	project, err := u1.CreateProject(ctx, client.ProjectInput{Title: &title, Members: &[]string{u1.Session().User.ID}})
	require.NoError(t, err)
	assert.Equal(t, normalize.ProjectPending, project.Status)

	for i := 0; i < 2; i++ {
		project, err = u1.AddMember(ctx, project.ID, u2.Session().User.ID)
		require.NoError(t, err)
	}
	members, err := viewer.ProjectMembers(ctx, project.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)

	taskTitle := "Design mockups"
	task, err := u1.CreateTask(ctx, client.TaskInput{Title: &taskTitle, ProjectID: &project.ID})
	require.NoError(t, err)
	assert.Equal(t, normalize.TaskTodo, task.Status)

	done := "done"
	task, err = u2.UpdateTask(ctx, task.ID, client.TaskInput{Status: &done})
	require.NoError(t, err)
	assert.Equal(t, normalize.TaskDone, task.Status)

	_, err = viewer.UpdateTask(ctx, task.ID, client.TaskInput{Status: &done})
	assert.True(t, client.IsStatus(err, fiber.StatusForbidden))

	comment, err := u2.CreateComment(ctx, task.ID, "looks good")
	require.NoError(t, err)
	assert.Equal(t, "U2", comment.Author.Name)

	comment, err = u2.UpdateComment(ctx, comment.ID, "looks great")
	require.NoError(t, err)
	assert.Equal(t, "looks great", comment.Text)

	_, err = viewer.Task(ctx, "missing")
	var nf *client.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "task", nf.Entity)

	require.NoError(t, u2.DeleteComment(ctx, comment.ID))
	require.NoError(t, u1.DeleteTask(ctx, task.ID))
	require.NoError(t, u1.DeleteProject(ctx, project.ID))

	_, err = viewer.Project(ctx, project.ID)
	assert.ErrorAs(t, err, &nf)
}

func TestUpdateProject_Members(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u1 := h.signUp("U1", "u1@example.com", models.RoleManager)
	u2 := h.signUp("U2", "u2@example.com", "")

	title := "Site Revamp"
	project, err := u1.CreateProject(ctx, client.ProjectInput{Title: &title, Members: &[]string{u2.Session().User.ID}})
	require.NoError(t, err)
	require.Len(t, project.Members, 1)

	renamed := "Site Revamp v2"
	project, err = u1.UpdateProject(ctx, project.ID, client.ProjectInput{Title: &renamed})
	require.NoError(t, err)
	assert.Equal(t, renamed, project.Title)
	assert.Len(t, project.Members, 1)

	project, err = u1.UpdateProject(ctx, project.ID, client.ProjectInput{Members: &[]string{}})
	require.NoError(t, err)
	assert.Empty(t, project.Members)

	members, err := u1.ProjectMembers(ctx, project.ID)
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestLoadViews(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	manager := h.signUp("Mia", "mia@example.com", models.RoleManager)
	viewer := h.signUp("Vic", "vic@example.com", "")
	viewerID := viewer.Session().User.ID

	title := "P1"
	project, err := manager.CreateProject(ctx, client.ProjectInput{Title: &title, Members: &[]string{manager.Session().User.ID}})
	require.NoError(t, err)

	taskTitle := "Write copy"
	task, err := manager.CreateTask(ctx, client.TaskInput{Title: &taskTitle, ProjectID: &project.ID, AssignedTo: &viewerID})
	require.NoError(t, err)
	otherTitle := "Review"
	_, err = manager.CreateTask(ctx, client.TaskInput{Title: &otherTitle, ProjectID: &project.ID})
	require.NoError(t, err)

	dash, err := viewer.LoadDashboard(ctx)
	require.NoError(t, err)
	assert.Empty(t, dash.Warnings)
	assert.False(t, dash.CanCreateProject)
	require.Len(t, dash.RecentProjects, 1)
	require.Len(t, dash.MyTasks, 1)
	assert.Equal(t, task.ID, dash.MyTasks[0].ID)

	list, err := manager.LoadProjectList(ctx)
	require.NoError(t, err)
	assert.True(t, list.CanCreate)
	require.Len(t, list.Projects, 1)
	assert.Equal(t, 2, list.Projects[0].TaskCount)
	assert.True(t, list.Projects[0].Affordances.CanAddTask)

	detail, err := viewer.LoadProjectDetail(ctx, project.ID)
	require.NoError(t, err)
	assert.Empty(t, detail.Warnings)
	assert.Len(t, detail.Tasks, 2)
	assert.Len(t, detail.Members, 1)
	assert.False(t, detail.Affordances.CanEdit)
	for _, item := range detail.Tasks {
		assert.False(t, item.Affordances.CanEdit)
	}

	detail, err = manager.LoadProjectDetail(ctx, project.ID)
	require.NoError(t, err)
	assert.True(t, detail.Affordances.CanEdit)
	assert.True(t, detail.Affordances.CanManageMembers)
	for _, item := range detail.Tasks {
		assert.True(t, item.Affordances.CanEdit)
	}

	_, err = viewer.LoadProjectDetail(ctx, "missing")
	var nf *client.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "project", nf.Entity)

	_, err = manager.CreateComment(ctx, task.ID, "kickoff")
	assert.True(t, client.IsStatus(err, fiber.StatusForbidden), "manager is neither admin nor assignee")

	taskView, err := viewer.LoadTaskDetail(ctx, task.ID)
	require.NoError(t, err)
	require.NotNil(t, taskView.Project)
	assert.Equal(t, "P1", taskView.Project.Title)
	assert.Empty(t, taskView.Comments)
	assert.False(t, taskView.Affordances.CanComment, "plain users never comment")
	assert.False(t, taskView.Affordances.CanEdit)
}

// stubApp serves hand-written payloads in the loose shapes the normalizer
// accepts, with the secondary endpoints failing.
func stubApp() *fiber.App {
	app := fiber.New()
	app.Post("/api/auth/login", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"token": "t0k3n",
			"user":  fiber.Map{"_id": "u1", "username": "legacy", "role": "MANAGER"},
		})
	})
	app.Get("/api/auth/users", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"users": []fiber.Map{{"_id": "u1", "username": "legacy", "role": "MANAGER"}}})
	})
	app.Get("/api/projects/p1", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"project": fiber.Map{
			"_id":     "p1",
			"name":    "Legacy",
			"members": []string{"u1", "u1", "u2"},
		}})
	})
	app.Get("/api/projects/p1/tasks", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	})
	app.Get("/api/projects/p1/members", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "upstream"})
	})
	return app
}

func TestLoadProjectDetail_SecondaryFailuresDegrade(t *testing.T) {
	ln := serve(t, stubApp())
	c := newClient(ln, nil)
	ctx := context.Background()

	s, err := c.Login(ctx, "legacy@example.com", password)
	require.NoError(t, err)
	assert.Equal(t, normalize.User{ID: "u1", Name: "legacy", Role: normalize.RoleManager}, s.User)

	view, err := c.LoadProjectDetail(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Legacy", view.Project.Title)
	assert.Empty(t, view.Tasks)
	assert.Len(t, view.Warnings, 2)

	// Members fall back to the ids embedded in the project.
	require.Len(t, view.Members, 2)
	assert.Equal(t, "u1", view.Members[0].ID)
	assert.Equal(t, normalize.UnknownUser, view.Members[1].Name)

	// u1 is a member manager, so project-level task creation is offered.
	assert.True(t, view.Affordances.CanAddTask)
}

func TestSecondaryBreakerOpens(t *testing.T) {
	ln := serve(t, stubApp())
	c := client.New("http://hub.test", client.Options{
		Dial: func(string) (net.Conn, error) { return ln.Dial() },
		Breaker: gobreaker.Settings{
			Name:        "test",
			Timeout:     time.Minute,
			ReadyToTrip: func(counts gobreaker.Counts) bool { return counts.ConsecutiveFailures >= 2 },
		},
	})
	ctx := context.Background()
	_, err := c.Login(ctx, "legacy@example.com", password)
	require.NoError(t, err)

	// Members and tasks both fail, tripping the breaker.
	_, err = c.LoadProjectDetail(ctx, "p1")
	require.NoError(t, err)

	view, err := c.LoadProjectDetail(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, view.Warnings, 2)
	for _, w := range view.Warnings {
		assert.Contains(t, w, gobreaker.ErrOpenState.Error())
	}
}
