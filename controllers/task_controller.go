package controller

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"projecthub/middleware"
	"projecthub/models"
	"projecthub/normalize"
	"projecthub/policy"
	"projecthub/utils"
)

type taskRequest struct {
	Title       *string `json:"title" validate:"omitempty,notblank,max=200"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
	Priority    *string `json:"priority" validate:"omitempty,oneof=low medium high"`
	ProjectID   *string `json:"projectId" validate:"omitempty,notblank"`
}

type TaskController struct {
	DB     *gorm.DB
	Logger *logrus.Entry
}

func NewTaskController(db *gorm.DB, logger *logrus.Entry) *TaskController {
	return &TaskController{DB: db, Logger: logger}
}

// ListTasks filters by assignedTo (an id or "me"), status and projectId.
func (tc *TaskController) ListTasks(c *fiber.Ctx) error {
	query := withTaskRelations(tc.DB).Order("tasks.created_at DESC")

	if assignee := strings.TrimSpace(c.Query("assignedTo")); assignee != "" {
		if assignee == "me" {
			assignee = middleware.CurrentActor(c).ID
		}
		query = query.Where("tasks.assigned_to_id = ?", assignee)
	}
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		query = query.Where("tasks.status = ?", normalize.TaskStatus(status))
	}
	if projectID := strings.TrimSpace(c.Query("projectId")); projectID != "" {
		query = query.Where("tasks.project_id = ?", projectID)
	}

	var tasks []models.Task
	if err := query.Find(&tasks).Error; err != nil {
		return utils.HandleError(c, err)
	}
	return tc.respondList(c, tasks)
}

func (tc *TaskController) GetProjectTasks(c *fiber.Ctx) error {
	projectID := param(c, "projectId", "id")
	if _, err := findProject(tc.DB, projectID); err != nil {
		return utils.HandleError(c, err)
	}

	var tasks []models.Task
	if err := withTaskRelations(tc.DB).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&tasks).Error; err != nil {
		return utils.HandleError(c, err)
	}
	return tc.respondList(c, tasks)
}

func (tc *TaskController) GetTask(c *fiber.Ctx) error {
	task, err := findTask(tc.DB, param(c, "id"))
	if err != nil {
		return utils.HandleError(c, err)
	}
	return tc.respond(c, fiber.StatusOK, task)
}

// CreateTask takes the project from the route when present, otherwise from
// the body.
func (tc *TaskController) CreateTask(c *fiber.Ctx) error {
	raw, err := parseBody(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	patch := normalize.TaskChanges(raw)
	if routeID := param(c, "projectId", "id"); routeID != "" {
		patch.ProjectID = &routeID
	}

	if patch.Title == nil {
		return utils.HandleError(c, utils.Invalid("title", "title is required"))
	}
	if patch.ProjectID == nil || *patch.ProjectID == "" {
		return utils.HandleError(c, utils.Invalid("projectId", "projectId is required"))
	}
	if err := validateTaskPatch(patch); err != nil {
		return utils.HandleError(c, err)
	}

	project, err := findProject(tc.DB, *patch.ProjectID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	if patch.AssigneeSet && patch.AssigneeID != "" {
		if _, err := findUser(tc.DB, patch.AssigneeID); err != nil {
			return utils.HandleError(c, err)
		}
	}

	projectRec, err := projectRecord(project)
	if err != nil {
		return utils.HandleError(c, err)
	}
	actor := middleware.CurrentActor(c)
	if !policy.Evaluate(actor, policy.OpCreate, policy.TaskSubject{Project: &projectRec}) {
		return utils.HandleError(c, utils.Forbidden("create tasks in this project"))
	}

	task := models.Task{
		Title:     *patch.Title,
		Status:    normalize.TaskTodo,
		Priority:  normalize.PriorityMedium,
		ProjectID: project.ID,
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.Status != nil {
		task.Status = *patch.Status
	}
	if patch.Priority != nil {
		task.Priority = *patch.Priority
	}
	if patch.DueDateSet {
		task.DueDate = patch.DueDate
	}
	if patch.AssigneeSet && patch.AssigneeID != "" {
		task.AssignedToID = utils.Pointer(patch.AssigneeID)
	}

	if err := tc.DB.Omit(clause.Associations).Create(&task).Error; err != nil {
		return utils.HandleError(c, err)
	}

	tc.Logger.WithFields(logrus.Fields{
		"task_id":    task.ID,
		"project_id": project.ID,
		"user_id":    actor.ID,
	}).Info("Task created")

	created, err := findTask(tc.DB, task.ID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return tc.respond(c, fiber.StatusCreated, created)
}

// UpdateTask applies the fields present in the body. Moving a task to another
// project also requires permission to create tasks there.
func (tc *TaskController) UpdateTask(c *fiber.Ctx) error {
	raw, err := parseBody(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	patch := normalize.TaskChanges(raw)
	if err := validateTaskPatch(patch); err != nil {
		return utils.HandleError(c, err)
	}

	task, err := findTask(tc.DB, param(c, "id"))
	if err != nil {
		return utils.HandleError(c, err)
	}
	taskRec, projectRec, err := tc.taskContext(task)
	if err != nil {
		return utils.HandleError(c, err)
	}

	var target *normalize.Project
	if patch.ProjectID != nil && *patch.ProjectID != task.ProjectID {
		dest, err := findProject(tc.DB, *patch.ProjectID)
		if err != nil {
			return utils.HandleError(c, err)
		}
		rec, err := projectRecord(dest)
		if err != nil {
			return utils.HandleError(c, err)
		}
		target = &rec
	}
	if patch.AssigneeSet && patch.AssigneeID != "" {
		if _, err := findUser(tc.DB, patch.AssigneeID); err != nil {
			return utils.HandleError(c, err)
		}
	}

	actor := middleware.CurrentActor(c)
	if !policy.Evaluate(actor, policy.OpUpdate, policy.TaskSubject{Task: taskRec, Project: projectRec}) {
		return utils.HandleError(c, utils.Forbidden("update this task"))
	}
	if target != nil && !policy.Evaluate(actor, policy.OpCreate, policy.TaskSubject{Project: target}) {
		return utils.HandleError(c, utils.Forbidden("move this task to that project"))
	}

	updates := map[string]interface{}{}
	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if patch.Status != nil {
		updates["status"] = *patch.Status
	}
	if patch.Priority != nil {
		updates["priority"] = *patch.Priority
	}
	if patch.DueDateSet {
		updates["due_date"] = patch.DueDate
	}
	if patch.AssigneeSet {
		if patch.AssigneeID == "" {
			updates["assigned_to_id"] = nil
		} else {
			updates["assigned_to_id"] = patch.AssigneeID
		}
	}
	if target != nil {
		updates["project_id"] = target.ID
	}

	if len(updates) > 0 {
		if err := tc.DB.Model(&models.Task{}).Where("id = ?", task.ID).Updates(updates).Error; err != nil {
			return utils.HandleError(c, err)
		}
	}

	updated, err := findTask(tc.DB, task.ID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return tc.respond(c, fiber.StatusOK, updated)
}

// DeleteTask removes the task and its comments.
func (tc *TaskController) DeleteTask(c *fiber.Ctx) error {
	task, err := findTask(tc.DB, param(c, "id"))
	if err != nil {
		return utils.HandleError(c, err)
	}
	taskRec, projectRec, err := tc.taskContext(task)
	if err != nil {
		return utils.HandleError(c, err)
	}

	actor := middleware.CurrentActor(c)
	if !policy.Evaluate(actor, policy.OpDelete, policy.TaskSubject{Task: taskRec, Project: projectRec}) {
		return utils.HandleError(c, utils.Forbidden("delete this task"))
	}

	err = tc.DB.Transaction(func(tx *gorm.DB) error {
		return deleteTasks(tx, []string{task.ID})
	})
	if err != nil {
		return utils.HandleError(c, err)
	}

	tc.Logger.WithFields(logrus.Fields{"task_id": task.ID, "user_id": actor.ID}).Info("Task deleted")
	return c.JSON(fiber.Map{"message": "Task deleted successfully"})
}

// taskContext normalizes the task and loads its project with members for the
// policy check. A missing project yields a nil project.
func (tc *TaskController) taskContext(task *models.Task) (normalize.Task, *normalize.Project, error) {
	taskRec, err := taskRecord(task)
	if err != nil {
		return normalize.Task{}, nil, err
	}
	project, err := findProject(tc.DB, task.ProjectID)
	if err != nil {
		if utils.StatusFor(err) == fiber.StatusNotFound {
			return taskRec, nil, nil
		}
		return normalize.Task{}, nil, err
	}
	projectRec, err := projectRecord(project)
	if err != nil {
		return normalize.Task{}, nil, err
	}
	return taskRec, &projectRec, nil
}

func (tc *TaskController) respond(c *fiber.Ctx, status int, task *models.Task) error {
	rec, err := taskRecord(task)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.Status(status).JSON(rec)
}

func (tc *TaskController) respondList(c *fiber.Ctx, tasks []models.Task) error {
	recs, err := taskRecords(tasks)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(recs)
}

func validateTaskPatch(patch normalize.TaskPatch) error {
	if patch.DueDateInvalid {
		return utils.Invalid("dueDate", "dueDate must be a valid date")
	}
	return utils.ValidateStruct(taskRequest{
		Title:       patch.Title,
		Description: patch.Description,
		Priority:    patch.Priority,
		ProjectID:   patch.ProjectID,
	})
}
