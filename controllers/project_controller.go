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

type projectRequest struct {
	Title       *string `json:"title" validate:"omitempty,notblank,max=200"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
}

type AddMemberRequest struct {
	UserID string `json:"userId" validate:"required,notblank"`
}

type ProjectController struct {
	DB     *gorm.DB
	Logger *logrus.Entry
}

func NewProjectController(db *gorm.DB, logger *logrus.Entry) *ProjectController {
	return &ProjectController{DB: db, Logger: logger}
}

// ListProjects returns projects newest first unless sort=createdAt:asc.
func (pc *ProjectController) ListProjects(c *fiber.Ctx) error {
	query := withMembers(pc.DB)

	order := "created_at DESC"
	if strings.EqualFold(strings.TrimSpace(c.Query("sort")), "createdAt:asc") {
		order = "created_at ASC"
	}
	query = query.Order(order)

	if limit := c.QueryInt("limit", 0); limit > 0 {
		query = query.Limit(limit)
	}

	var projects []models.Project
	if err := query.Find(&projects).Error; err != nil {
		return utils.HandleError(c, err)
	}

	recs, err := projectRecords(projects)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(recs)
}

func (pc *ProjectController) GetProject(c *fiber.Ctx) error {
	project, err := findProject(pc.DB, param(c, "id"))
	if err != nil {
		return utils.HandleError(c, err)
	}
	return pc.respond(c, fiber.StatusOK, project)
}

func (pc *ProjectController) CreateProject(c *fiber.Ctx) error {
	raw, err := parseBody(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	patch := normalize.ProjectChanges(raw)
	if patch.Title == nil {
		return utils.HandleError(c, utils.Invalid("title", "title is required"))
	}
	if err := utils.ValidateStruct(projectRequest{Title: patch.Title, Description: patch.Description}); err != nil {
		return utils.HandleError(c, err)
	}

	memberIDs := memberIDsFrom(raw)
	if err := pc.requireUsers(memberIDs); err != nil {
		return utils.HandleError(c, err)
	}

	actor := middleware.CurrentActor(c)
	if !policy.Evaluate(actor, policy.OpCreate, (*normalize.Project)(nil)) {
		return utils.HandleError(c, utils.Forbidden("create projects"))
	}

	project := models.Project{
		Title:       *patch.Title,
		Status:      normalize.ProjectPending,
		CreatedByID: actor.ID,
	}
	if patch.Description != nil {
		project.Description = *patch.Description
	}
	if patch.Status != nil {
		project.Status = *patch.Status
	}

	err = pc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&project).Error; err != nil {
			return err
		}
		return addMembers(tx, project.ID, memberIDs)
	})
	if err != nil {
		return utils.HandleError(c, err)
	}

	pc.Logger.WithFields(logrus.Fields{
		"project_id": project.ID,
		"user_id":    actor.ID,
		"members":    len(memberIDs),
	}).Info("Project created")

	created, err := findProject(pc.DB, project.ID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return pc.respond(c, fiber.StatusCreated, created)
}

// UpdateProject applies the fields present in the body. A members list, when
// present, replaces the membership set.
func (pc *ProjectController) UpdateProject(c *fiber.Ctx) error {
	raw, err := parseBody(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	patch := normalize.ProjectChanges(raw)
	if err := utils.ValidateStruct(projectRequest{Title: patch.Title, Description: patch.Description}); err != nil {
		return utils.HandleError(c, err)
	}

	replaceMembers := raw.Has("members")
	memberIDs := memberIDsFrom(raw)

	id := param(c, "id")
	project, err := findProject(pc.DB, id)
	if err != nil {
		return utils.HandleError(c, err)
	}
	if replaceMembers {
		if err := pc.requireUsers(memberIDs); err != nil {
			return utils.HandleError(c, err)
		}
	}

	rec, err := projectRecord(project)
	if err != nil {
		return utils.HandleError(c, err)
	}
	actor := middleware.CurrentActor(c)
	if !policy.Evaluate(actor, policy.OpUpdate, rec) {
		return utils.HandleError(c, utils.Forbidden("update this project"))
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

	err = pc.DB.Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(&models.Project{}).Where("id = ?", project.ID).Updates(updates).Error; err != nil {
				return err
			}
		}
		if !replaceMembers {
			return nil
		}
		if err := tx.Where("project_id = ?", project.ID).Delete(&models.ProjectMember{}).Error; err != nil {
			return err
		}
		return addMembers(tx, project.ID, memberIDs)
	})
	if err != nil {
		return utils.HandleError(c, err)
	}

	updated, err := findProject(pc.DB, project.ID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return pc.respond(c, fiber.StatusOK, updated)
}

// DeleteProject removes the project with its tasks, their comments and the
// membership rows.
func (pc *ProjectController) DeleteProject(c *fiber.Ctx) error {
	id := param(c, "id")
	project, err := findProject(pc.DB, id)
	if err != nil {
		return utils.HandleError(c, err)
	}

	rec, err := projectRecord(project)
	if err != nil {
		return utils.HandleError(c, err)
	}
	actor := middleware.CurrentActor(c)
	if !policy.Evaluate(actor, policy.OpDelete, rec) {
		return utils.HandleError(c, utils.Forbidden("delete this project"))
	}

	err = pc.DB.Transaction(func(tx *gorm.DB) error {
		var taskIDs []string
		if err := tx.Model(&models.Task{}).Where("project_id = ?", project.ID).Pluck("id", &taskIDs).Error; err != nil {
			return err
		}
		if err := deleteTasks(tx, taskIDs); err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", project.ID).Delete(&models.ProjectMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Project{}, "id = ?", project.ID).Error
	})
	if err != nil {
		return utils.HandleError(c, err)
	}

	pc.Logger.WithFields(logrus.Fields{"project_id": project.ID, "user_id": actor.ID}).Info("Project deleted")
	return c.JSON(fiber.Map{"message": "Project deleted successfully"})
}

func (pc *ProjectController) GetMembers(c *fiber.Ctx) error {
	project, err := findProject(pc.DB, param(c, "id"))
	if err != nil {
		return utils.HandleError(c, err)
	}
	rec, err := projectRecord(project)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(fiber.Map{"members": rec.Members})
}

// AddMember adds a user to the project. Adding an existing member is a no-op.
func (pc *ProjectController) AddMember(c *fiber.Ctx) error {
	raw, err := parseBody(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	req := AddMemberRequest{UserID: raw.String("userId", "user", "id")}
	if ref, ok := raw["user"].(map[string]interface{}); ok && req.UserID == "" {
		req.UserID = normalize.Raw(ref).ID()
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.HandleError(c, err)
	}

	project, err := findProject(pc.DB, param(c, "id"))
	if err != nil {
		return utils.HandleError(c, err)
	}
	if _, err := findUser(pc.DB, req.UserID); err != nil {
		return utils.HandleError(c, err)
	}

	rec, err := projectRecord(project)
	if err != nil {
		return utils.HandleError(c, err)
	}
	actor := middleware.CurrentActor(c)
	if !policy.Evaluate(actor, policy.OpManageMembers, rec) {
		return utils.HandleError(c, utils.Forbidden("manage project members"))
	}

	if err := addMembers(pc.DB, project.ID, []string{req.UserID}); err != nil {
		return utils.HandleError(c, err)
	}

	pc.Logger.WithFields(logrus.Fields{"project_id": project.ID, "member_id": req.UserID}).Info("Project member added")

	updated, err := findProject(pc.DB, project.ID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return pc.respond(c, fiber.StatusOK, updated)
}

// RemoveMember removes a user from the project. Removing a non-member is a no-op.
func (pc *ProjectController) RemoveMember(c *fiber.Ctx) error {
	project, err := findProject(pc.DB, param(c, "id"))
	if err != nil {
		return utils.HandleError(c, err)
	}
	userID := param(c, "userId")

	rec, err := projectRecord(project)
	if err != nil {
		return utils.HandleError(c, err)
	}
	if !policy.Evaluate(middleware.CurrentActor(c), policy.OpManageMembers, rec) {
		return utils.HandleError(c, utils.Forbidden("manage project members"))
	}

	if err := pc.DB.Where("project_id = ? AND user_id = ?", project.ID, userID).
		Delete(&models.ProjectMember{}).Error; err != nil {
		return utils.HandleError(c, err)
	}

	updated, err := findProject(pc.DB, project.ID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return pc.respond(c, fiber.StatusOK, updated)
}

func (pc *ProjectController) respond(c *fiber.Ctx, status int, project *models.Project) error {
	rec, err := projectRecord(project)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.Status(status).JSON(rec)
}

// requireUsers fails with a NotFoundError naming the first unknown id.
func (pc *ProjectController) requireUsers(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	var found []string
	if err := pc.DB.Model(&models.User{}).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return err
	}
	known := make(map[string]struct{}, len(found))
	for _, id := range found {
		known[id] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			return utils.NotFound("User", id)
		}
	}
	return nil
}

func memberIDsFrom(raw normalize.Raw) []string {
	refs := normalize.MemberList(raw["members"])
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		ids = append(ids, ref.ID)
	}
	return ids
}

// addMembers inserts membership rows, skipping pairs that already exist.
func addMembers(tx *gorm.DB, projectID string, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	rows := make([]models.ProjectMember, 0, len(userIDs))
	for _, id := range userIDs {
		rows = append(rows, models.ProjectMember{ProjectID: projectID, UserID: id})
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

// deleteTasks removes the given tasks and their comments.
func deleteTasks(tx *gorm.DB, taskIDs []string) error {
	if len(taskIDs) == 0 {
		return nil
	}
	if err := tx.Where("task_id IN ?", taskIDs).Delete(&models.Comment{}).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", taskIDs).Delete(&models.Task{}).Error
}
