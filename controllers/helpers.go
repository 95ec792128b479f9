package controller

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"projecthub/models"
	"projecthub/normalize"
	"projecthub/utils"
)

// parseBody decodes the request body as a loose JSON object. An empty body
// is an empty object.
func parseBody(c *fiber.Ctx) (normalize.Raw, error) {
	raw := normalize.Raw{}
	if len(c.Body()) == 0 {
		return raw, nil
	}
	if err := c.BodyParser(&raw); err != nil {
		return nil, utils.Invalid("body", "Invalid request body")
	}
	return raw, nil
}

// param returns the first non-empty route parameter among names.
func param(c *fiber.Ctx, names ...string) string {
	for _, n := range names {
		if v := strings.TrimSpace(c.Params(n)); v != "" {
			return v
		}
	}
	return ""
}

// notFoundOr converts gorm's record-not-found into the API's NotFoundError.
func notFoundOr(err error, entity, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.NotFound(entity, id)
	}
	return err
}

func withMembers(db *gorm.DB) *gorm.DB {
	return db.
		Preload("CreatedBy").
		Preload("Members", func(tx *gorm.DB) *gorm.DB { return tx.Order("users.name ASC") })
}

func withTaskRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("Project").Preload("AssignedTo")
}

func findProject(db *gorm.DB, id string) (*models.Project, error) {
	var project models.Project
	if err := withMembers(db).First(&project, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "Project", id)
	}
	return &project, nil
}

func findTask(db *gorm.DB, id string) (*models.Task, error) {
	var task models.Task
	if err := withTaskRelations(db).First(&task, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "Task", id)
	}
	return &task, nil
}

func findUser(db *gorm.DB, id string) (*models.User, error) {
	var user models.User
	if err := db.First(&user, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "User", id)
	}
	return &user, nil
}

// The record helpers serialize a stored model and run it through the
// normalizer, so responses always carry the canonical shape.

func userRecord(u *models.User) (normalize.User, error) {
	raw, err := normalize.ToRaw(u)
	if err != nil {
		return normalize.User{}, err
	}
	return normalize.NormalizeUser(raw), nil
}

func projectRecord(p *models.Project) (normalize.Project, error) {
	raw, err := normalize.ToRaw(p)
	if err != nil {
		return normalize.Project{}, err
	}
	return normalize.NormalizeProject(raw), nil
}

func taskRecord(t *models.Task) (normalize.Task, error) {
	raw, err := normalize.ToRaw(t)
	if err != nil {
		return normalize.Task{}, err
	}
	return normalize.NormalizeTask(raw), nil
}

func commentRecord(cm *models.Comment) (normalize.Comment, error) {
	raw, err := normalize.ToRaw(cm)
	if err != nil {
		return normalize.Comment{}, err
	}
	return normalize.NormalizeComment(raw), nil
}

func userRecords(users []models.User) ([]normalize.User, error) {
	out := make([]normalize.User, 0, len(users))
	for i := range users {
		rec, err := userRecord(&users[i])
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func projectRecords(projects []models.Project) ([]normalize.Project, error) {
	out := make([]normalize.Project, 0, len(projects))
	for i := range projects {
		rec, err := projectRecord(&projects[i])
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func taskRecords(tasks []models.Task) ([]normalize.Task, error) {
	out := make([]normalize.Task, 0, len(tasks))
	for i := range tasks {
		rec, err := taskRecord(&tasks[i])
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func commentRecords(comments []models.Comment) ([]normalize.Comment, error) {
	out := make([]normalize.Comment, 0, len(comments))
	for i := range comments {
		rec, err := commentRecord(&comments[i])
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
