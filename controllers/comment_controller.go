package controller

import (
	"time"

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

type commentRequest struct {
	Text   string `json:"text" validate:"required,notblank,max=5000"`
	TaskID string `json:"taskId" validate:"required,notblank"`
}

type CommentController struct {
	DB     *gorm.DB
	Logger *logrus.Entry
}

func NewCommentController(db *gorm.DB, logger *logrus.Entry) *CommentController {
	return &CommentController{DB: db, Logger: logger}
}

// CreateComment takes the task from the route when present, otherwise from
// the body. Only admins may attribute a comment to another author.
func (cc *CommentController) CreateComment(c *fiber.Ctx) error {
	raw, err := parseBody(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	patch := normalize.CommentChanges(raw)

	req := commentRequest{}
	if patch.Text != nil {
		req.Text = *patch.Text
	}
	if patch.TaskID != nil {
		req.TaskID = *patch.TaskID
	}
	if routeID := param(c, "taskId"); routeID != "" {
		req.TaskID = routeID
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.HandleError(c, err)
	}

	task, err := findTask(cc.DB, req.TaskID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	taskRec, err := taskRecord(task)
	if err != nil {
		return utils.HandleError(c, err)
	}

	actor := middleware.CurrentActor(c)
	authorID := actor.ID
	if patch.AuthorID != nil && *patch.AuthorID != "" && *patch.AuthorID != actor.ID && actor.IsAdmin() {
		if _, err := findUser(cc.DB, *patch.AuthorID); err != nil {
			return utils.HandleError(c, err)
		}
		authorID = *patch.AuthorID
	}

	if !policy.Evaluate(actor, policy.OpCreate, policy.CommentSubject{Task: &taskRec}) {
		return utils.HandleError(c, utils.Forbidden("comment on this task"))
	}

	comment := models.Comment{
		Text:      req.Text,
		AuthorID:  authorID,
		TaskID:    task.ID,
		Timestamp: time.Now().UTC(),
	}
	if err := cc.DB.Omit(clause.Associations).Create(&comment).Error; err != nil {
		return utils.HandleError(c, err)
	}

	cc.Logger.WithFields(logrus.Fields{
		"comment_id": comment.ID,
		"task_id":    task.ID,
		"author_id":  authorID,
	}).Info("Comment created")

	created, err := cc.find(comment.ID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return cc.respond(c, fiber.StatusCreated, created)
}

// GetTaskComments lists a task's comments newest first.
func (cc *CommentController) GetTaskComments(c *fiber.Ctx) error {
	taskID := param(c, "taskId")
	if _, err := findTask(cc.DB, taskID); err != nil {
		return utils.HandleError(c, err)
	}

	var comments []models.Comment
	if err := cc.DB.Preload("Author").
		Where("task_id = ?", taskID).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "timestamp"}, Desc: true}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "created_at"}, Desc: true}).
		Find(&comments).Error; err != nil {
		return utils.HandleError(c, err)
	}

	recs, err := commentRecords(comments)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(recs)
}

func (cc *CommentController) UpdateComment(c *fiber.Ctx) error {
	raw, err := parseBody(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	patch := normalize.CommentChanges(raw)
	text := ""
	if patch.Text != nil {
		text = *patch.Text
	}
	if err := utils.ValidateStruct(commentRequest{Text: text, TaskID: "-"}); err != nil {
		return utils.HandleError(c, err)
	}

	comment, err := cc.find(param(c, "id"))
	if err != nil {
		return utils.HandleError(c, err)
	}
	rec, err := commentRecord(comment)
	if err != nil {
		return utils.HandleError(c, err)
	}
	if !policy.Evaluate(middleware.CurrentActor(c), policy.OpUpdate, policy.CommentSubject{Comment: rec}) {
		return utils.HandleError(c, utils.Forbidden("update this comment"))
	}

	if err := cc.DB.Model(&models.Comment{}).Where("id = ?", comment.ID).Update("text", text).Error; err != nil {
		return utils.HandleError(c, err)
	}

	updated, err := cc.find(comment.ID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return cc.respond(c, fiber.StatusOK, updated)
}

func (cc *CommentController) DeleteComment(c *fiber.Ctx) error {
	comment, err := cc.find(param(c, "id"))
	if err != nil {
		return utils.HandleError(c, err)
	}
	rec, err := commentRecord(comment)
	if err != nil {
		return utils.HandleError(c, err)
	}
	actor := middleware.CurrentActor(c)
	if !policy.Evaluate(actor, policy.OpDelete, policy.CommentSubject{Comment: rec}) {
		return utils.HandleError(c, utils.Forbidden("delete this comment"))
	}

	if err := cc.DB.Delete(&models.Comment{}, "id = ?", comment.ID).Error; err != nil {
		return utils.HandleError(c, err)
	}

	cc.Logger.WithFields(logrus.Fields{"comment_id": comment.ID, "user_id": actor.ID}).Info("Comment deleted")
	return c.JSON(fiber.Map{"message": "Comment deleted successfully"})
}

func (cc *CommentController) find(id string) (*models.Comment, error) {
	var comment models.Comment
	if err := cc.DB.Preload("Author").First(&comment, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "Comment", id)
	}
	return &comment, nil
}

func (cc *CommentController) respond(c *fiber.Ctx, status int, comment *models.Comment) error {
	rec, err := commentRecord(comment)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.Status(status).JSON(rec)
}
