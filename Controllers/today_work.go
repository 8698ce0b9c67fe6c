package Controllers

import (
	"context"
	"fmt"
	"time"

	"ClientMax/Models"
	"ClientMax/Repository"
	"ClientMax/Store"
	"ClientMax/middleware"

	"github.com/gofiber/fiber/v2"
)

// TodayWorkController serves /api/today-work. Every request is scoped to
// the current calendar day.
type TodayWorkController struct {
	DailyWork *Store.DailyWorkStore
	Feed      Repository.ChangeFeed
	Validator *Validator
	Now       func() time.Time
}

func NewTodayWorkController(dailyWork *Store.DailyWorkStore, feed Repository.ChangeFeed, v *Validator) *TodayWorkController {
	return &TodayWorkController{DailyWork: dailyWork, Feed: feed, Validator: v, Now: time.Now}
}

type todayWorkInput struct {
	WorkText   string `json:"work_text" validate:"required,max=5000"`
	AssignedTo string `json:"assigned_to" validate:"required"`
}

type todayWorkPatchInput struct {
	WorkText string `json:"work_text" validate:"required,max=5000"`
}

// GetTodayWork lists today's items visible to the session, newest first.
func (c *TodayWorkController) GetTodayWork(ctx *fiber.Ctx) error {
	session, _ := middleware.SessionFrom(ctx)
	today := Models.CalendarDate(c.Now())
	filter := Store.DailyWorkFilter{Date: &today}
	if !session.Privileged {
		filter.AssignedTo = session.EmployeeID()
	}

	items, err := c.DailyWork.List(ctx.UserContext(), filter)
	if err != nil {
		return respondError(ctx, err)
	}
	visible := make([]Models.DailyWorkItem, 0, len(items))
	for _, item := range items {
		if session.CanViewDailyWork(item) {
			visible = append(visible, item)
		}
	}
	return ctx.JSON(fiber.Map{
		"date":  time.Time(today).Format(Models.DateLayout),
		"items": visible,
	})
}

func (c *TodayWorkController) CreateTodayWork(ctx *fiber.Ctx) error {
	session, _ := middleware.SessionFrom(ctx)
	if !session.CanManageDailyWork() {
		return respondError(ctx, Models.ErrForbidden)
	}

	var input todayWorkInput
	if err := c.Validator.parseBody(ctx, &input); err != nil {
		return respondError(ctx, err)
	}
	item, err := c.DailyWork.Insert(ctx.UserContext(), Models.NewDailyWork{
		WorkText:   input.WorkText,
		AssignedTo: input.AssignedTo,
		AssignedBy: session.EmployeeID(),
		WorkDate:   Models.CalendarDate(c.Now()),
	})
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(item)
}

// UpdateTodayWork changes the text; the privileged session or the assignee may edit.
func (c *TodayWorkController) UpdateTodayWork(ctx *fiber.Ctx) error {
	session, _ := middleware.SessionFrom(ctx)
	current, err := c.DailyWork.Get(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return respondError(ctx, err)
	}
	if !session.CanViewDailyWork(current) {
		return respondError(ctx, fmt.Errorf("today's work item %s: %w", current.ID, Models.ErrNotFound))
	}
	if !session.CanEditDailyWork(current) {
		return respondError(ctx, Models.ErrForbidden)
	}

	var input todayWorkPatchInput
	if err := c.Validator.parseBody(ctx, &input); err != nil {
		return respondError(ctx, err)
	}
	item, err := c.DailyWork.UpdateText(ctx.UserContext(), current.ID, input.WorkText)
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(item)
}

func (c *TodayWorkController) DeleteTodayWork(ctx *fiber.Ctx) error {
	session, _ := middleware.SessionFrom(ctx)
	if !session.CanManageDailyWork() {
		return respondError(ctx, Models.ErrForbidden)
	}
	if err := c.DailyWork.Delete(ctx.UserContext(), ctx.Params("id")); err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(fiber.Map{"message": "Work item deleted successfully"})
}

func (c *TodayWorkController) StreamTodayWork(ctx *fiber.Ctx) error {
	session, _ := middleware.SessionFrom(ctx)
	repo, err := Repository.OpenDailyWork(context.Background(), c.DailyWork, c.Feed, session, Repository.Options{Clock: c.Now})
	if err != nil {
		return respondError(ctx, err)
	}
	return stream(ctx, repo.Items(), repo.Changes(), repo.Close)
}
