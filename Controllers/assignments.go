package Controllers

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"ClientMax/Access"
	"ClientMax/Models"
	"ClientMax/Reports"
	"ClientMax/Repository"
	"ClientMax/Store"
	"ClientMax/middleware"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
)

// AssignmentNotifier is told about new assignments. Failures are logged only.
type AssignmentNotifier interface {
	NotifyAssignment(ctx context.Context, a Models.WorkAssignment) error
}

// AssignmentController serves /api/assignments.
type AssignmentController struct {
	Assignments *Store.AssignmentStore
	Feed        Repository.ChangeFeed
	Validator   *Validator
	Notifiers   []AssignmentNotifier
	Now         func() time.Time
}

func NewAssignmentController(assignments *Store.AssignmentStore, feed Repository.ChangeFeed, v *Validator, notifiers ...AssignmentNotifier) *AssignmentController {
	return &AssignmentController{
		Assignments: assignments,
		Feed:        feed,
		Validator:   v,
		Notifiers:   notifiers,
		Now:         time.Now,
	}
}

type assignmentInput struct {
	Title       string  `json:"title" validate:"required,max=500"`
	Description *string `json:"description"`
	AssignedTo  string  `json:"assigned_to" validate:"required"`
	Priority    string  `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Status      string  `json:"status" validate:"omitempty,oneof=pending in_progress completed cancelled"`
	DueDate     *string `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	Notes       *string `json:"notes"`
}

type assignmentPatchInput struct {
	Title            *string    `json:"title" validate:"omitempty,min=1,max=500"`
	Description      *string    `json:"description"`
	AssignedTo       *string    `json:"assigned_to" validate:"omitempty,min=1"`
	Priority         *string    `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Status           *string    `json:"status" validate:"omitempty,oneof=pending in_progress completed cancelled"`
	DueDate          *string    `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	CompletedAt      *time.Time `json:"completed_at"`
	ClearCompletedAt bool       `json:"clear_completed_at"`
	Notes            *string    `json:"notes"`
}

type statusInput struct {
	Status string `json:"status" validate:"required,oneof=pending in_progress completed cancelled"`
}

func parseDate(s *string) (*datatypes.Date, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	d, err := Models.ParseCalendarDate(*s)
	if err != nil {
		return nil, Models.Invalid("due_date", "must be YYYY-MM-DD")
	}
	return &d, nil
}

func (in assignmentPatchInput) patch() (Models.AssignmentPatch, error) {
	patch := Models.AssignmentPatch{
		Title:            in.Title,
		Description:      in.Description,
		AssignedTo:       in.AssignedTo,
		CompletedAt:      in.CompletedAt,
		ClearCompletedAt: in.ClearCompletedAt,
		Notes:            in.Notes,
	}
	if in.Priority != nil {
		p := Models.Priority(*in.Priority)
		patch.Priority = &p
	}
	if in.Status != nil {
		s := Models.AssignmentStatus(*in.Status)
		patch.Status = &s
	}
	due, err := parseDate(in.DueDate)
	if err != nil {
		return Models.AssignmentPatch{}, err
	}
	patch.DueDate = due
	return patch, nil
}

// listFor applies the visibility rule: the privileged session may filter by
// ?assigned_to=, everyone else only sees their own assignments.
func (c *AssignmentController) listFor(ctx *fiber.Ctx, session Access.Session) ([]Models.WorkAssignment, error) {
	filter := Store.AssignmentFilter{AssignedTo: ctx.Query("assigned_to")}
	if !session.Privileged {
		filter.AssignedTo = session.EmployeeID()
	}
	if raw := ctx.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			status := Models.AssignmentStatus(strings.TrimSpace(s))
			if !status.Valid() {
				return nil, Models.Invalid("status", "unknown status %q", status)
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	return c.Assignments.List(ctx.UserContext(), filter)
}

// GetAssignments lists assignments newest first. ?active=true keeps pending
// and in-progress only.
func (c *AssignmentController) GetAssignments(ctx *fiber.Ctx) error {
	session, _ := middleware.SessionFrom(ctx)
	assignments, err := c.listFor(ctx, session)
	if err != nil {
		return respondError(ctx, err)
	}
	if ctx.Query("active") == "true" {
		assignments = Repository.ActiveOnly(assignments)
	}
	return ctx.JSON(assignments)
}

func (c *AssignmentController) GetSummary(ctx *fiber.Ctx) error {
	session, _ := middleware.SessionFrom(ctx)
	assignments, err := c.listFor(ctx, session)
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(Repository.Summarize(assignments, c.Now()))
}

// GetAssignment returns one assignment plus the transitions offered from its status.
func (c *AssignmentController) GetAssignment(ctx *fiber.Ctx) error {
	session, _ := middleware.SessionFrom(ctx)
	assignment, err := c.Assignments.Get(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return respondError(ctx, err)
	}
	if !session.CanViewAssignment(assignment) {
		return respondError(ctx, fmt.Errorf("assignment %s: %w", assignment.ID, Models.ErrNotFound))
	}
	return ctx.JSON(fiber.Map{
		"assignment":  assignment,
		"transitions": Access.AllowedTransitions(assignment.Status),
	})
}

func (c *AssignmentController) CreateAssignment(ctx *fiber.Ctx) error {
	session, _ := middleware.SessionFrom(ctx)
	if !session.CanCreateAssignment() {
		return respondError(ctx, Models.ErrForbidden)
	}

	var input assignmentInput
	if err := c.Validator.parseBody(ctx, &input); err != nil {
		return respondError(ctx, err)
	}
	due, err := parseDate(input.DueDate)
	if err != nil {
		return respondError(ctx, err)
	}

	assignment, err := c.Assignments.Insert(ctx.UserContext(), Models.NewAssignment{
		Title:       input.Title,
		Description: input.Description,
		AssignedTo:  input.AssignedTo,
		AssignedBy:  session.EmployeeID(),
		Priority:    Models.Priority(input.Priority),
		Status:      Models.AssignmentStatus(input.Status),
		DueDate:     due,
		Notes:       input.Notes,
	})
	if err != nil {
		return respondError(ctx, err)
	}

	c.notify(assignment)
	return ctx.Status(fiber.StatusCreated).JSON(assignment)
}

// UpdateAssignment applies a partial update. Setting status to completed
// does not set completed_at; use the status endpoint for that.
func (c *AssignmentController) UpdateAssignment(ctx *fiber.Ctx) error {
	var input assignmentPatchInput
	if err := c.Validator.parseBody(ctx, &input); err != nil {
		return respondError(ctx, err)
	}
	patch, err := input.patch()
	if err != nil {
		return respondError(ctx, err)
	}
	return c.apply(ctx, patch)
}

// ChangeStatus moves an assignment to a new status, stamping completed_at
// when it becomes completed. Terminal statuses are not locked.
func (c *AssignmentController) ChangeStatus(ctx *fiber.Ctx) error {
	var input statusInput
	if err := c.Validator.parseBody(ctx, &input); err != nil {
		return respondError(ctx, err)
	}
	patch, err := Repository.StatusPatch(Models.AssignmentStatus(input.Status), c.Now())
	if err != nil {
		return respondError(ctx, err)
	}
	return c.apply(ctx, patch)
}

func (c *AssignmentController) apply(ctx *fiber.Ctx, patch Models.AssignmentPatch) error {
	session, _ := middleware.SessionFrom(ctx)
	current, err := c.Assignments.Get(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return respondError(ctx, err)
	}
	if !session.CanUpdateAssignment(current, patch) {
		return respondError(ctx, Models.ErrForbidden)
	}
	updated, err := c.Assignments.Update(ctx.UserContext(), current.ID, patch)
	if err != nil {
		return respondError(ctx, err)
	}
	if patch.Status != nil && *patch.Status != current.Status && !Access.IsOffered(current.Status, *patch.Status) {
		log.Printf("Assignment %s moved from %s to %s outside the offered transitions", current.ID, current.Status, *patch.Status)
	}
	return ctx.JSON(updated)
}

func (c *AssignmentController) DeleteAssignment(ctx *fiber.Ctx) error {
	session, _ := middleware.SessionFrom(ctx)
	if !session.CanDeleteAssignment() {
		return respondError(ctx, Models.ErrForbidden)
	}
	if err := c.Assignments.Delete(ctx.UserContext(), ctx.Params("id")); err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(fiber.Map{"message": "Assignment deleted successfully"})
}

// ExportAssignments sends the visible assignments as an xlsx workbook.
func (c *AssignmentController) ExportAssignments(ctx *fiber.Ctx) error {
	session, _ := middleware.SessionFrom(ctx)
	assignments, err := c.listFor(ctx, session)
	if err != nil {
		return respondError(ctx, err)
	}
	now := c.Now()
	buf, err := Reports.AssignmentsWorkbook(assignments, Repository.Summarize(assignments, now), now)
	if err != nil {
		return respondError(ctx, err)
	}
	// Attachment resets the content type from the extension, so set ours after it.
	ctx.Attachment(fmt.Sprintf("assignments-%s.xlsx", now.Format(Models.DateLayout)))
	ctx.Set(fiber.HeaderContentType, Reports.XLSXContentType)
	return ctx.Send(buf.Bytes())
}

// StreamAssignments pushes a snapshot of the session's assignments on every change.
func (c *AssignmentController) StreamAssignments(ctx *fiber.Ctx) error {
	session, _ := middleware.SessionFrom(ctx)
	repo, err := Repository.OpenAssignments(context.Background(), c.Assignments, c.Feed, session, Repository.Options{
		AssignedTo: ctx.Query("assigned_to"),
		Clock:      c.Now,
	})
	if err != nil {
		return respondError(ctx, err)
	}
	return stream(ctx, repo.Assignments(), repo.Changes(), repo.Close)
}

func (c *AssignmentController) notify(a Models.WorkAssignment) {
	if len(c.Notifiers) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		for _, n := range c.Notifiers {
			if err := n.NotifyAssignment(ctx, a); err != nil {
				log.Printf("Failed to send assignment notification for %s: %v", a.ID, err)
			}
		}
	}()
}
