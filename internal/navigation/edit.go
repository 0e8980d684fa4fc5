package navigation

import (
	"fmt"

	"github.com/papapumpkin/specvizitor/internal/review"
	"github.com/papapumpkin/specvizitor/internal/telemetry"
	"github.com/papapumpkin/specvizitor/internal/viewer"
)

// update writes one review field of the current object.
func (c *Controller) update(column string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rd == nil {
		return ErrNoProject
	}
	return c.updateLocked(column, value)
}

func (c *Controller) updateLocked(column string, value any) error {
	return c.updateRowLocked(c.j, column, value)
}

func (c *Controller) updateRowLocked(j int, column string, value any) error {
	if err := c.rd.UpdateValue(j, column, value); err != nil {
		c.log.Error("failed to update the review", "column", column, "error", err)
		return err
	}
	id, _ := c.rd.ID(j)
	c.emit(telemetry.Event{Kind: telemetry.KindReviewEdit, ObjectID: id.String(), Data: map[string]any{"column": column, "value": value}})
	return nil
}

// SetStarred stars or unstars the current object.
func (c *Controller) SetStarred(starred bool) error { return c.update(review.Starred, starred) }

// ToggleStarred flips the star of the current object and returns the new value.
func (c *Controller) ToggleStarred() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rd == nil {
		return false, ErrNoProject
	}
	v := !c.rd.Bool(c.j, review.Starred)
	return v, c.updateLocked(review.Starred, v)
}

// SetComment stores the comment of the current object.
func (c *Controller) SetComment(text string) error { return c.update(review.Comment, text) }

// SetFlag sets a flag column of the current object.
func (c *Controller) SetFlag(name string, v bool) error { return c.update(name, v) }

// ToggleFlag flips the n-th (1-based) flag column of the current object
// and returns its name and new value.
func (c *Controller) ToggleFlag(n int) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rd == nil {
		return "", false, ErrNoProject
	}
	flags := c.rd.FlagColumns()
	if n < 1 || n > len(flags) {
		return "", false, fmt.Errorf("%w: #%d (%d flags)", ErrUnknownFlag, n, len(flags))
	}
	name := flags[n-1]
	v := !c.rd.Bool(c.j, name)
	return name, v, c.updateLocked(name, v)
}

// ToggleColumn flips the boolean column name of the current object and
// returns the new value. Columns of another kind are refused.
func (c *Controller) ToggleColumn(name string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rd == nil {
		return false, ErrNoProject
	}
	kind, err := c.rd.Kind(name)
	if err != nil {
		return false, err
	}
	if kind != review.Bool {
		return false, fmt.Errorf("%w: `%s` is %s, not a checkbox", review.ErrColumnType, name, kind)
	}
	v := !c.rd.Bool(c.j, name)
	return v, c.updateLocked(name, v)
}

// SaveRedshift records z as the redshift of the current object, adding
// the redshift column on first use.
func (c *Controller) SaveRedshift(z float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rd == nil {
		return ErrNoProject
	}
	return c.saveRedshiftLocked(c.j, z)
}

// SaveRedshiftAt records z as the redshift of obj, which need not be the
// selected object. obj must come from the open inspection file.
func (c *Controller) SaveRedshiftAt(obj viewer.Object, z float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rd == nil {
		return ErrNoProject
	}
	if obj.Review != c.rd {
		return fmt.Errorf("%w: ID %s", ErrStaleObject, obj.ID)
	}
	return c.saveRedshiftLocked(obj.Index, z)
}

func (c *Controller) saveRedshiftLocked(j int, z float64) error {
	if err := c.rd.EnsureNumberColumn(review.Redshift, review.RedshiftFill); err != nil {
		return err
	}
	return c.updateRowLocked(j, review.Redshift, z)
}
