package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/withmetravel/withme-backend/pkg/db/models"
	"github.com/withmetravel/withme-backend/pkg/enums"
	"github.com/withmetravel/withme-backend/pkg/logger"
)

const notifySavepoint = "notification_side_effect"

// Input describes one notification to write.
type Input struct {
	UserID  uuid.UUID
	Type    enums.NotificationType
	Title   string
	Message string
	Link    string
}

// Notifier writes notifications as a side effect of another operation.
type Notifier interface {
	Notify(ctx context.Context, tx *gorm.DB, in Input)
}

// Dispatcher never fails the caller: write errors are logged and dropped.
type Dispatcher struct {
	repo Repository
	logg *logger.Logger
}

func NewDispatcher(repo Repository, logg *logger.Logger) *Dispatcher {
	return &Dispatcher{repo: repo, logg: logg}
}

// Notify writes in through tx when given one. The insert runs under a savepoint
// so a failure does not poison the caller's transaction.
func (d *Dispatcher) Notify(ctx context.Context, tx *gorm.DB, in Input) {
	if d == nil || d.repo == nil {
		return
	}
	if err := d.write(ctx, tx, in); err != nil && d.logg != nil {
		d.logg.Warn(d.logg.WithFields(ctx, map[string]any{
			"recipient_id":      in.UserID.String(),
			"notification_type": string(in.Type),
			"error":             err.Error(),
		}), "notification.dispatch_failed")
	}
}

func (d *Dispatcher) write(ctx context.Context, tx *gorm.DB, in Input) error {
	if in.UserID == uuid.Nil || !in.Type.IsValid() {
		return fmt.Errorf("invalid notification input")
	}
	row := &models.Notification{
		UserID:  in.UserID,
		Type:    in.Type,
		Title:   in.Title,
		Message: in.Message,
	}
	if in.Link != "" {
		link := in.Link
		row.Link = &link
	}

	if tx == nil {
		return d.repo.Create(ctx, row)
	}
	if err := tx.SavePoint(notifySavepoint).Error; err != nil {
		return err
	}
	if err := d.repo.WithTx(tx).Create(ctx, row); err != nil {
		tx.RollbackTo(notifySavepoint)
		return err
	}
	return nil
}
