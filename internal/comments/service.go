package comments

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/withmetravel/withme-backend/internal/notifications"
	"github.com/withmetravel/withme-backend/internal/permissions"
	"github.com/withmetravel/withme-backend/pkg/db"
	"github.com/withmetravel/withme-backend/pkg/db/models"
	"github.com/withmetravel/withme-backend/pkg/enums"
	pkgerrors "github.com/withmetravel/withme-backend/pkg/errors"
	"github.com/withmetravel/withme-backend/pkg/outbox"
	"github.com/withmetravel/withme-backend/pkg/pagination"
)

const (
	maxContentLength = 5000
	maxEmojiLength   = 16
)

// Service manages threaded comments on any content type.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*models.Comment, error)
	List(ctx context.Context, userID uuid.UUID, params ListParams) (*pagination.Page[Thread], error)
	Update(ctx context.Context, commentID, userID uuid.UUID, content string) (*models.Comment, error)
	Delete(ctx context.Context, commentID, userID uuid.UUID) error
	ToggleReaction(ctx context.Context, commentID, userID uuid.UUID, emoji string) (*ReactionResult, error)
}

type CreateInput struct {
	ContentType enums.CommentContentType `json:"content_type" validate:"required"`
	ContentID   uuid.UUID                `json:"content_id" validate:"required"`
	ParentID    *uuid.UUID               `json:"parent_id"`
	Content     string                   `json:"content" validate:"required,max=5000"`
}

type ListParams struct {
	ContentType enums.CommentContentType
	ContentID   uuid.UUID
	pagination.Params
}

type Reaction struct {
	Emoji string `json:"emoji"`
	Count int64  `json:"count"`
}

// Thread is a top-level comment with its replies, oldest reply first.
type Thread struct {
	models.Comment
	Reactions []Reaction `json:"reactions"`
	Replies   []Reply    `json:"replies"`
}

type Reply struct {
	models.Comment
	Reactions []Reaction `json:"reactions"`
}

type ReactionResult struct {
	CommentID uuid.UUID  `json:"comment_id"`
	Emoji     string     `json:"emoji"`
	Added     bool       `json:"added"`
	Reactions []Reaction `json:"reactions"`
}

type ServiceParams struct {
	Repo     Repository
	Checker  permissions.Checker
	Tx       db.TxRunner
	Outbox   outbox.Emitter
	Notifier notifications.Notifier
}

type service struct {
	repo     Repository
	checker  permissions.Checker
	tx       db.TxRunner
	outbox   outbox.Emitter
	notifier notifications.Notifier
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "comments repository required")
	}
	if params.Checker == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "permission checker required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction runner required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "outbox emitter required")
	}
	if params.Notifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "notifier required")
	}
	return &service{
		repo:     params.Repo,
		checker:  params.Checker,
		tx:       params.Tx,
		outbox:   params.Outbox,
		notifier: params.Notifier,
		now:      time.Now,
	}, nil
}

// authorize applies trip permissions to trip and itinerary_item content.
// Other content types are readable by anyone and writable by any signed-in user.
func (s *service) authorize(ctx context.Context, contentType enums.CommentContentType, contentID, userID uuid.UUID, write bool) (*uuid.UUID, error) {
	if !contentType.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unsupported content type %q", contentType)
	}
	if contentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "content_id is required")
	}
	if !contentType.TripScoped() {
		if write && userID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
		}
		return nil, nil
	}

	tripID := contentID
	if contentType == enums.CommentOnItineraryItem {
		id, err := s.repo.ItemTripID(ctx, contentID)
		if err != nil {
			if db.IsNotFound(err) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "itinerary item not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load itinerary item")
		}
		tripID = id
	}

	capability := permissions.CapView
	if write {
		capability = permissions.CapParticipate
	}
	if _, err := permissions.Require(ctx, s.checker, tripID, userID, capability); err != nil {
		return nil, err
	}
	return &tripID, nil
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*models.Comment, error) {
	content, err := cleanContent(input.Content)
	if err != nil {
		return nil, err
	}
	tripID, err := s.authorize(ctx, input.ContentType, input.ContentID, userID, true)
	if err != nil {
		return nil, err
	}

	var parent *models.Comment
	if input.ParentID != nil {
		parent, err = s.find(ctx, *input.ParentID)
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "parent comment not found")
			}
			return nil, err
		}
		if parent.ContentType != input.ContentType || parent.ContentID != input.ContentID {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "parent comment belongs to different content")
		}
		// replies attach to the thread root so nesting stays one level deep
		if parent.ParentID != nil {
			root := *parent.ParentID
			input.ParentID = &root
		}
	}

	comment := &models.Comment{
		ContentType: input.ContentType,
		ContentID:   input.ContentID,
		UserID:      userID,
		ParentID:    input.ParentID,
		Content:     content,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, comment); err != nil {
			return err
		}
		if parent != nil && parent.UserID != userID {
			s.notifier.Notify(ctx, tx, notifications.Input{
				UserID:  parent.UserID,
				Type:    enums.NotificationCommentReply,
				Title:   "New reply",
				Message: preview(content),
				Link:    commentLink(comment, tripID),
			})
		}
		data := map[string]any{
			"content_type": comment.ContentType,
			"content_id":   comment.ContentID,
		}
		actor := &outbox.ActorRef{UserID: userID, TripID: tripID}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCommentCreated,
			AggregateType: enums.AggregateComment,
			AggregateID:   comment.ID,
			Actor:         actor,
			Data:          data,
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create comment")
	}
	return comment, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, params ListParams) (*pagination.Page[Thread], error) {
	if _, err := s.authorize(ctx, params.ContentType, params.ContentID, userID, false); err != nil {
		return nil, err
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, err := s.repo.ListTopLevel(ctx, listParams{
		ContentType: params.ContentType,
		ContentID:   params.ContentID,
		Limit:       pagination.LimitWithBuffer(params.Limit),
		Cursor:      cursor,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list comments")
	}
	page := pagination.BuildPage(rows, params.Limit, func(c models.Comment) pagination.Cursor {
		return pagination.Cursor{CreatedAt: c.CreatedAt, ID: c.ID}
	})

	topIDs := make([]uuid.UUID, len(page.Items))
	for i, c := range page.Items {
		topIDs[i] = c.ID
	}
	replies, err := s.repo.ListReplies(ctx, topIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list replies")
	}
	allIDs := append([]uuid.UUID{}, topIDs...)
	for _, r := range replies {
		allIDs = append(allIDs, r.ID)
	}
	counts, err := s.repo.ReactionCounts(ctx, allIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count reactions")
	}
	reactions := groupReactions(counts)

	byParent := make(map[uuid.UUID][]Reply, len(topIDs))
	for _, r := range replies {
		byParent[*r.ParentID] = append(byParent[*r.ParentID], Reply{Comment: r, Reactions: reactions.of(r.ID)})
	}
	threads := make([]Thread, len(page.Items))
	for i, c := range page.Items {
		thread := Thread{Comment: c, Reactions: reactions.of(c.ID), Replies: byParent[c.ID]}
		if thread.Replies == nil {
			thread.Replies = []Reply{}
		}
		threads[i] = thread
	}
	return &pagination.Page[Thread]{Items: threads, NextCursor: page.NextCursor}, nil
}

func (s *service) Update(ctx context.Context, commentID, userID uuid.UUID, content string) (*models.Comment, error) {
	cleaned, err := cleanContent(content)
	if err != nil {
		return nil, err
	}
	comment, err := s.ownComment(ctx, commentID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateContent(ctx, comment.ID, cleaned, s.now().UTC()); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update comment")
	}
	return s.find(ctx, comment.ID)
}

func (s *service) Delete(ctx context.Context, commentID, userID uuid.UUID) error {
	comment, err := s.ownComment(ctx, commentID, userID)
	if err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, comment.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete comment")
	}
	return nil
}

func (s *service) ToggleReaction(ctx context.Context, commentID, userID uuid.UUID, emoji string) (*ReactionResult, error) {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" || utf8.RuneCountInString(emoji) > maxEmojiLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "emoji is required")
	}
	comment, err := s.find(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorize(ctx, comment.ContentType, comment.ContentID, userID, true); err != nil {
		return nil, err
	}

	result := &ReactionResult{CommentID: comment.ID, Emoji: emoji}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindReaction(ctx, comment.ID, userID, emoji)
		if err != nil && !db.IsNotFound(err) {
			return err
		}
		if existing != nil {
			if err := repo.DeleteReaction(ctx, existing.ID); err != nil {
				return err
			}
		} else {
			if err := repo.CreateReaction(ctx, &models.CommentReaction{CommentID: comment.ID, UserID: userID, Emoji: emoji}); err != nil {
				return err
			}
			result.Added = true
		}
		counts, err := repo.ReactionCounts(ctx, []uuid.UUID{comment.ID})
		if err != nil {
			return err
		}
		result.Reactions = groupReactions(counts).of(comment.ID)
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "toggle reaction")
	}
	return result, nil
}

func (s *service) find(ctx context.Context, commentID uuid.UUID) (*models.Comment, error) {
	comment, err := s.repo.FindByID(ctx, commentID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "comment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load comment")
	}
	return comment, nil
}

func (s *service) ownComment(ctx context.Context, commentID, userID uuid.UUID) (*models.Comment, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	comment, err := s.find(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the author can change this comment")
	}
	return comment, nil
}

func cleanContent(raw string) (string, error) {
	content := strings.TrimSpace(raw)
	if content == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "content is required")
	}
	if utf8.RuneCountInString(content) > maxContentLength {
		return "", pkgerrors.Newf(pkgerrors.CodeValidation, "content exceeds %d characters", maxContentLength)
	}
	return content, nil
}

func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= 120 {
		return content
	}
	return string(runes[:117]) + "..."
}

func commentLink(c *models.Comment, tripID *uuid.UUID) string {
	if tripID != nil {
		return "/trips/" + tripID.String() + "#comment-" + c.ID.String()
	}
	return "/" + string(c.ContentType) + "s/" + c.ContentID.String() + "#comment-" + c.ID.String()
}

type reactionIndex map[uuid.UUID][]Reaction

func groupReactions(rows []reactionCount) reactionIndex {
	idx := make(reactionIndex, len(rows))
	for _, row := range rows {
		idx[row.CommentID] = append(idx[row.CommentID], Reaction{Emoji: row.Emoji, Count: row.Total})
	}
	return idx
}

func (r reactionIndex) of(id uuid.UUID) []Reaction {
	if list, ok := r[id]; ok {
		return list
	}
	return []Reaction{}
}
