package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"creaza/internal/docstore"
	"creaza/internal/models"
	"creaza/internal/observability"
	"creaza/internal/repository"
	"creaza/internal/validation"
)

// defaultCollectionRetries bounds the read-modify-write loop on collections.
const defaultCollectionRetries = 5

var mentionRegex = regexp.MustCompile(`(?:^|[^\w@])@([a-zA-Z0-9_-]{3,30})`)

// EngagementService runs the compound social operations. Each one mutates a
// counter or edge and then, when someone else is affected, records a
// notification. The two writes are not transactional.
type EngagementService struct {
	pins          repository.PinRepository
	pinLikes      repository.PinLikeRepository
	comments      repository.CommentRepository
	notifications repository.NotificationRepository
	collections   repository.CollectionRepository
	follows       repository.FollowRepository
	users         repository.UserRepository
	publisher     Publisher
	log           *observability.ServiceLogger
	tracer        *observability.TraceLayer
	now           func() time.Time
	newID         func() string
	retries       int
}

// AddCommentInput is the payload of AddComment.
type AddCommentInput struct {
	PinID  string
	UserID string
	Text   string
}

// CreateCollectionInput is the payload of CreateCollection.
type CreateCollectionInput struct {
	UserID      string
	Name        string
	Description string
}

// NewEngagementService wires the service to repos. publisher may be nil.
func NewEngagementService(repos *repository.Repositories, publisher Publisher) *EngagementService {
	return &EngagementService{
		pins:          repos.Pins,
		pinLikes:      repos.PinLikes,
		comments:      repos.Comments,
		notifications: repos.Notifications,
		collections:   repos.Collections,
		follows:       repos.Follows,
		users:         repos.Users,
		publisher:     publisher,
		log:           observability.NewServiceLogger("engagement"),
		tracer:        observability.GetTraceLayer(),
		now:           time.Now,
		newID:         newID,
		retries:       defaultCollectionRetries,
	}
}

func (s *EngagementService) notify(ctx context.Context, to, from string, payload models.NotificationPayload) error {
	return notify(ctx, s.notifications.Create, s.publisher, models.Notification{
		ID:         s.newID(),
		UserID:     to,
		FromUserID: from,
		CreatedAt:  s.now().UTC(),
		Payload:    payload,
	})
}

// ToggleLike adds or removes one like from the pin and returns the pin as
// stored afterwards. Liking someone else's pin notifies its owner.
func (s *EngagementService) ToggleLike(ctx context.Context, pinID string, liked bool, actorID string) (_ *models.Pin, err error) {
	ctx, span := s.tracer.TraceServiceCall(ctx, "engagement", "ToggleLike")
	defer func() { observability.EndSpan(span, err) }()

	pin := s.pins.GetByID(ctx, pinID)
	if pin == nil {
		return nil, models.NewNotFoundError("Pin", pinID)
	}

	delta := -1
	if liked {
		delta = 1
	}
	if err = s.pins.AdjustLikes(ctx, pinID, delta); err != nil {
		return nil, err
	}

	var markErr error
	if liked {
		markErr = s.pinLikes.Mark(ctx, actorID, pinID)
	} else {
		markErr = s.pinLikes.Unmark(ctx, actorID, pinID)
	}
	if markErr != nil {
		s.log.LogDrift(ctx, "ToggleLike", markErr, map[string]interface{}{"pin_id": pinID, "step": "like_mark"})
	}

	if liked && actorID != pin.UserID {
		if err := s.notify(ctx, pin.UserID, actorID, models.LikePayload{PinID: pinID}); err != nil {
			s.log.LogDrift(ctx, "ToggleLike", err, map[string]interface{}{"pin_id": pinID, "step": "notification"})
		}
	}
	s.log.LogCall(ctx, "ToggleLike", map[string]interface{}{"pin_id": pinID, "liked": liked})

	if updated := s.pins.GetByID(ctx, pinID); updated != nil {
		return updated, nil
	}
	pin.Likes = max(0, pin.Likes+delta)
	return pin, nil
}

// AddComment stores a trimmed comment and notifies the pin owner and any
// mentioned users. A failed notification fails the call.
func (s *EngagementService) AddComment(ctx context.Context, in AddCommentInput) (_ *models.Comment, err error) {
	ctx, span := s.tracer.TraceServiceCall(ctx, "engagement", "AddComment")
	defer func() { observability.EndSpan(span, err) }()

	text, err := validation.NormalizeComment(in.Text)
	if err != nil {
		return nil, err
	}
	pin := s.pins.GetByID(ctx, in.PinID)
	if pin == nil {
		return nil, models.NewNotFoundError("Pin", in.PinID)
	}

	comment := &models.Comment{
		ID:        s.newID(),
		PinID:     in.PinID,
		UserID:    in.UserID,
		Text:      text,
		CreatedAt: s.now().UTC(),
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}

	if in.UserID != pin.UserID {
		payload := models.CommentPayload{PinID: in.PinID, CommentID: comment.ID}
		if err := s.notify(ctx, pin.UserID, in.UserID, payload); err != nil {
			return nil, err
		}
	}
	if err := s.Mention(ctx, comment, pin.UserID); err != nil {
		return nil, err
	}
	s.log.LogCall(ctx, "AddComment", map[string]interface{}{"pin_id": in.PinID, "comment_id": comment.ID})
	return comment, nil
}

// MentionedUsernames returns the distinct @usernames in text, in order.
func MentionedUsernames(text string) []string {
	var names []string
	seen := map[string]bool{}
	for _, m := range mentionRegex.FindAllStringSubmatch(text, -1) {
		name := strings.ToLower(m[1])
		if !seen[name] {
			seen[name] = true
			names = append(names, m[1])
		}
	}
	return names
}

// Mention notifies every user named with @username in the comment, once
// each. The author and skipUserID (already notified of the comment) are left
// out, as are names that do not resolve.
func (s *EngagementService) Mention(ctx context.Context, comment *models.Comment, skipUserID string) error {
	for _, name := range MentionedUsernames(comment.Text) {
		user := s.users.GetByUsername(ctx, name)
		if user == nil || user.ID == comment.UserID || user.ID == skipUserID {
			continue
		}
		payload := models.MentionPayload{PinID: comment.PinID, CommentID: comment.ID, Text: comment.Text}
		if err := s.notify(ctx, user.ID, comment.UserID, payload); err != nil {
			return err
		}
	}
	return nil
}

// Follow records the edge and notifies the followed user.
func (s *EngagementService) Follow(ctx context.Context, followerID, followingID string) (*models.Follow, error) {
	if followerID == followingID {
		return nil, models.NewValidationError("You cannot follow yourself")
	}
	if followingID == "" {
		return nil, models.NewValidationError("following user is required")
	}
	edge, err := s.follows.Put(ctx, followerID, followingID)
	if err != nil {
		return nil, err
	}
	if err := s.notify(ctx, followingID, followerID, models.FollowPayload{}); err != nil {
		return nil, err
	}
	s.log.LogCall(ctx, "Follow", map[string]interface{}{"follower_id": followerID, "following_id": followingID})
	return edge, nil
}

// Unfollow removes the edge. Earlier follow notifications are kept.
func (s *EngagementService) Unfollow(ctx context.Context, followerID, followingID string) error {
	return s.follows.Delete(ctx, followerID, followingID)
}

// CreateCollection creates an empty collection.
func (s *EngagementService) CreateCollection(ctx context.Context, in CreateCollectionInput) (*models.Collection, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, models.NewValidationError("Collection name is required")
	}
	c := &models.Collection{
		ID:          s.newID(),
		UserID:      in.UserID,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		PinIDs:      []string{},
		CreatedAt:   s.now().UTC(),
	}
	if err := s.collections.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// AddPinToCollection adds pinID once; adding a member again is a no-op.
func (s *EngagementService) AddPinToCollection(ctx context.Context, collectionID, pinID string) (*models.Collection, error) {
	return s.editCollection(ctx, collectionID, func(c *models.Collection) []string { return c.WithPin(pinID) })
}

// RemovePinFromCollection removes pinID; removing a non-member is a no-op.
func (s *EngagementService) RemovePinFromCollection(ctx context.Context, collectionID, pinID string) (*models.Collection, error) {
	return s.editCollection(ctx, collectionID, func(c *models.Collection) []string { return c.WithoutPin(pinID) })
}

// editCollection applies edit under optimistic concurrency. A nil result
// from edit means the membership is already as requested.
func (s *EngagementService) editCollection(ctx context.Context, id string, edit func(*models.Collection) []string) (*models.Collection, error) {
	for attempt := 0; attempt <= s.retries; attempt++ {
		c, err := s.collections.Lookup(ctx, id)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		if c == nil {
			return nil, models.NewNotFoundError("Collection", id)
		}

		next := edit(c)
		if next == nil {
			return c, nil
		}
		err = s.collections.SetPins(ctx, id, c.Version, next)
		if err == nil {
			c.PinIDs = next
			c.Version++
			return c, nil
		}
		if !errors.Is(err, docstore.ErrConflict) {
			return nil, err
		}
		observability.VersionConflicts.WithLabelValues(string(docstore.Collections)).Inc()
	}
	return nil, models.NewConflictError("Collection was modified concurrently, try again", docstore.ErrConflict)
}

// DeleteCollection removes the collection.
func (s *EngagementService) DeleteCollection(ctx context.Context, id string) error {
	return s.collections.Delete(ctx, id)
}

// GetCollection returns the collection or NOT_FOUND.
func (s *EngagementService) GetCollection(ctx context.Context, id string) (*models.Collection, error) {
	c := s.collections.GetByID(ctx, id)
	if c == nil {
		return nil, models.NewNotFoundError("Collection", id)
	}
	return c, nil
}

// ListUserCollections returns the user's collections, newest first.
func (s *EngagementService) ListUserCollections(ctx context.Context, userID string) []models.Collection {
	return s.collections.ListByUser(ctx, userID)
}

// LikedPinIDs returns the authoritative set of pins userID has liked.
func (s *EngagementService) LikedPinIDs(ctx context.Context, userID string) ([]string, error) {
	return s.pinLikes.PinIDsForUser(ctx, userID)
}
