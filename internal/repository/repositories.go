package repository

import "creaza/internal/docstore"

// Repositories bundles every repository over one store.
type Repositories struct {
	Users         UserRepository
	Pins          PinRepository
	Comments      CommentRepository
	Notifications NotificationRepository
	Collections   CollectionRepository
	Follows       FollowRepository
	PinLikes      PinLikeRepository
	Accounts      AccountRepository
}

// New wires all repositories to store.
func New(store docstore.Store) *Repositories {
	return &Repositories{
		Users:         NewUserRepository(store),
		Pins:          NewPinRepository(store),
		Comments:      NewCommentRepository(store),
		Notifications: NewNotificationRepository(store),
		Collections:   NewCollectionRepository(store),
		Follows:       NewFollowRepository(store),
		PinLikes:      NewPinLikeRepository(store),
		Accounts:      NewAccountRepository(store),
	}
}
