package models

import "time"

type User struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Email        string    `gorm:"size:254;uniqueIndex;not null" json:"email"`
	Username     string    `gorm:"size:150;uniqueIndex;not null" json:"username"`
	FirstName    string    `gorm:"size:150;not null" json:"first_name"`
	LastName     string    `gorm:"size:150;not null" json:"last_name"`
	PasswordHash string    `gorm:"not null" json:"-"`
	// Avatar is a storage key, empty when the user has none
	Avatar string `gorm:"size:255" json:"avatar"`
}

// Subscription links a follower (UserID) to an author they follow.
type Subscription struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_subscription_user_author" json:"user_id"`
	AuthorID  uint      `gorm:"not null;uniqueIndex:idx_subscription_user_author;index;check:chk_subscriptions_not_self,user_id <> author_id" json:"author_id"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Author    User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"-"`
}
