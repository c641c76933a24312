package domain

import "time"

// Session maps a browser cookie to the CRM credentials of a signed-in user.
type Session struct {
	ID          string    `gorm:"primaryKey;size:36"`
	UserID      string    `gorm:"size:64;index;not null"`
	Role        Role      `gorm:"size:16;not null"`
	Name        string    `gorm:"size:255"`
	Email       string    `gorm:"size:255"`
	ClientID    string    `gorm:"size:64"`
	CandidateID string    `gorm:"size:64"`
	CRMToken    string    `gorm:"type:text;not null"`
	ExpiresAt   time.Time `gorm:"index;not null"`
	CreatedAt   time.Time
}

func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

func (s Session) Principal() Principal {
	return Principal{
		UserID:      s.UserID,
		Role:        s.Role,
		Name:        s.Name,
		Email:       s.Email,
		ClientID:    s.ClientID,
		CandidateID: s.CandidateID,
		CRMToken:    s.CRMToken,
	}
}
