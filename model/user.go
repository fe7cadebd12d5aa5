package model

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool { return r == RoleUser || r == RoleAdmin }

type User struct {
	ID             string          `json:"id"`
	FullName       string          `json:"fullName"`
	Email          string          `json:"email"`
	Role           Role            `json:"role"`
	PasswordHash   string          `json:"-"`
	FavoriteBooks  []BookRef       `json:"favoriteBooks"`
	BorrowedBooks  []BorrowSummary `json:"borrowedBooks,omitempty"`
	DateOfBirth    *time.Time      `json:"dateOfBirth,omitempty"`
	Address        string          `json:"address,omitempty"`
	ProfilePicture string          `json:"profilePicture,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// BorrowSummary is the slice of a borrow request embedded in a user record.
type BorrowSummary struct {
	ID                 string       `json:"id"`
	Book               BookRef      `json:"book"`
	Status             BorrowStatus `json:"status"`
	ExpectedReturnDate time.Time    `json:"expectedReturnDate"`
}

// HasFavorite reports membership of bookID in the user's favorites.
func (u *User) HasFavorite(bookID string) bool {
	if u == nil {
		return false
	}
	for _, b := range u.FavoriteBooks {
		if b.ID == bookID {
			return true
		}
	}
	return false
}

// RegisterReq represents user registration payload
// swagger:model RegisterReq
type RegisterReq struct {
	FullName    string `json:"fullName" form:"fullName" validate:"required,max=120"`
	Email       string `json:"email" form:"email" validate:"required,email"`
	Password    string `json:"password" form:"password" validate:"required,min=6"`
	DateOfBirth string `json:"dateOfBirth" form:"dateOfBirth" validate:"omitempty,datetime=2006-01-02"`
	Address     string `json:"address" form:"address" validate:"max=300"`
}

// LoginReq represents login payload
// swagger:model LoginReq
type LoginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateDetailsReq struct {
	FullName    string `json:"fullName" form:"fullName" validate:"omitempty,max=120"`
	Email       string `json:"email" form:"email" validate:"omitempty,email"`
	DateOfBirth string `json:"dateOfBirth" form:"dateOfBirth" validate:"omitempty,datetime=2006-01-02"`
	Address     string `json:"address" form:"address" validate:"max=300"`
}

type UpdatePasswordReq struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

type ResetPasswordReq struct {
	Password string `json:"password" validate:"required,min=6"`
}

type UserQuery struct {
	Page   int    `query:"page"`
	Limit  int    `query:"limit"`
	Search string `query:"search"`
	Role   string `query:"role"`
}
