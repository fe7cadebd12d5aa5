// model/book.go
package model

import (
	"strings"
	"time"
)

type Category string

const (
	CatFiction        Category = "Fiction"
	CatNonFiction     Category = "Non-Fiction"
	CatScienceFiction Category = "Science Fiction"
	CatMystery        Category = "Mystery"
	CatFantasy        Category = "Fantasy"
	CatBiography      Category = "Biography"
	CatHistory        Category = "History"
	CatSelfHelp       Category = "Self-Help"
	CatScience        Category = "Science"
	CatTechnology     Category = "Technology"
	CatRomance        Category = "Romance"
	CatThriller       Category = "Thriller"
	CatChildren       Category = "Children"
	CatOther          Category = "Other"
)

// Categories lists the fixed catalog categories in display order.
var Categories = []Category{
	CatFiction, CatNonFiction, CatScienceFiction, CatMystery, CatFantasy, CatBiography, CatHistory,
	CatSelfHelp, CatScience, CatTechnology, CatRomance, CatThriller, CatChildren, CatOther,
}

func ValidCategory(c string) bool {
	for _, k := range Categories {
		if string(k) == c {
			return true
		}
	}
	return false
}

// Sort keys accepted by the book listing.
const (
	SortNewest     = ""
	SortPriceAsc   = "price_asc"
	SortPriceDesc  = "price_desc"
	SortRatingDesc = "rating_desc"
	SortRatingAsc  = "rating_asc"
)

func ValidSort(s string) bool {
	switch s {
	case SortNewest, SortPriceAsc, SortPriceDesc, SortRatingDesc, SortRatingAsc:
		return true
	}
	return false
}

type Book struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	Description     string    `json:"description"`
	Category        Category  `json:"category"`
	ISBN            string    `json:"isbn"`
	PublicationYear int       `json:"publicationYear"`
	Price           float64   `json:"price"`
	TotalCopies     int       `json:"totalCopies"`
	AvailableCopies int       `json:"availableCopies"`
	Ratings         float64   `json:"ratings"`
	Reviews         []Review  `json:"reviews"`
	BorrowedCount   int       `json:"borrowedCount"`
	Image           string    `json:"image,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`

	// IsFavorite is the viewer's overlay; it is never stored with the book.
	IsFavorite bool `json:"isFavorite"`
}

type Review struct {
	ID        string    `json:"id"`
	User      UserRef   `json:"user"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

type UserRef struct {
	ID       string `json:"id"`
	FullName string `json:"fullName,omitempty"`
	Email    string `json:"email,omitempty"`
}

type BookRef struct {
	ID     string  `json:"id"`
	Title  string  `json:"title,omitempty"`
	Author string  `json:"author,omitempty"`
	Image  string  `json:"image,omitempty"`
	Price  float64 `json:"price,omitempty"`
}

// BookInput is the writable part of a book (create and update forms).
type BookInput struct {
	Title           string  `json:"title" form:"title" validate:"required,max=200"`
	Author          string  `json:"author" form:"author" validate:"required,max=120"`
	Description     string  `json:"description" form:"description" validate:"max=4000"`
	Category        string  `json:"category" form:"category" validate:"required"`
	PublicationYear int     `json:"publicationYear" form:"publicationYear" validate:"required,gte=1000,lte=9999"`
	ISBN            string  `json:"isbn" form:"isbn" validate:"required"`
	Price           float64 `json:"price" form:"price" validate:"required,gt=0"`
	TotalCopies     int     `json:"totalCopies" form:"totalCopies" validate:"required,gte=1"`
}

// BookQuery is the listing filter shared by the API and the client store.
type BookQuery struct {
	Page      int     `query:"page"`
	Limit     int     `query:"limit"`
	Search    string  `query:"search"`
	Category  string  `query:"category"`
	MinRating float64 `query:"minRating"`
	Sort      string  `query:"sort"`
}

// ValidateISBN accepts 10 or 13 digits; hyphens and spaces are ignored.
// An ISBN-10 may end in X.
func ValidateISBN(isbn string) bool {
	s := NormalizeISBN(isbn)
	switch len(s) {
	case 10:
		for i, r := range s {
			if r >= '0' && r <= '9' {
				continue
			}
			if i == 9 && r == 'X' {
				continue
			}
			return false
		}
		return true
	case 13:
		for _, r := range s {
			if r < '0' || r > '9' {
				return false
			}
		}
		return true
	}
	return false
}

func NormalizeISBN(isbn string) string {
	r := strings.NewReplacer("-", "", " ", "")
	return strings.ToUpper(r.Replace(strings.TrimSpace(isbn)))
}
