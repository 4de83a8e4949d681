package book

import "time"

type Book struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Genre     string    `json:"genre,omitempty"`
	Price     float64   `json:"price"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type CreateBookRequest struct {
	Title  string  `json:"title" binding:"required,min=1,max=200"`
	Author string  `json:"author" binding:"required,min=1,max=120"`
	Genre  string  `json:"genre" binding:"omitempty,max=60"`
	Price  float64 `json:"price" binding:"required,gt=0"`
}

// Pointer fields so a PATCH can update a subset without clobbering the rest.
type UpdateBookRequest struct {
	Title  *string  `json:"title" binding:"omitempty,min=1,max=200"`
	Author *string  `json:"author" binding:"omitempty,min=1,max=120"`
	Genre  *string  `json:"genre" binding:"omitempty,max=60"`
	Price  *float64 `json:"price" binding:"omitempty,gt=0"`
}
