package entities

import (
	"time"
)

type RoleName string

const (
	RoleAdmin  RoleName = "admin"
	RoleMember RoleName = "member"
)

type Role struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RoleName  RoleName  `gorm:"uniqueIndex;size:50" json:"role_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Author struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"index;size:256" json:"name"`
	Image     *Image    `gorm:"polymorphic:Imageable;" json:"image,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"index;size:256" json:"name"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Shelf struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"index;size:100" json:"name"`
	Location  string    `gorm:"size:256" json:"location,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Book struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Title         string     `gorm:"index;size:512" json:"title"`
	ISBN          string     `gorm:"column:isbn;index;size:20" json:"isbn"`
	Publisher     string     `gorm:"size:256" json:"publisher,omitempty"`
	DatePublished *time.Time `json:"date_published,omitempty"`
	AuthorID      uint       `gorm:"index" json:"author_id"`
	CategoryID    uint       `gorm:"index" json:"category_id"`
	ShelfID       uint       `gorm:"index" json:"shelf_id"`
	Author        *Author    `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Category      *Category  `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Shelf         *Shelf     `gorm:"foreignKey:ShelfID" json:"shelf,omitempty"`
	Image         *Image     `gorm:"polymorphic:Imageable;" json:"image,omitempty"`
	CreatedAt     time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"index;size:256" json:"name"`
	Email     string    `gorm:"uniqueIndex;size:255" json:"email"`
	Phone     string    `gorm:"size:32" json:"phone,omitempty"`
	Password  string    `gorm:"size:255" json:"-"` // bcrypt hash
	RoleID    uint      `gorm:"index" json:"role_id"`
	Role      *Role     `gorm:"foreignKey:RoleID" json:"role,omitempty"`
	Image     *Image    `gorm:"polymorphic:Imageable;" json:"image,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Borrowing struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"index" json:"user_id"`
	BookID       uint      `gorm:"index" json:"book_id"`
	DateBorrowed time.Time `json:"date_borrowed"`
	DueDate      time.Time `json:"due_date"`
	User         *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Book         *Book     `gorm:"foreignKey:BookID" json:"book,omitempty"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Returning struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	BorrowID     uint       `gorm:"index" json:"borrow_id"`
	UserID       uint       `gorm:"index" json:"user_id"`
	BookID       uint       `gorm:"index" json:"book_id"`
	DateReturned time.Time  `json:"date_returned"`
	DueDate      time.Time  `json:"due_date"`
	Fine         float64    `json:"fine"`
	Borrowing    *Borrowing `gorm:"foreignKey:BorrowID" json:"borrowing,omitempty"`
	User         *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Book         *Book      `gorm:"foreignKey:BookID" json:"book,omitempty"`
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// BorrowRequest is a pending request made from the client application.
type BorrowRequest struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index" json:"user_id"`
	BookID    uint      `gorm:"index" json:"book_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Book      *Book     `gorm:"foreignKey:BookID" json:"book,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Role) TableName() string          { return "roles" }
func (Author) TableName() string        { return "authors" }
func (Category) TableName() string      { return "categories" }
func (Shelf) TableName() string         { return "shelves" }
func (Book) TableName() string          { return "books" }
func (User) TableName() string          { return "users" }
func (Borrowing) TableName() string     { return "borrowings" }
func (Returning) TableName() string     { return "returnings" }
func (BorrowRequest) TableName() string { return "borrow_requests" }

func (b Book) Label() string      { return b.Title }
func (a Author) Label() string    { return a.Name }
func (c Category) Label() string  { return c.Name }
func (s Shelf) Label() string     { return s.Name }
func (u User) Label() string      { return u.Name }
func (b Borrowing) Label() string { return "borrowing" }
func (r Returning) Label() string { return "returning" }

func (b Book) OwnerRef() OwnerRef   { return OwnerRef{ID: b.ID, Kind: OwnerKindBook} }
func (a Author) OwnerRef() OwnerRef { return OwnerRef{ID: a.ID, Kind: OwnerKindAuthor} }
func (u User) OwnerRef() OwnerRef   { return OwnerRef{ID: u.ID, Kind: OwnerKindUser} }

func (b Book) Attachment() *Image   { return b.Image }
func (a Author) Attachment() *Image { return a.Image }
func (u User) Attachment() *Image   { return u.Image }
