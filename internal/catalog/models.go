package catalog

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid")
)

// DateLayout is the manufacture date format shared with the remote table.
const DateLayout = "2006-01-02"

type Product struct {
	Code            string  `json:"code"`
	Description     string  `json:"description"`
	ManufactureDate string  `json:"manufacture_date"`
	Cost            float64 `json:"cost"`
	Stock           int     `json:"stock"`
	Deleted         bool    `json:"deleted"`
	Synced          bool    `json:"synced"`
	ImageURI        string  `json:"image_uri"`
}

// Validate checks the fields a user can edit.
func (p *Product) Validate() error {
	if strings.TrimSpace(p.Code) == "" {
		return fmt.Errorf("%w: code is required", ErrInvalid)
	}
	if strings.TrimSpace(p.Description) == "" {
		return fmt.Errorf("%w: description is required", ErrInvalid)
	}
	if _, err := time.Parse(DateLayout, p.ManufactureDate); err != nil {
		return fmt.Errorf("%w: manufacture date must be YYYY-MM-DD", ErrInvalid)
	}
	if p.Cost < 0 {
		return fmt.Errorf("%w: cost must not be negative", ErrInvalid)
	}
	if p.Stock < 0 {
		return fmt.Errorf("%w: stock must not be negative", ErrInvalid)
	}
	return nil
}

// SameContent reports whether two products carry the same synced fields.
func (p Product) SameContent(o Product) bool {
	return p.Code == o.Code &&
		p.Description == o.Description &&
		p.ManufactureDate == o.ManufactureDate &&
		p.Cost == o.Cost &&
		p.Stock == o.Stock &&
		p.Deleted == o.Deleted &&
		p.ImageURI == o.ImageURI
}

type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	// Password is the credential shared with the remote table and the mobile
	// clients: an unsalted SHA-256 hex digest.
	Password string `json:"-"`
	// LocalHash is a bcrypt hash kept only in the local store for users
	// registered here. It is never uploaded.
	LocalHash string `json:"-"`
	Synced    bool   `json:"synced"`
}

func (u *User) Validate() error {
	if strings.TrimSpace(u.FirstName) == "" {
		return fmt.Errorf("%w: first name is required", ErrInvalid)
	}
	if strings.TrimSpace(u.LastName) == "" {
		return fmt.Errorf("%w: last name is required", ErrInvalid)
	}
	if u.Password == "" {
		return fmt.Errorf("%w: password is required", ErrInvalid)
	}
	return nil
}

// SameContent compares the fields shared with the remote table; LocalHash is
// not among them.
func (u User) SameContent(o User) bool {
	return u.ID == o.ID &&
		u.FirstName == o.FirstName &&
		u.LastName == o.LastName &&
		u.Password == o.Password
}
