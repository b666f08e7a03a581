package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Account kinds. User and artist accounts share one shape; kind selects the
// route surface and the default role.
const (
	KindUser   = "user"
	KindArtist = "artist"
)

// Valid account roles
const (
	RoleUser   = "user"
	RoleArtist = "artist"
	RoleAdmin  = "admin"
)

var validRoles = map[string]bool{
	RoleUser:   true,
	RoleArtist: true,
	RoleAdmin:  true,
}

var validKinds = map[string]bool{
	KindUser:   true,
	KindArtist: true,
}

// Media is an externally hosted image reference.
type Media struct {
	PublicID string `json:"public_id"`
	URL      string `json:"url"`
}

type Account struct {
	ID           int64  `json:"id"`
	Kind         string `json:"kind"`
	Role         string `json:"role"`
	FirstName    string `json:"fname"`
	LastName     string `json:"lname"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`

	Avatar         *Media  `json:"avatar,omitempty"`
	Bio            string  `json:"bio,omitempty"`
	ContactNo      string  `json:"contact_no,omitempty"`
	Location       string  `json:"location,omitempty"`
	LocationServed string  `json:"location_served,omitempty"`
	Experience     string  `json:"experience,omitempty"`
	Specialisation string  `json:"specialisation,omitempty"`
	CertifiedBy    string  `json:"certified_by,omitempty"`
	Images         []Media `json:"images,omitempty"`

	// Both set while a reset is pending, both cleared otherwise.
	ResetPasswordTokenHash *string    `json:"-"`
	ResetPasswordExpiry    *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type RegisterRequest struct {
	FirstName string `json:"fname"`
	LastName  string `json:"lname"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type UpdatePasswordRequest struct {
	OldPassword     string `json:"oldPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

type UpdateProfileRequest struct {
	FirstName      *string  `json:"fname,omitempty"`
	LastName       *string  `json:"lname,omitempty"`
	Email          *string  `json:"email,omitempty"`
	Avatar         *Media   `json:"avatar,omitempty"`
	Bio            *string  `json:"bio,omitempty"`
	ContactNo      *string  `json:"contact_no,omitempty"`
	Location       *string  `json:"location,omitempty"`
	LocationServed *string  `json:"location_served,omitempty"`
	Experience     *string  `json:"experience,omitempty"`
	Specialisation *string  `json:"specialisation,omitempty"`
	CertifiedBy    *string  `json:"certified_by,omitempty"`
	Images         *[]Media `json:"images,omitempty"`
}

type UpdateRoleRequest struct {
	Role string `json:"role"`
}

// AccountInfo is the client-facing view of an account, without credential
// material.
type AccountInfo struct {
	ID             int64   `json:"id"`
	Kind           string  `json:"kind"`
	Role           string  `json:"role"`
	FirstName      string  `json:"fname"`
	LastName       string  `json:"lname"`
	Email          string  `json:"email"`
	Avatar         *Media  `json:"avatar,omitempty"`
	Bio            string  `json:"bio,omitempty"`
	ContactNo      string  `json:"contact_no,omitempty"`
	Location       string  `json:"location,omitempty"`
	LocationServed string  `json:"location_served,omitempty"`
	Experience     string  `json:"experience,omitempty"`
	Specialisation string  `json:"specialisation,omitempty"`
	CertifiedBy    string  `json:"certified_by,omitempty"`
	Images         []Media `json:"images,omitempty"`
}

func (a *Account) ToAccountInfo() *AccountInfo {
	return &AccountInfo{
		ID:             a.ID,
		Kind:           a.Kind,
		Role:           a.Role,
		FirstName:      a.FirstName,
		LastName:       a.LastName,
		Email:          a.Email,
		Avatar:         a.Avatar,
		Bio:            a.Bio,
		ContactNo:      a.ContactNo,
		Location:       a.Location,
		LocationServed: a.LocationServed,
		Experience:     a.Experience,
		Specialisation: a.Specialisation,
		CertifiedBy:    a.CertifiedBy,
		Images:         a.Images,
	}
}

func IsValidRole(role string) bool {
	return validRoles[role]
}

func IsValidKind(kind string) bool {
	return validKinds[kind]
}

// DefaultRole maps an account kind to the role it registers with.
func DefaultRole(kind string) string {
	if kind == KindArtist {
		return RoleArtist
	}
	return RoleUser
}

// Validation methods
func (r *RegisterRequest) Validate() error {
	if err := validateName("first name", r.FirstName); err != nil {
		return err
	}
	if err := validateName("last name", r.LastName); err != nil {
		return err
	}
	if r.Email == "" {
		return fmt.Errorf("email is required")
	}
	if !isValidEmail(r.Email) {
		return fmt.Errorf("invalid email format")
	}
	if r.Password == "" {
		return fmt.Errorf("password is required")
	}
	if len(r.Password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	return nil
}

func (r *UpdateProfileRequest) Validate() error {
	if r.FirstName != nil {
		if err := validateName("first name", *r.FirstName); err != nil {
			return err
		}
	}
	if r.LastName != nil {
		if err := validateName("last name", *r.LastName); err != nil {
			return err
		}
	}
	if r.Email != nil && !isValidEmail(*r.Email) {
		return fmt.Errorf("invalid email format")
	}
	if r.ContactNo != nil && !isValidContactNo(*r.ContactNo) {
		return fmt.Errorf("contact number must be exactly 10 digits")
	}
	return nil
}

func validateName(field, value string) error {
	if value == "" {
		return fmt.Errorf("%s is required", field)
	}
	if len(value) < 4 {
		return fmt.Errorf("%s cannot be less than 4 characters", field)
	}
	if len(value) > 30 {
		return fmt.Errorf("%s cannot exceed 30 characters", field)
	}
	return nil
}

// Helper functions
func isValidEmail(email string) bool {
	emailRegex := regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	return emailRegex.MatchString(email)
}

func isValidContactNo(contactNo string) bool {
	contactRegex := regexp.MustCompile(`^\d{10}$`)
	return contactRegex.MatchString(contactNo)
}

// Normalize methods
func (r *RegisterRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
}

func (r *LoginRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

func (r *ForgotPasswordRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

func (r *UpdateProfileRequest) Normalize() {
	if r.Email != nil {
		normalized := strings.ToLower(strings.TrimSpace(*r.Email))
		r.Email = &normalized
	}
	if r.FirstName != nil {
		trimmed := strings.TrimSpace(*r.FirstName)
		r.FirstName = &trimmed
	}
	if r.LastName != nil {
		trimmed := strings.TrimSpace(*r.LastName)
		r.LastName = &trimmed
	}
}
