package models

import (
	"strconv"
	"strings"
	"time"
)

// User represents a row in the PostgreSQL users table.
type User struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	Password   string    `json:"-"` // never serialize
	StudentID  string    `json:"student_id"`
	Year       string    `json:"year"`
	Department string    `json:"department"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ProfileComplete reports whether the user has filled in the mandatory
// profile fields. A username equal to the student id is the registration
// placeholder and does not count.
func (u *User) ProfileComplete() bool {
	return u.Username != "" && u.Username != u.StudentID && u.Department != "" && u.Year != ""
}

// StudentIDFromEmail returns the registration number encoded as the part of
// an institutional address before the first dot.
func StudentIDFromEmail(email string) string {
	email = strings.TrimSpace(email)
	if i := strings.IndexByte(email, '.'); i >= 0 {
		return email[:i]
	}
	if i := strings.IndexByte(email, '@'); i >= 0 {
		return email[:i]
	}
	return email
}

var academicYears = [...]string{"I", "II", "III", "IV"}

// AcademicYear derives the year of study from the two-digit joining year
// that prefixes a registration number. It returns "" when the number does
// not map to years one to four.
func AcademicYear(regNo string, now time.Time) string {
	if len(regNo) < 2 {
		return ""
	}
	joined, err := strconv.Atoi(regNo[:2])
	if err != nil {
		return ""
	}
	diff := now.Year()%100 - joined + 1
	if diff < 1 || diff > len(academicYears) {
		return ""
	}
	return academicYears[diff-1]
}

// RegisterRequest is the JSON body for POST /api/auth/register.
type RegisterRequest struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Year       string `json:"year"`
	Department string `json:"department"`
}

// LoginRequest is the JSON body for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ProfileRequest is the JSON body for PUT /api/auth/profile.
type ProfileRequest struct {
	Username   string `json:"username"`
	Year       string `json:"year"`
	Department string `json:"department"`
}

// Profile is the response of GET /api/auth/me.
type Profile struct {
	*User
	ProfileComplete bool   `json:"profile_complete"`
	AcademicYear    string `json:"academic_year"`
}
