package authentication

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/nasermirzaei89/vidtube/failure"
)

const (
	maxNameLength     = 40
	maxPasswordLength = 20
)

// Email is a syntactically valid, lower-cased email address.
type Email string

func ParseEmail(s string) (Email, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", &failure.ValidationError{Field: "email", Reason: "must not be empty"}
	}

	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s || !strings.Contains(addr.Address[strings.LastIndex(addr.Address, "@"):], ".") {
		return "", &failure.ValidationError{Field: "email", Reason: "is not valid"}
	}

	return Email(strings.ToLower(addr.Address)), nil
}

// Name is a trimmed first or last name within the length limit.
type Name string

func ParseName(field, s string) (Name, error) {
	s = strings.TrimSpace(s)

	if s == "" {
		return "", &failure.ValidationError{Field: field, Reason: "must not be empty"}
	}

	if utf8.RuneCountInString(s) > maxNameLength {
		return "", &failure.ValidationError{Field: field, Reason: "should be at most 40 characters"}
	}

	return Name(s), nil
}

// Password is a plain-text password within the length limit.
type Password string

func ParsePassword(s string) (Password, error) {
	if s == "" {
		return "", &failure.ValidationError{Field: "password", Reason: "must not be empty"}
	}

	if utf8.RuneCountInString(s) > maxPasswordLength {
		return "", &failure.ValidationError{Field: "password", Reason: "should be at most 20 characters"}
	}

	return Password(s), nil
}

type SignupRequest struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

type signup struct {
	firstName Name
	lastName  Name
	email     Email
	password  Password
}

func (req SignupRequest) parse() (*signup, error) {
	firstName, err := ParseName("firstName", req.FirstName)
	if err != nil {
		return nil, err
	}

	lastName, err := ParseName("lastName", req.LastName)
	if err != nil {
		return nil, err
	}

	password, err := ParsePassword(req.Password)
	if err != nil {
		return nil, err
	}

	email, err := ParseEmail(req.Email)
	if err != nil {
		return nil, err
	}

	return &signup{
		firstName: firstName,
		lastName:  lastName,
		email:     email,
		password:  password,
	}, nil
}
