package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	FullName     string   `json:"fullName" validate:"required,min=3,max=100"`
	Email        string   `json:"email" validate:"required,email"`
	Password     string   `json:"password" validate:"required,min=8,password"`
	PortfolioURL string   `json:"portfolioURL" validate:"omitempty,portfolio"`
	TermsAgreed  *bool    `json:"termsAgreed" validate:"required,eq=true"`
	Preferences  []string `json:"preferences" validate:"required,min=1,max=5,unique,dive,required"`
}

func valid() sample {
	yes := true
	return sample{
		FullName:    "Jane Doe",
		Email:       "jane@example.com",
		Password:    "Secr3t!pass",
		TermsAgreed: &yes,
		Preferences: []string{"tech"},
	}
}

func TestStruct_Valid(t *testing.T) {
	require.NoError(t, Struct(valid()))
}

func TestStruct_FieldErrors(t *testing.T) {
	no := false
	s := valid()
	s.FullName = "Jo"
	s.Email = "not-an-email"
	s.TermsAgreed = &no
	s.Preferences = []string{"a", "a"}

	err := Struct(s)
	require.Error(t, err)

	var verrs Errors
	require.True(t, errors.As(err, &verrs))

	got := map[string]string{}
	for _, fe := range verrs {
		got[fe.Field] = fe.Message
	}

	assert.Equal(t, "Full name must be at least 3 characters long", got["fullName"])
	assert.Equal(t, "Please enter a valid email address", got["email"])
	assert.Equal(t, "You must agree to the terms and conditions", got["termsAgreed"])
	assert.Equal(t, "Preferences must not contain duplicates", got["preferences"])
	assert.NotContains(t, got, "password")
}

func TestStruct_MissingTerms(t *testing.T) {
	s := valid()
	s.TermsAgreed = nil

	var verrs Errors
	require.ErrorAs(t, Struct(s), &verrs)
	require.Len(t, verrs, 1)
	assert.Equal(t, "termsAgreed", verrs[0].Field)
}

func TestPassword(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"Secr3t!pass", true},
		{"Ab1@defg", true},
		{"short1!A", true},
		{"Ab1@def", false},
		{"alllower1!", false},
		{"NoDigits!!", false},
		{"NoSpecial12", false},
		{"Bad space1!", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Password(tt.in), tt.in)
	}
}

func TestPortfolioURL(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"facebook.com", true},
		{"www.my-site.org/portfolio", true},
		{"https://example.com/me", true},
		{"http://localhost:3000", true},
		{"ftp://example.com", false},
		{"not a url", false},
		{"justtext", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PortfolioURL(tt.in), tt.in)
	}
}
