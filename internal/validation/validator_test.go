package validation

import (
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/credit-ledger/pkg/util"
)

type signup struct {
	Name     string `json:"name" validate:"required,min=2"`
	Email    string `json:"email" validate:"required,email,emaildomain"`
	Password string `json:"password" validate:"required,strongpassword"`
}

type pinInput struct {
	Pin string `json:"pin" validate:"pin"`
}

func TestStruct_Accepts(t *testing.T) {
	v := New("gmail.com")
	err := v.Struct(signup{Name: "Ada", Email: "ada@gmail.com", Password: "Str0ng!pass"})
	require.NoError(t, err)
}

func TestStruct_FieldDetails(t *testing.T) {
	v := New("gmail.com")
	err := v.Struct(signup{Name: "A", Email: "ada@example.com", Password: "weak"})
	require.ErrorIs(t, err, apperrors.ErrValidation)

	de := apperrors.ToDomainError(err)
	require.Contains(t, de.Details, "name")
	require.Contains(t, de.Details, "email")
	require.Contains(t, de.Details, "password")
	require.Equal(t, "only @gmail.com addresses are allowed", de.Details["email"])
}

func TestStruct_EmptyDomainAcceptsAnyAddress(t *testing.T) {
	v := New("")
	require.NoError(t, v.Struct(signup{Name: "Ada", Email: "ada@example.com", Password: "Str0ng!pass"}))
}

func TestStruct_DomainIsCaseInsensitive(t *testing.T) {
	v := New("@Gmail.com")
	require.Equal(t, "gmail.com", v.EmailDomain())
	require.NoError(t, v.Struct(signup{Name: "Ada", Email: "Ada@GMAIL.COM", Password: "Str0ng!pass"}))
}

func TestPasswordProblems(t *testing.T) {
	cases := map[string]int{
		"Str0ng!pass": 0,
		"short1!A":    0,
		"alllower":    3,
		"ALLUPPER1!":  1,
		"Ab1!":        1,
		"":            5,
	}
	for pw, want := range cases {
		require.Len(t, PasswordProblems(pw), want, pw)
	}
}

func TestPin(t *testing.T) {
	v := New("")
	require.NoError(t, v.Struct(pinInput{Pin: "012345"}))

	for _, bad := range []string{"", "12345", "1234567", "12a456", "１２３４５６"} {
		err := v.Struct(pinInput{Pin: bad})
		require.ErrorIs(t, err, apperrors.ErrValidation, bad)
	}
}
