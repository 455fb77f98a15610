package forms

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/models"
)

func newValidator(t *testing.T, lang string) *Validator {
	t.Helper()
	v, err := New(lang)
	require.NoError(t, err)
	return v
}

func TestLogin(t *testing.T) {
	v := newValidator(t, "en")

	require.True(t, v.Check(Login{Email: "user@example.com", Password: "secret1"}).OK())

	errs := v.Check(Login{Email: "bad-email", Password: "secret1"})
	require.Equal(t, FieldErrors{"email": "Invalid email format"}, errs)

	errs = v.Check(Login{})
	assert.Equal(t, "Email is required", errs["email"])
	assert.Equal(t, "Password is required", errs["password"])

	errs = v.Check(&Login{Email: "user@example.com", Password: "12345"})
	assert.Equal(t, "Password must be at least 6 characters", errs["password"])
}

func TestRegister(t *testing.T) {
	v := newValidator(t, "en")

	ok := Register{Username: "user", Email: "user@example.com", Password: "abcdef", ConfirmPassword: "abcdef"}
	require.True(t, v.Check(ok).OK())

	mismatch := ok
	mismatch.ConfirmPassword = "abcdex"
	require.Equal(t, FieldErrors{"confirm_password": "Passwords must match"}, v.Check(mismatch))

	errs := v.Check(Register{Username: "  ", Email: "nope", Password: "abc", ConfirmPassword: "abc"})
	assert.Equal(t, "Username is required", errs["username"])
	assert.Equal(t, "Invalid email address", errs["email"])
	assert.Equal(t, "Password must be at least 6 characters", errs["password"])
}

func TestTask(t *testing.T) {
	v := newValidator(t, "en")

	valid := Task{
		Title:       "Prepare the launch",
		Description: "List every step for the launch day",
		Category:    "Planning",
		DueDate:     "2025-10-30",
	}
	require.True(t, v.Check(valid).OK())

	errs := v.Check(Task{Title: "Short", Description: "Too short", Category: "Gardening", DueDate: "someday"})
	assert.Equal(t, "Title is too short.", errs["title"])
	assert.Equal(t, "Description is too short", errs["description"])
	assert.Equal(t, "Choose one of the listed categories", errs["category"])
	assert.Contains(t, errs["due_date"], "valid date")

	errs = v.Check(Task{})
	for _, field := range []string{"title", "description", "category", "due_date"} {
		assert.Equal(t, "Required", errs[field], field)
	}
}

func TestTaskFromRoundTrips(t *testing.T) {
	v := newValidator(t, "en")
	form := TaskFrom(models.Task{
		Title:       "Prepare the launch",
		Description: "List every step for the launch day",
		Category:    models.CategoryResearch,
		DueDate:     "2025-10-30",
	})
	require.True(t, v.Check(form).OK())
}

func TestRequirePriority(t *testing.T) {
	v := newValidator(t, "en")
	assert.Empty(t, v.RequirePriority(models.PriorityHigh))
	assert.Equal(t, "Select a priority", v.RequirePriority(""))
	assert.Equal(t, "Select a priority", v.RequirePriority("Urgent"))
}

func TestSubTaskAndProfile(t *testing.T) {
	v := newValidator(t, "en")
	assert.True(t, v.Check(SubTask{Title: "Draft"}).OK())
	assert.Equal(t, "Required", v.Check(SubTask{Title: " \t"})["title"])
	assert.Equal(t, "Username is required", v.Check(Profile{})["username"])
}

func TestFrenchMessages(t *testing.T) {
	v := newValidator(t, "fr")
	errs := v.Check(Register{Username: "u", Email: "u@example.com", Password: "abcdef", ConfirmPassword: "abcdex"})
	assert.Equal(t, "Les mots de passe doivent correspondre", errs["confirm_password"])

	// unknown languages fall back to English
	v = newValidator(t, "xx")
	assert.Equal(t, "Passwords must match", v.Check(Register{Username: "u", Email: "u@example.com", Password: "abcdef", ConfirmPassword: "abcdex"})["confirm_password"])
}

func TestCheckNonStruct(t *testing.T) {
	v := newValidator(t, "en")
	require.NotPanics(t, func() {
		errs := v.Check("not a form")
		require.False(t, errs.OK())
	})
}

func TestPendingTitles(t *testing.T) {
	got := PendingTitles(strings.Split("Draft\n\n  Review  \n", "\n"))
	require.Equal(t, []string{"Draft", "Review"}, got)
}
