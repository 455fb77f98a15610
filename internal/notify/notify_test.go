package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructors(t *testing.T) {
	assert.Equal(t, Notification{Kind: Success, Title: "Saved", Message: "ok"}, SuccessOf("Saved", "ok"))
	assert.Equal(t, Info, InfoOf("a", "").Kind)
	assert.Equal(t, Warning, WarningOf("a", "").Kind)
	assert.Equal(t, Error, ErrorOf("a", "").Kind)
}

func TestIsZero(t *testing.T) {
	assert.True(t, Notification{}.IsZero())
	assert.False(t, ErrorOf("Failed", "").IsZero())
}
