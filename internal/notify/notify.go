// Package notify describes the dismissible banners shown after an action.
package notify

// Kind is the banner category.
type Kind string

const (
	Success Kind = "success"
	Info    Kind = "info"
	Warning Kind = "warning"
	Error   Kind = "error"
)

// Notification is one banner.
type Notification struct {
	Kind    Kind   `json:"kind"`
	Title   string `json:"title"`
	Message string `json:"message,omitempty"`
}

func (n Notification) IsZero() bool { return n.Kind == "" }

func New(kind Kind, title, message string) Notification {
	return Notification{Kind: kind, Title: title, Message: message}
}

func SuccessOf(title, message string) Notification { return New(Success, title, message) }
func InfoOf(title, message string) Notification    { return New(Info, title, message) }
func WarningOf(title, message string) Notification { return New(Warning, title, message) }
func ErrorOf(title, message string) Notification   { return New(Error, title, message) }
