package ports

// TokenStore persists the bearer credential between page loads. Absence of
// a token means the caller is anonymous.
type TokenStore interface {
	Token() (string, bool)
	SetToken(token string) error
	ClearToken() error
}

// Navigator performs a navigation side effect (HTTP redirect, screen switch).
type Navigator interface {
	Navigate(target string)
}

// NoticeLevel is the severity of a user-facing notice.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notifier shows a transient notice (toast, flash message, status line).
type Notifier interface {
	Notify(level NoticeLevel, message string)
}
