package handler

import (
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/evently/evently-web/internal/core/ports"
)

// FlashCookie carries one notice across a redirect.
const FlashCookie = "flash"

// Notice is a flash message as rendered in a page model.
type Notice struct {
	Level   ports.NoticeLevel `json:"level"`
	Message string            `json:"message"`
}

// flashNotifier implements ports.Notifier by writing the flash cookie. The
// last notice of a request wins.
type flashNotifier struct {
	c      echo.Context
	secure bool
}

func newFlashNotifier(c echo.Context, secure bool) *flashNotifier {
	return &flashNotifier{c: c, secure: secure}
}

func (f *flashNotifier) Notify(level ports.NoticeLevel, message string) {
	f.c.SetCookie(&http.Cookie{
		Name:     FlashCookie,
		Value:    url.QueryEscape(string(level) + "|" + message),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		Secure:   f.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// takeFlash reads and clears the flash cookie.
func takeFlash(c echo.Context) *Notice {
	ck, err := c.Cookie(FlashCookie)
	if err != nil || ck.Value == "" {
		return nil
	}
	c.SetCookie(&http.Cookie{Name: FlashCookie, Path: "/", MaxAge: -1, HttpOnly: true})

	raw, err := url.QueryUnescape(ck.Value)
	if err != nil {
		return nil
	}
	level, msg, ok := strings.Cut(raw, "|")
	if !ok || msg == "" {
		return nil
	}
	switch ports.NoticeLevel(level) {
	case ports.NoticeInfo, ports.NoticeWarning, ports.NoticeError:
	default:
		return nil
	}
	return &Notice{Level: ports.NoticeLevel(level), Message: msg}
}

// redirectNavigator implements ports.Navigator by remembering the target;
// the handler turns it into the HTTP redirect.
type redirectNavigator struct {
	mu     sync.Mutex
	target string
}

func (n *redirectNavigator) Navigate(target string) {
	n.mu.Lock()
	n.target = target
	n.mu.Unlock()
}

func (n *redirectNavigator) Target() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.target
}
