package tui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/evently/evently-web/internal/core/domain"
	"github.com/evently/evently-web/internal/core/guard"
	"github.com/evently/evently-web/internal/core/ports"
)

// Printer is the terminal's Navigator and Notifier. Notices are written
// immediately; a navigation is remembered so the command can explain where
// the user has to go instead.
type Printer struct {
	out   io.Writer
	theme Theme

	mu     sync.Mutex
	target string
}

func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out, theme: DefaultTheme}
}

func (p *Printer) Notify(level ports.NoticeLevel, message string) {
	fmt.Fprintln(p.out, p.theme.notice(level).Render(message))
}

func (p *Printer) Navigate(target string) {
	p.mu.Lock()
	p.target = target
	p.mu.Unlock()
}

// Target is the last navigation, "" if none happened.
func (p *Printer) Target() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.target
}

// Hint translates a guard redirect target into the command to run.
func Hint(target string) string {
	switch {
	case strings.HasPrefix(target, guard.LoginPath):
		return "Run `evently login` first."
	case target == guard.VerifyNoticePath:
		return "Verify your email, then run `evently me` to refresh."
	case target == guard.UnauthorizedPath:
		return "Your account does not have access to this command."
	default:
		return ""
	}
}

// RenderProfile writes the signed-in user.
func RenderProfile(w io.Writer, u *domain.User) {
	t := DefaultTheme
	fmt.Fprintln(w, t.Title.Render(u.FullName()))
	rows := [][2]string{
		{"Email", u.Email},
		{"Role", string(u.Role)},
		{"Verified", yesNo(u.IsVerified)},
		{"Points", fmt.Sprintf("%d", u.UserPoints)},
	}
	if u.ReferralCode != nil {
		rows = append(rows, [2]string{"Referral code", *u.ReferralCode})
	}
	label := lipgloss.NewStyle().Width(15).Inherit(t.Muted)
	for _, r := range rows {
		fmt.Fprintln(w, label.Render(r[0])+r[1])
	}
}

// RenderTransactions writes one line per transaction, newest first as the
// backend returns them.
func RenderTransactions(w io.Writer, txs []domain.Transaction) {
	t := DefaultTheme
	if len(txs) == 0 {
		fmt.Fprintln(w, t.Muted.Render("No transactions yet."))
		return
	}

	idCol := lipgloss.NewStyle().Width(8)
	eventCol := lipgloss.NewStyle().Width(28)
	qtyCol := lipgloss.NewStyle().Width(5).Align(lipgloss.Right)
	totalCol := lipgloss.NewStyle().Width(16).Align(lipgloss.Right).MarginRight(2)

	fmt.Fprintln(w, t.Title.Render(
		idCol.Render("ID")+eventCol.Render("Event")+qtyCol.Render("Qty")+totalCol.Render("Total")+"Status"))
	for _, tx := range txs {
		name := fmt.Sprintf("event #%d", tx.EventID)
		if tx.Event != nil && tx.Event.Title != "" {
			name = tx.Event.Title
		}
		fmt.Fprintln(w,
			idCol.Render(fmt.Sprintf("#%d", tx.ID))+
				eventCol.Render(truncate(name, 26))+
				qtyCol.Render(fmt.Sprintf("%d", tx.Quantity))+
				totalCol.Render(t.Price.Render("IDR "+tx.TotalPrice.StringFixed(0)))+
				statusStyle(t, tx.Status).Render(string(tx.Status)))
	}
}

func statusStyle(t Theme, s domain.TransactionStatus) lipgloss.Style {
	switch s {
	case domain.TxDone:
		return t.Price
	case domain.TxRejected, domain.TxExpired, domain.TxCanceled:
		return t.Error
	default:
		return t.Warning
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
