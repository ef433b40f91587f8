package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ade80")).Bold(true)
	labelStyle = lipgloss.NewStyle().Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ade80"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#D4A017"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444")).Bold(true)
	bannerBox  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#D4A017")).
			Padding(0, 1)
)

func printHelp(out io.Writer) {
	title := titleStyle.Render("S E S S I O N C T L")
	commands := []struct{ cmd, desc string }{
		{"sessionctl inspect", "Restore and show the stored session"},
		{"sessionctl login <token>", "Store a bearer token as the session"},
		{"sessionctl validate", "Clear the session if it expired"},
		{"sessionctl watch", "Validate periodically until interrupted"},
		{"sessionctl logout", "Clear the stored session"},
		{"sessionctl menu", "Print the navigation of the session role"},
		{"sessionctl assign <id> <role>", "Record the authoritative role of a user"},
		{"sessionctl keygen", "Generate a hex seal key"},
		{"sessionctl --version", "Show version"},
	}

	fmt.Fprintf(out, "\n  %s\n\n  Commands:\n", title)
	for _, c := range commands {
		fmt.Fprintf(out, "    %s  %s\n", labelStyle.Render(fmt.Sprintf("%-30s", c.cmd)), dimStyle.Render(c.desc))
	}
	fmt.Fprintf(out, "\n  %s\n\n", dimStyle.Render("Flags: --backend --file --seal-key --roles-dsn --role --verbose"))
}

func renderError(err error) string {
	return errStyle.Render("error: ") + err.Error()
}

func renderOK(msg string) string   { return okStyle.Render("✓ ") + msg }
func renderWarn(msg string) string { return warnStyle.Render("! ") + msg }
func renderHint(msg string) string { return dimStyle.Render(msg) }

func renderSession(s authclient.Session, now time.Time) string {
	if !s.IsAuthenticated() {
		return renderHint("no session (guest)")
	}

	rows := [][2]string{
		{"user", s.UserID()},
		{"role", fmt.Sprintf("%s (%d)", s.Role.String(), s.Role.Code())},
		{"name", s.Claims.DisplayName()},
		{"expires", s.ExpiresAt.Local().Format("2006-01-02 15:04:05")},
	}
	if s.Expired(now) {
		rows = append(rows, [2]string{"status", warnStyle.Render("expired")})
	} else {
		rows = append(rows, [2]string{"status", okStyle.Render("valid for " + s.ExpiresAt.Sub(now).Round(time.Second).String())})
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("session") + "\n")
	for _, r := range rows {
		b.WriteString("  " + labelStyle.Render(fmt.Sprintf("%-8s", r[0])) + " " + r[1] + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderNavigation(nav authclient.Navigation) string {
	var b strings.Builder

	for _, entry := range nav.TopBar {
		b.WriteString(bannerBox.Render(entry.Label+"  "+dimStyle.Render(entry.Path)) + "\n")
	}

	heading := "menu for " + nav.Role.Label()
	if !nav.Authenticated {
		heading = "menu for guests"
	}
	b.WriteString(titleStyle.Render(heading) + "\n")

	for _, entry := range nav.Menu {
		b.WriteString("  " + labelStyle.Render(fmt.Sprintf("%-24s", entry.Label)) + " " + dimStyle.Render(entry.Path) + "\n")
		if entry.DividerAfter {
			b.WriteString("  " + dimStyle.Render(strings.Repeat("─", 32)) + "\n")
		}
	}

	b.WriteString(renderHint("landing: " + nav.Landing))
	return b.String()
}
