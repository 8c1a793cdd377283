package status

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/PreboozedGoose/Vulture/internal/application"
	"github.com/PreboozedGoose/Vulture/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

type RenderOptions struct {
	Now time.Time
}

func renderView(statuses []application.AccountStatus, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Vulture Account Status"),
		s.header.Render(fmt.Sprintf("accounts: %d", len(statuses))),
	}

	if len(statuses) == 0 {
		lines = append(lines, s.empty.Render("No accounts configured."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, status := range statuses {
		lines = append(lines, s.section.Render(renderAccount(status, opts, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderAccount(status application.AccountStatus, opts RenderOptions, s styles) string {
	parts := []string{
		s.account.Render(accountTitle(status.Account)),
		s.detail.Render("session: ") + sessionLabel(status.Session, s),
		quotaLine("follows today", status.Quota.FollowsToday, status.Settings.DailyFollowLimit, s),
		quotaLine("unfollows today", status.Quota.UnfollowsToday, status.Settings.DailyUnfollowLimit, s),
		quotaLine("this hour", status.Quota.ActionsThisHour, status.Settings.ActionsPerHour, s),
	}

	if resets := hourResetLine(status.Quota, opts.Now, s); resets != "" {
		parts = append(parts, resets)
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func accountTitle(account domain.Account) string {
	name := strings.TrimSpace(account.Name)
	if name == "" || name == string(account.ID) {
		return string(account.ID)
	}
	return fmt.Sprintf("%s (%s)", name, account.ID)
}

func sessionLabel(state domain.SessionState, s styles) string {
	switch state {
	case domain.SessionAuthenticated:
		return s.stateOK.Render(string(state))
	case domain.SessionChallengePending, domain.SessionFailed:
		return s.stateBad.Render(string(state))
	default:
		return s.stateIdle.Render(string(state))
	}
}

func quotaLine(label string, used, limit int, s styles) string {
	key := s.limitKey.Render(fmt.Sprintf("%s:", label))

	if limit <= 0 {
		return lipgloss.JoinHorizontal(lipgloss.Top, key, " ", s.empty.Render("disabled"))
	}

	bar := renderQuotaBar(used, limit, 24, s)
	meta := s.detail.Render(fmt.Sprintf("%d/%d used", used, limit))

	line := lipgloss.JoinHorizontal(lipgloss.Top, key, " ", bar, " ", meta)
	if used >= limit {
		line += " " + s.warning.Render("[limit reached]")
	}
	return line
}

func renderQuotaBar(used, limit, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	fraction := float64(used) / float64(limit)
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}

	filled := int(math.Round(float64(width) * fraction))
	if filled > width {
		filled = width
	}
	empty := width - filled

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", empty)),
		s.barBracket.Render("]"),
	)
}

func hourResetLine(quota domain.QuotaState, now time.Time, s styles) string {
	if now.IsZero() || quota.HourStart.IsZero() {
		return ""
	}

	boundary := now.UTC().Truncate(time.Hour).Add(time.Hour)
	remaining := boundary.Sub(now.UTC())
	minutes := int(math.Ceil(remaining.Minutes()))
	if minutes < 1 {
		minutes = 1
	}

	return s.header.Render(fmt.Sprintf("hour window resets in %d min (%s)", minutes, boundary.Format("15:04")))
}
