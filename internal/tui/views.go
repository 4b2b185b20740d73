package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/felixgeelhaar/cloudstudy/internal/nav"
	"github.com/felixgeelhaar/cloudstudy/internal/store"
)

// View renders the navbar, the mounted route and the help line.
func (m *App) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.renderNavbar())
	b.WriteString("\n")

	switch {
	case m.route == nav.RouteHome:
		b.WriteString(m.renderHome())
	case m.route == nav.RouteLogin, m.route == nav.RouteRegister:
		b.WriteString(m.renderAuthPage())
	case m.route.Within(nav.RouteDashboard):
		b.WriteString(m.renderDashboard())
	default:
		b.WriteString(m.styles.Muted.Render("Nothing here: " + string(m.route)))
	}

	b.WriteString("\n\n")
	keys := m.keys
	keys.signedIn(m.store.State().Authenticated())
	b.WriteString(m.help.View(keys))
	return b.String()
}

// renderNavbar shows the brand and either the auth links or the signed-in user
func (m *App) renderNavbar() string {
	links := []string{m.styles.Brand.Render("cloudstudy"), m.navLink("Home", nav.RouteHome)}

	if user, ok := m.store.State().User(); ok {
		links = append(links,
			m.navLink("Dashboard", nav.RouteDashboard),
			m.styles.Muted.Render(user.Email),
			m.styles.NavLink.Render("Logout"),
		)
	} else {
		links = append(links,
			m.navLink("Login", nav.RouteLogin),
			m.navLink("Register", nav.RouteRegister),
		)
	}

	return m.styles.Navbar.Render(lipgloss.JoinHorizontal(lipgloss.Top, links...))
}

func (m *App) navLink(label string, r nav.Route) string {
	active := m.route == r
	if r == nav.RouteDashboard {
		active = m.route.Within(r)
	}
	if active {
		return m.styles.NavActive.Render(label)
	}
	return m.styles.NavLink.Render(label)
}

func (m *App) renderHome() string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Cloudinary Study"))
	b.WriteString("\n")
	b.WriteString("This is a simple application to demonstrate the use of Cloudinary for image management.\n")
	b.WriteString(m.styles.Subtitle.Render("Register your user (adding a profile image) and then you can create products with images."))
	if m.errText != "" {
		b.WriteString("\n")
		b.WriteString(m.styles.Error.Render(m.errText))
	}
	return b.String()
}

// renderAuthPage renders the login or register form with its status lines
func (m *App) renderAuthPage() string {
	var b strings.Builder

	switch {
	case m.busy != "":
		b.WriteString(m.spinner.View() + " " + m.busy)
	case m.notice != "":
		b.WriteString(m.styles.Success.Render(m.notice))
		b.WriteString("\n")
		b.WriteString(m.styles.Muted.Render("Redirecting to login..."))
	case m.form != nil:
		b.WriteString(m.form.View())
	}

	if m.errText != "" {
		b.WriteString("\n")
		b.WriteString(m.styles.Error.Render(m.errText))
	}
	return b.String()
}

// renderDashboard renders the sidebar layout shared by every dashboard route
func (m *App) renderDashboard() string {
	user, ok := m.store.State().User()
	if !ok {
		// The guard redirects before this renders; keep the frame empty.
		return ""
	}

	profile := m.styles.NavLink.Render("Profile")
	if m.route == nav.RouteProfile {
		profile = m.styles.NavActive.Render("Profile")
	}
	sidebar := m.styles.Sidebar.Render(m.styles.Title.Render("Dashboard") + "\n" + profile)

	var content string
	switch m.route {
	case nav.RouteProfile:
		content = m.renderProfile(user)
	default:
		content = m.styles.Muted.Render("Welcome back, " + user.Email + ". Pick a page from the sidebar.")
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, content)
	if m.errText != "" {
		body += "\n" + m.styles.Error.Render(m.errText)
	}
	return body
}

func (m *App) renderProfile(user store.User) string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Profile"))
	b.WriteString("\n")
	b.WriteString(m.styles.Muted.Render("Email: ") + user.Email)
	b.WriteString("\n")
	b.WriteString(m.styles.Muted.Render("Role:  ") + m.styles.Badge.Render(user.DisplayRole()))
	b.WriteString("\n")
	if url, ok := user.Picture(); ok {
		b.WriteString(m.styles.Muted.Render("Image: ") + url)
	} else {
		b.WriteString(m.styles.Muted.Render("Image: none"))
	}
	return m.styles.Card.Render(b.String())
}
