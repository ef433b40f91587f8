package authclient

// MenuEntry is display data for one navigation item.
type MenuEntry struct {
	Label        string `json:"label"`
	Path         string `json:"path"`
	Icon         string `json:"icon,omitempty"`
	DividerAfter bool   `json:"divider_after,omitempty"`
}

var (
	logoutEntry = MenuEntry{Label: "Log out", Path: DefaultLogoutPath, Icon: "logout"}

	sponsorBannerEntry = MenuEntry{Label: "Become a sponsor", Path: "/sponsor/register", Icon: "heart"}

	guestMenu = []MenuEntry{
		{Label: "Sign in", Path: DefaultLoginPath, Icon: "login"},
		{Label: "Sign up", Path: DefaultRegistrationPath, Icon: "person-add"},
	}

	// roleMenus holds the role specific entries. The logout entry is
	// appended by MenuFor and must not appear here.
	roleMenus = map[Role][]MenuEntry{
		RoleAdmin: {
			{Label: "Profile", Path: "/admin/profile", Icon: "person", DividerAfter: true},
			{Label: "Dashboard", Path: "/admin/dashboard", Icon: "dashboard"},
			{Label: "Manage accounts", Path: "/admin/accounts", Icon: "people"},
			{Label: "Donations review", Path: "/admin/donations", Icon: "inventory"},
		},
		RoleStudent: {
			{Label: "Profile", Path: "/student/profile", Icon: "person", DividerAfter: true},
			{Label: "My requests", Path: "/student/requests", Icon: "laptop"},
			{Label: "Request a laptop", Path: "/student/requests/new", Icon: "add"},
		},
		RoleSponsor: {
			{Label: "Profile", Path: "/sponsor/profile", Icon: "person", DividerAfter: true},
			{Label: "My donations", Path: "/sponsor/donations", Icon: "volunteer"},
			{Label: "Sponsored students", Path: "/sponsor/students", Icon: "school"},
		},
		RoleStaff: {
			{Label: "Profile", Path: "/staff/profile", Icon: "person", DividerAfter: true},
			{Label: "Request queue", Path: "/staff/requests", Icon: "queue"},
			{Label: "Inventory", Path: "/staff/inventory", Icon: "inventory"},
		},
		RoleManager: {
			{Label: "Profile", Path: "/manager/profile", Icon: "person", DividerAfter: true},
			{Label: "Approvals", Path: "/manager/approvals", Icon: "approval"},
			{Label: "Reports", Path: "/manager/reports", Icon: "chart"},
		},
		RoleShop: {
			{Label: "Profile", Path: "/shop/profile", Icon: "person", DividerAfter: true},
			{Label: "Orders", Path: "/shop/orders", Icon: "receipt"},
			{Label: "Products", Path: "/shop/products", Icon: "store"},
		},
	}
)

// MenuFor returns the ordered menu for role. Unauthenticated callers get the
// guest menu; authenticated roles end with the logout entry. Roles without
// a menu of their own get the student menu.
func MenuFor(role Role, authenticated bool) []MenuEntry {
	if !authenticated || role == RoleGuest {
		return cloneEntries(guestMenu)
	}

	entries, ok := roleMenus[role]
	if !ok {
		entries = roleMenus[RoleStudent]
	}

	menu := make([]MenuEntry, 0, len(entries)+1)
	menu = append(menu, entries...)
	return append(menu, logoutEntry)
}

// ShowSponsorBanner is the single rule for the "become a sponsor" entry: it
// is shown to everyone except sponsors.
func ShowSponsorBanner(role Role) bool {
	return role != RoleSponsor
}

// TopBar returns the role independent top bar entries
func TopBar(role Role, authenticated bool) []MenuEntry {
	if !authenticated {
		role = RoleGuest
	}
	if !ShowSponsorBanner(role) {
		return []MenuEntry{}
	}
	return []MenuEntry{sponsorBannerEntry}
}

// Navigation is the full navigation model for a session
type Navigation struct {
	Role          Role        `json:"role"`
	Authenticated bool        `json:"authenticated"`
	TopBar        []MenuEntry `json:"top_bar"`
	Menu          []MenuEntry `json:"menu"`
	Landing       string      `json:"landing"`
}

// NavigationFor builds the navigation model of s
func NavigationFor(s Session) Navigation {
	authenticated := s.IsAuthenticated()
	role := s.Role
	if !authenticated {
		role = RoleGuest
	}
	return Navigation{
		Role:          role,
		Authenticated: authenticated,
		TopBar:        TopBar(role, authenticated),
		Menu:          MenuFor(role, authenticated),
		Landing:       role.LandingPath(),
	}
}

func cloneEntries(entries []MenuEntry) []MenuEntry {
	return append([]MenuEntry(nil), entries...)
}
