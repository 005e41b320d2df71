package domain

// Page is a navigation target in the web front end.
type Page string

// Pages.
const (
	PageFreeBooks     Page = "free-books"
	PageBrowse        Page = "browse"
	PageDonate        Page = "donate"
	PageRequests      Page = "requests"
	PageDonated       Page = "donated"
	PageNotifications Page = "notifications"
)

// HomePage is where signed-out users and fresh sign-outs land.
const HomePage = PageFreeBooks

// Valid reports whether p is a known page.
func (p Page) Valid() bool {
	switch p {
	case PageFreeBooks, PageBrowse, PageDonate, PageRequests, PageDonated, PageNotifications:
		return true
	}
	return false
}

// RequiresSignIn reports whether the page is only offered to signed-in users.
func (p Page) RequiresSignIn() bool {
	return p != PageFreeBooks && p != PageBrowse
}

// PagesFor lists the pages offered in the navigation bar.
func PagesFor(signedIn bool) []Page {
	if !signedIn {
		return []Page{PageFreeBooks, PageBrowse}
	}
	return []Page{PageFreeBooks, PageBrowse, PageDonate, PageRequests, PageDonated, PageNotifications}
}
