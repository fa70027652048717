package requests

// NewSession starts a browsing session
type NewSession struct {
	// empty for the locale used last
	Locale string `json:"locale"`
}

// Link follow a link found in the content of the current page
type Link struct {
	// scheme link, page location or page path relative to the current page
	Href string `json:"href"`
}

// Location navigate to an address, as done by back and forward
type Location struct {
	// url or url path /{locale}/{section}/{pagePath}
	URL string `json:"url"`
}

// Toggle open or close a single node of the tree
type Toggle struct {
	ID string `json:"id"`
}

// Locale switch the language
type Locale struct {
	Locale string `json:"locale"`
}

// Sidebar resize the sidebar
type Sidebar struct {
	Width int `json:"width"`
}
