package handler

// Route type
type Route string

const (
	// RouteCreateSession start a browsing session
	RouteCreateSession Route = "createSession"
	// RouteGetSession get the state of a session
	RouteGetSession Route = "getSession"
	// RouteDeleteSession end a session and forget it
	RouteDeleteSession Route = "deleteSession"
	// RouteFollowLink follow a link from page content
	RouteFollowLink Route = "followLink"
	// RouteNavigate go to a location
	RouteNavigate Route = "navigate"
	// RouteToggle open or close a tree node
	RouteToggle Route = "toggle"
	// RouteSetLocale switch the language
	RouteSetLocale Route = "setLocale"
	// RouteSetSidebar resize the sidebar
	RouteSetSidebar Route = "setSidebar"
	// RouteGetContent get the content of the selected page
	RouteGetContent Route = "getContent"
	// RouteRetry retry what failed last
	RouteRetry Route = "retry"
	// RouteSearch full text search
	RouteSearch Route = "search"
	// RouteGetLocales available locales
	RouteGetLocales Route = "getLocales"
)
