package responses

// AppInfo - backend application info
type AppInfo struct {
	Version string   `json:"version"`
	Locales []string `json:"locales"`
}

// HasLocale is the locale served by the backend
func (a *AppInfo) HasLocale(locale string) bool {
	if a == nil {
		return false
	}
	for _, l := range a.Locales {
		if l == locale {
			return true
		}
	}
	return false
}
