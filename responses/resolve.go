package responses

// Resolve - answer of the backend resolve endpoints
type Resolve struct {
	SectionTitle string   `json:"sectionTitle"`
	PageLocation string   `json:"pageLocation"`
	SectionPath  string   `json:"sectionPath"`
	PagePath     []string `json:"pagePath"` // page paths from the section root down to the target
}

// Found the backend mapped the token to a page
func (r *Resolve) Found() bool {
	return r != nil && len(r.PagePath) > 0
}
