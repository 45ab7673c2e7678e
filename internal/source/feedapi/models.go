package feedapi

// APIResponse is the paginated feed envelope.
type APIResponse struct {
	PageInfo PageInfo `json:"pageInfo"`
	Content  []Entry  `json:"content"`
}

type PageInfo struct {
	Page       int `json:"page"`
	NumPages   int `json:"numPages"`
	PageSize   int `json:"pageSize"`
	NumEntries int `json:"numEntries"`
}

type Entry struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Body         string   `json:"body"`
	Caption      string   `json:"caption"`
	Tags         []string `json:"tags"`
	CanonicalURL string   `json:"canonicalUrl"`
	MediaURL     string   `json:"mediaUrl"`
	Engagement   int      `json:"engagement"`
	PublishedAt  string   `json:"publishedAt"`
}
