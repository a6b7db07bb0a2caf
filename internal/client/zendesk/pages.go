package zendesk

// Links mirrors the relation-link block some listing endpoints return
// instead of a top-level next_page.
type Links struct {
	Next string `json:"next"`
}

func nextLink(nextPage string, links Links) string {
	if nextPage != "" {
		return nextPage
	}
	return links.Next
}

// Cursor-style incremental pages: continuation via after_url, completion
// via the end_of_stream sentinel.

type UsersCursorPage struct {
	Users       []User `json:"users"`
	AfterCursor string `json:"after_cursor"`
	AfterURL    string `json:"after_url"`
	Links       Links  `json:"links"`
	EndOfStream bool   `json:"end_of_stream"`
}

func (p *UsersCursorPage) NextURL() string { return nextLink(p.AfterURL, p.Links) }

type TicketsCursorPage struct {
	Tickets     []Ticket `json:"tickets"`
	AfterCursor string   `json:"after_cursor"`
	AfterURL    string   `json:"after_url"`
	Links       Links    `json:"links"`
	EndOfStream bool     `json:"end_of_stream"`
}

func (p *TicketsCursorPage) NextURL() string { return nextLink(p.AfterURL, p.Links) }

// Time-window incremental pages: continuation via next_page, the epoch
// cursor advances through end_time.

type OrganizationsIncrementalPage struct {
	Organizations []Organization `json:"organizations"`
	NextPage      string         `json:"next_page"`
	EndTime       int64          `json:"end_time"`
}

type TicketEventsPage struct {
	TicketEvents []TicketEvent `json:"ticket_events"`
	NextPage     string        `json:"next_page"`
	EndTime      int64         `json:"end_time"`
}

// Link-style listing pages: absence of a next link signals completion.

type OrganizationsListPage struct {
	Organizations []Organization `json:"organizations"`
	NextPage      string         `json:"next_page"`
	Links         Links          `json:"links"`
}

func (p *OrganizationsListPage) NextURL() string { return nextLink(p.NextPage, p.Links) }

type CommentsPage struct {
	Comments []Comment `json:"comments"`
	NextPage string    `json:"next_page"`
	Links    Links     `json:"links"`
}

func (p *CommentsPage) NextURL() string { return nextLink(p.NextPage, p.Links) }

type ViewsPage struct {
	Views    []View `json:"views"`
	NextPage string `json:"next_page"`
	Links    Links  `json:"links"`
}

func (p *ViewsPage) NextURL() string { return nextLink(p.NextPage, p.Links) }

type TriggersPage struct {
	Triggers []Trigger `json:"triggers"`
	NextPage string    `json:"next_page"`
	Links    Links     `json:"links"`
}

func (p *TriggersPage) NextURL() string { return nextLink(p.NextPage, p.Links) }

type TriggerCategoriesPage struct {
	TriggerCategories []TriggerCategory `json:"trigger_categories"`
	NextPage          string            `json:"next_page"`
	Links             Links             `json:"links"`
}

func (p *TriggerCategoriesPage) NextURL() string { return nextLink(p.NextPage, p.Links) }

type MacrosPage struct {
	Macros   []Macro `json:"macros"`
	NextPage string  `json:"next_page"`
	Links    Links   `json:"links"`
}

func (p *MacrosPage) NextURL() string { return nextLink(p.NextPage, p.Links) }
