package zendesk

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Timestamp tolerates the timestamp shapes the API emits. Missing, empty
// or unparseable values decode to the zero Timestamp instead of failing
// the whole page.
type Timestamp struct {
	t time.Time
}

func (ts Timestamp) IsZero() bool {
	return ts.t.IsZero()
}

func (ts Timestamp) Time() time.Time {
	return ts.t
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{t: t}
}

func (ts *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil || s == "" {
		ts.t = time.Time{}
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		ts.t = time.Time{}
		return nil
	}
	ts.t = parsed
	return nil
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(ts.t.Format(time.RFC3339))
}

// StringID accepts both JSON strings and bare numbers; trigger category
// IDs are documented as strings but typically numeric.
type StringID string

func (s *StringID) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		*s = ""
		return nil
	}
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		*s = StringID(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err == nil {
		*s = StringID(num.String())
		return nil
	}
	*s = StringID(strings.Trim(raw, `"`))
	return nil
}

func (s StringID) String() string {
	return string(s)
}

// Int64 returns the numeric value when the ID is numeric.
func (s StringID) Int64() (int64, bool) {
	v, err := strconv.ParseInt(string(s), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

type User struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	Role           string          `json:"role"`
	RoleType       *int            `json:"role_type"`
	Active         bool            `json:"active"`
	Suspended      bool            `json:"suspended"`
	OrganizationID *int64          `json:"organization_id"`
	Phone          string          `json:"phone"`
	Locale         string          `json:"locale"`
	TimeZone       string          `json:"time_zone"`
	CreatedAt      Timestamp       `json:"created_at"`
	UpdatedAt      Timestamp       `json:"updated_at"`
	LastLoginAt    Timestamp       `json:"last_login_at"`
	Tags           json.RawMessage `json:"tags"`
	UserFields     json.RawMessage `json:"user_fields"`
	Photo          json.RawMessage `json:"photo"`

	Raw json.RawMessage `json:"-"`
}

func (u *User) UnmarshalJSON(b []byte) error {
	type alias User
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*u = User(a)
	u.Raw = append(json.RawMessage(nil), b...)
	return nil
}

type Organization struct {
	ID                 int64           `json:"id"`
	Name               string          `json:"name"`
	ExternalID         string          `json:"external_id"`
	GroupID            *int64          `json:"group_id"`
	Details            string          `json:"details"`
	Notes              string          `json:"notes"`
	SharedTickets      bool            `json:"shared_tickets"`
	SharedComments     bool            `json:"shared_comments"`
	DomainNames        json.RawMessage `json:"domain_names"`
	Tags               json.RawMessage `json:"tags"`
	OrganizationFields json.RawMessage `json:"organization_fields"`
	CreatedAt          Timestamp       `json:"created_at"`
	UpdatedAt          Timestamp       `json:"updated_at"`

	Raw json.RawMessage `json:"-"`
}

func (o *Organization) UnmarshalJSON(b []byte) error {
	type alias Organization
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*o = Organization(a)
	o.Raw = append(json.RawMessage(nil), b...)
	return nil
}

type Ticket struct {
	ID             int64     `json:"id"`
	Subject        string    `json:"subject"`
	Description    string    `json:"description"`
	Status         string    `json:"status"`
	Priority       string    `json:"priority"`
	Type           string    `json:"type"`
	RequesterID    *int64    `json:"requester_id"`
	AssigneeID     *int64    `json:"assignee_id"`
	OrganizationID *int64    `json:"organization_id"`
	CreatedAt      Timestamp `json:"created_at"`
	UpdatedAt      Timestamp `json:"updated_at"`
	DueAt          Timestamp `json:"due_at"`

	Raw json.RawMessage `json:"-"`
}

func (t *Ticket) UnmarshalJSON(b []byte) error {
	type alias Ticket
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*t = Ticket(a)
	t.Raw = append(json.RawMessage(nil), b...)
	return nil
}

type Comment struct {
	ID          int64        `json:"id"`
	AuthorID    *int64       `json:"author_id"`
	Public      bool         `json:"public"`
	Body        string       `json:"body"`
	CreatedAt   Timestamp    `json:"created_at"`
	UpdatedAt   Timestamp    `json:"updated_at"`
	Attachments []Attachment `json:"attachments"`

	Raw json.RawMessage `json:"-"`
}

func (c *Comment) UnmarshalJSON(b []byte) error {
	type alias Comment
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*c = Comment(a)
	c.Raw = append(json.RawMessage(nil), b...)
	return nil
}

type Attachment struct {
	ID          int64           `json:"id"`
	FileName    string          `json:"file_name"`
	ContentURL  string          `json:"content_url"`
	ContentType string          `json:"content_type"`
	Size        *int64          `json:"size"`
	Thumbnails  json.RawMessage `json:"thumbnails"`
	CreatedAt   Timestamp       `json:"created_at"`

	Raw json.RawMessage `json:"-"`
}

func (a *Attachment) UnmarshalJSON(b []byte) error {
	type alias Attachment
	var aa alias
	if err := json.Unmarshal(b, &aa); err != nil {
		return err
	}
	*a = Attachment(aa)
	a.Raw = append(json.RawMessage(nil), b...)
	return nil
}

type View struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Active      bool            `json:"active"`
	Position    *int            `json:"position"`
	Default     bool            `json:"default"`
	Restriction json.RawMessage `json:"restriction"`
	Execution   json.RawMessage `json:"execution"`
	Conditions  json.RawMessage `json:"conditions"`
	CreatedAt   Timestamp       `json:"created_at"`
	UpdatedAt   Timestamp       `json:"updated_at"`

	Raw json.RawMessage `json:"-"`
}

func (v *View) UnmarshalJSON(b []byte) error {
	type alias View
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*v = View(a)
	v.Raw = append(json.RawMessage(nil), b...)
	return nil
}

type Trigger struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Active      bool            `json:"active"`
	Position    *int            `json:"position"`
	CategoryID  StringID        `json:"category_id"`
	RawTitle    string          `json:"raw_title"`
	Default     bool            `json:"default"`
	Conditions  json.RawMessage `json:"conditions"`
	Actions     json.RawMessage `json:"actions"`
	CreatedAt   Timestamp       `json:"created_at"`
	UpdatedAt   Timestamp       `json:"updated_at"`

	Raw json.RawMessage `json:"-"`
}

func (t *Trigger) UnmarshalJSON(b []byte) error {
	type alias Trigger
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*t = Trigger(a)
	t.Raw = append(json.RawMessage(nil), b...)
	return nil
}

type TriggerCategory struct {
	ID        StringID  `json:"id"`
	Name      string    `json:"name"`
	Position  *int      `json:"position"`
	CreatedAt Timestamp `json:"created_at"`
	UpdatedAt Timestamp `json:"updated_at"`

	Raw json.RawMessage `json:"-"`
}

func (tc *TriggerCategory) UnmarshalJSON(b []byte) error {
	type alias TriggerCategory
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*tc = TriggerCategory(a)
	tc.Raw = append(json.RawMessage(nil), b...)
	return nil
}

type Macro struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Active      bool            `json:"active"`
	Position    *int            `json:"position"`
	Default     bool            `json:"default"`
	Restriction json.RawMessage `json:"restriction"`
	Actions     json.RawMessage `json:"actions"`
	CreatedAt   Timestamp       `json:"created_at"`
	UpdatedAt   Timestamp       `json:"updated_at"`

	Raw json.RawMessage `json:"-"`
}

func (m *Macro) UnmarshalJSON(b []byte) error {
	type alias Macro
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*m = Macro(a)
	m.Raw = append(json.RawMessage(nil), b...)
	return nil
}

// TicketEvent carries embedded child events; Comment child events are the
// only kind the mirror extracts.
type TicketEvent struct {
	ID          int64        `json:"id"`
	TicketID    int64        `json:"ticket_id"`
	ChildEvents []ChildEvent `json:"child_events"`
}

type ChildEvent struct {
	ID          int64        `json:"id"`
	EventType   string       `json:"event_type"`
	Type        string       `json:"type"`
	AuthorID    *int64       `json:"author_id"`
	Public      bool         `json:"public"`
	Body        string       `json:"body"`
	CreatedAt   Timestamp    `json:"created_at"`
	Attachments []Attachment `json:"attachments"`

	Raw json.RawMessage `json:"-"`
}

func (ce *ChildEvent) UnmarshalJSON(b []byte) error {
	type alias ChildEvent
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*ce = ChildEvent(a)
	ce.Raw = append(json.RawMessage(nil), b...)
	return nil
}

// IsComment reports whether the child event is a comment event.
func (ce *ChildEvent) IsComment() bool {
	if ce.EventType != "" {
		return ce.EventType == "Comment"
	}
	return ce.Type == "Comment"
}
