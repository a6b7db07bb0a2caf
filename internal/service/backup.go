package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"ticketmirror/internal/client/zendesk"
	"ticketmirror/internal/config"
	"ticketmirror/internal/models"
	"ticketmirror/internal/repository"
)

const (
	cappedAttempts   = 8
	cappedRetryFloor = 500 * time.Millisecond
	cappedRetryDelay = 2 * time.Second

	// snapshotReseedLag keeps the reseeded cursor slightly behind the
	// snapshot completion time so updates racing the snapshot are not lost.
	snapshotReseedLag = time.Minute

	bootstrapFloor = 2 * time.Minute
)

// ErrPassInProgress is returned by Run when another backup pass holds the
// writer slot; cursors tolerate only one writer per resource.
var ErrPassInProgress = errors.New("a backup pass is already running")

// MirrorService runs a full backup pass: identity check, then each
// resource in a fixed order. Cursor state lives in sync_state and is only
// advanced after the page it covers has been written.
type MirrorService struct {
	Store      repository.MirrorStore
	Client     *zendesk.Client
	Writer     *EntityWriter
	Downloader *AttachmentDownloader
	Logger     *zap.Logger

	Zendesk config.ZendeskConfig
	Sync    config.SyncConfig
	Orgs    config.OrganizationsConfig
	Tickets config.TicketsConfig

	// sleep and now are replaced in tests.
	sleep func(time.Duration)
	now   func() time.Time

	// running is the writer slot: cron, the admin API and one-shot runs
	// all go through Run, so overlapping passes are refused here.
	running atomic.Bool
}

func NewMirrorService(store repository.MirrorStore, client *zendesk.Client, writer *EntityWriter, downloader *AttachmentDownloader, logger *zap.Logger, cfg config.Config) *MirrorService {
	return &MirrorService{
		Store:      store,
		Client:     client,
		Writer:     writer,
		Downloader: downloader,
		Logger:     logger,
		Zendesk:    cfg.Zendesk,
		Sync:       cfg.Sync,
		Orgs:       cfg.Organizations,
		Tickets:    cfg.Tickets,
		sleep:      time.Sleep,
		now:        time.Now,
	}
}

type syncStep struct {
	name string
	run  func(context.Context) error
}

// Running reports whether a backup pass currently holds the writer slot.
func (s *MirrorService) Running() bool {
	return s.running.Load()
}

// Run executes one complete backup pass, or ErrPassInProgress when one is
// already underway. A step failure aborts the rest of the pass unless
// continue_on_error is set; already-advanced cursors stay advanced either
// way, so the next pass resumes instead of repeating work.
func (s *MirrorService) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrPassInProgress
	}
	defer s.running.Store(false)

	if err := s.checkIdentity(ctx); err != nil {
		return err
	}
	steps := []syncStep{
		{"users", s.SyncUsers},
		{"organizations", s.SyncOrganizations},
		{"tickets", s.SyncTickets},
	}
	if s.Sync.UseTicketEvents {
		steps = append(steps, syncStep{"ticket_events", s.SyncTicketEvents})
	}
	steps = append(steps,
		syncStep{"views", s.SyncViews},
		syncStep{"triggers", s.SyncTriggers},
		syncStep{"trigger_categories", s.SyncTriggerCategories},
		syncStep{"macros", s.SyncMacros},
	)
	var firstErr error
	for _, step := range steps {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		started := s.now()
		if err := step.run(ctx); err != nil {
			s.Logger.Error("sync step failed", zap.String("resource", step.name), zap.Error(err))
			if !s.Sync.ContinueOnError {
				return fmt.Errorf("%s sync: %w", step.name, err)
			}
			if firstErr == nil {
				firstErr = fmt.Errorf("%s sync: %w", step.name, err)
			}
			continue
		}
		s.Logger.Info("sync step done",
			zap.String("resource", step.name),
			zap.Duration("elapsed", s.now().Sub(started)))
	}
	return firstErr
}

// checkIdentity verifies the credentials belong to an admin or agent
// before any paging starts. Anything else fails the whole run up front;
// end-user tokens can read some endpoints and would produce a silently
// partial mirror.
func (s *MirrorService) checkIdentity(ctx context.Context) error {
	me, err := s.Client.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("identity check: %w", err)
	}
	if me.Role != "admin" && me.Role != "agent" {
		return fmt.Errorf("identity check: role %q cannot run a backup", me.Role)
	}
	s.Logger.Info("identity verified", zap.Int64("user_id", me.ID), zap.String("role", me.Role))
	return nil
}

func (s *MirrorService) loadCursor(ctx context.Context, resource string) (string, error) {
	state, err := s.Store.GetSyncState(ctx, resource)
	if err != nil {
		return "", err
	}
	if state == nil {
		return "", nil
	}
	return state.CursorToken, nil
}

func (s *MirrorService) saveCursor(ctx context.Context, resource, token string) error {
	return s.Store.SaveSyncState(ctx, &models.SyncState{
		Resource:    resource,
		CursorToken: token,
	})
}

// bootstrapStart is the epoch start for a resource with no stored cursor:
// the configured bootstrap window back from now, floored so a zero or tiny
// window still yields a valid start time.
func (s *MirrorService) bootstrapStart() int64 {
	window := time.Duration(s.Zendesk.BootstrapHours) * time.Hour
	if window < bootstrapFloor {
		window = bootstrapFloor
	}
	return s.now().Add(-window).Unix()
}

func (s *MirrorService) SyncUsers(ctx context.Context) error {
	cursor, err := s.loadCursor(ctx, repository.ResourceUsers)
	if err != nil {
		return err
	}
	endpoint := "/api/v2/incremental/users/cursor.json"
	params := url.Values{}
	if s.Zendesk.PerPage > 0 {
		params.Set("per_page", strconv.Itoa(s.Zendesk.PerPage))
	}
	if cursor != "" {
		params.Set("cursor", cursor)
	} else {
		params.Set("start_time", strconv.FormatInt(s.bootstrapStart(), 10))
	}
	total := 0
	for {
		var page zendesk.UsersCursorPage
		if err := s.Client.GetJSON(ctx, endpoint, params, &page); err != nil {
			return err
		}
		for i := range page.Users {
			if err := s.Writer.WriteUser(ctx, &page.Users[i]); err != nil {
				return err
			}
		}
		total += len(page.Users)
		if page.AfterCursor != "" {
			if err := s.saveCursor(ctx, repository.ResourceUsers, page.AfterCursor); err != nil {
				return err
			}
		}
		if page.EndOfStream || page.NextURL() == "" {
			s.Logger.Info("users mirrored", zap.Int("total", total))
			return nil
		}
		endpoint = page.NextURL()
		params = nil
	}
}

func (s *MirrorService) SyncTickets(ctx context.Context) error {
	cursor, err := s.loadCursor(ctx, repository.ResourceTickets)
	if err != nil {
		return err
	}
	endpoint := "/api/v2/incremental/tickets/cursor.json"
	params := url.Values{}
	if s.Zendesk.PerPage > 0 {
		params.Set("per_page", strconv.Itoa(s.Zendesk.PerPage))
	}
	if s.Zendesk.Include != "" {
		params.Set("include", s.Zendesk.Include)
	}
	if s.Zendesk.ExcludeDeleted {
		params.Set("exclude_deleted", "true")
	}
	if cursor != "" {
		params.Set("cursor", cursor)
	} else {
		params.Set("start_time", strconv.FormatInt(s.bootstrapStart(), 10))
	}
	total := 0
	for {
		var page zendesk.TicketsCursorPage
		if err := s.getJSONCapped(ctx, endpoint, params, s.Tickets.RetryCap, &page); err != nil {
			return err
		}
		for i := range page.Tickets {
			t := &page.Tickets[i]
			keep, err := s.keepTicket(ctx, t)
			if err != nil {
				return err
			}
			if !keep {
				continue
			}
			if err := s.Writer.WriteTicket(ctx, t); err != nil {
				return err
			}
			// In ticket-event mode comments come from the event stream
			// instead; the two sources never run in the same pass.
			if !s.Sync.UseTicketEvents {
				if err := s.mirrorTicketComments(ctx, t.ID); err != nil {
					return err
				}
			}
			total++
		}
		if page.AfterCursor != "" {
			if err := s.saveCursor(ctx, repository.ResourceTickets, page.AfterCursor); err != nil {
				return err
			}
		}
		if page.EndOfStream || page.NextURL() == "" {
			s.Logger.Info("tickets mirrored", zap.Int("total", total))
			return nil
		}
		endpoint = page.NextURL()
		params = nil
		if s.Tickets.PageDelay > 0 {
			s.sleep(s.Tickets.PageDelay)
		}
	}
}

// keepTicket applies the retention policy. With closed_tickets_only set,
// non-closed tickets are skipped; with prune_reopened also set, a ticket
// that left the closed state is removed from the mirror together with its
// comments and attachments.
func (s *MirrorService) keepTicket(ctx context.Context, t *zendesk.Ticket) (bool, error) {
	if !s.Sync.ClosedTicketsOnly {
		return true, nil
	}
	if t.Status == "closed" {
		return true, nil
	}
	if s.Sync.PruneReopened {
		if err := s.Store.DeleteTicketCascade(ctx, t.ID); err != nil {
			return false, err
		}
		s.Logger.Info("reopened ticket pruned", zap.Int64("ticket_id", t.ID), zap.String("status", t.Status))
	}
	return false, nil
}

func (s *MirrorService) mirrorTicketComments(ctx context.Context, ticketID int64) error {
	endpoint := fmt.Sprintf("/api/v2/tickets/%d/comments.json", ticketID)
	params := url.Values{}
	if s.Zendesk.PerPage > 0 {
		params.Set("per_page", strconv.Itoa(s.Zendesk.PerPage))
	}
	for {
		var page zendesk.CommentsPage
		if err := s.Client.GetJSON(ctx, endpoint, params, &page); err != nil {
			return fmt.Errorf("comments for ticket %d: %w", ticketID, err)
		}
		for i := range page.Comments {
			c := &page.Comments[i]
			if err := s.Writer.WriteComment(ctx, ticketID, c); err != nil {
				return err
			}
			for j := range c.Attachments {
				if err := s.mirrorAttachment(ctx, ticketID, c.ID, &c.Attachments[j]); err != nil {
					return err
				}
			}
		}
		next := page.NextURL()
		if next == "" {
			return nil
		}
		endpoint = next
		params = nil
	}
}

// mirrorAttachment records attachment metadata even when the blob download
// fails; a failed download leaves local_path empty and the run continues.
func (s *MirrorService) mirrorAttachment(ctx context.Context, ticketID, commentID int64, a *zendesk.Attachment) error {
	localPath := ""
	if s.Downloader != nil {
		p, err := s.Downloader.Fetch(ctx, ticketID, a)
		if err != nil {
			s.Logger.Warn("attachment download failed",
				zap.Int64("ticket_id", ticketID),
				zap.Int64("attachment_id", a.ID),
				zap.Error(err))
		} else {
			localPath = p
		}
	}
	return s.Writer.WriteAttachment(ctx, ticketID, commentID, a, localPath)
}

// SyncOrganizations follows the epoch-based incremental endpoint. That
// endpoint can loop, serving the same trailing window forever; after
// duplicate_page_cap consecutive pages contribute no new IDs the sync
// falls back to a full snapshot listing and reseeds the cursor.
func (s *MirrorService) SyncOrganizations(ctx context.Context) error {
	cursor, err := s.loadCursor(ctx, repository.ResourceOrganizations)
	if err != nil {
		return err
	}
	if s.Orgs.ForceSnapshot || cursor == "" {
		return s.snapshotOrganizations(ctx)
	}
	start, err := strconv.ParseInt(cursor, 10, 64)
	if err != nil {
		s.Logger.Warn("organizations cursor is not an epoch, falling back to snapshot", zap.String("cursor", cursor))
		return s.snapshotOrganizations(ctx)
	}

	endpoint := "/api/v2/incremental/organizations.json"
	params := url.Values{}
	params.Set("start_time", strconv.FormatInt(start, 10))
	if s.Orgs.PerPage > 0 {
		params.Set("per_page", strconv.Itoa(s.Orgs.PerPage))
	}
	seen := make(map[int64]struct{})
	dupStreak := 0
	total := 0
	for {
		var page zendesk.OrganizationsIncrementalPage
		if err := s.getJSONCapped(ctx, endpoint, params, s.Orgs.RetryCap, &page); err != nil {
			return err
		}
		fresh := 0
		for i := range page.Organizations {
			o := &page.Organizations[i]
			if _, dup := seen[o.ID]; !dup {
				seen[o.ID] = struct{}{}
				fresh++
			}
			if err := s.Writer.WriteOrganization(ctx, o); err != nil {
				return err
			}
		}
		total += fresh
		if page.EndTime > 0 {
			if err := s.saveCursor(ctx, repository.ResourceOrganizations, strconv.FormatInt(page.EndTime, 10)); err != nil {
				return err
			}
		}
		if len(page.Organizations) > 0 && fresh == 0 {
			dupStreak++
		} else {
			dupStreak = 0
		}
		if s.Sync.DuplicatePageCap > 0 && dupStreak >= s.Sync.DuplicatePageCap {
			s.Logger.Warn("incremental organizations looping, switching to snapshot",
				zap.Int("duplicate_pages", dupStreak))
			return s.snapshotOrganizations(ctx)
		}
		// An empty page with a continuation link is not the end of the
		// stream; only an absent next_page terminates it.
		if page.NextPage == "" {
			s.Logger.Info("organizations mirrored", zap.Int("total", total))
			return nil
		}
		endpoint = page.NextPage
		params = nil
		if s.Orgs.PageDelay > 0 {
			s.sleep(s.Orgs.PageDelay)
		}
	}
}

// snapshotOrganizations walks the plain listing endpoint end to end, then
// reseeds the incremental cursor to just before now so the next run goes
// back to incremental mode.
func (s *MirrorService) snapshotOrganizations(ctx context.Context) error {
	endpoint := "/api/v2/organizations.json"
	params := url.Values{}
	if s.Orgs.PerPage > 0 {
		params.Set("per_page", strconv.Itoa(s.Orgs.PerPage))
	}
	total := 0
	for {
		var page zendesk.OrganizationsListPage
		if err := s.getJSONCapped(ctx, endpoint, params, s.Orgs.RetryCap, &page); err != nil {
			return err
		}
		for i := range page.Organizations {
			if err := s.Writer.WriteOrganization(ctx, &page.Organizations[i]); err != nil {
				return err
			}
		}
		total += len(page.Organizations)
		next := page.NextURL()
		if next == "" {
			break
		}
		endpoint = next
		params = nil
		if s.Orgs.PageDelay > 0 {
			s.sleep(s.Orgs.PageDelay)
		}
	}
	reseed := s.now().Add(-snapshotReseedLag).Unix()
	if err := s.saveCursor(ctx, repository.ResourceOrganizations, strconv.FormatInt(reseed, 10)); err != nil {
		return err
	}
	s.Logger.Info("organizations snapshot complete", zap.Int("total", total), zap.Int64("cursor_reseeded_to", reseed))
	return nil
}

// SyncTicketEvents replays comment child events from the ticket event
// stream. It is an alternative comment source for closed-only mirrors
// where per-ticket comment fan-out is too expensive.
func (s *MirrorService) SyncTicketEvents(ctx context.Context) error {
	cursor, err := s.loadCursor(ctx, repository.ResourceTicketEvents)
	if err != nil {
		return err
	}
	start := s.bootstrapStart()
	if cursor != "" {
		if parsed, perr := strconv.ParseInt(cursor, 10, 64); perr == nil {
			start = parsed
		}
	}
	endpoint := "/api/v2/incremental/ticket_events.json"
	params := url.Values{}
	params.Set("start_time", strconv.FormatInt(start, 10))
	params.Set("include", "comment_events")

	closedCache := make(map[int64]bool)
	total := 0
	for {
		var page zendesk.TicketEventsPage
		if err := s.Client.GetJSON(ctx, endpoint, params, &page); err != nil {
			return err
		}
		for i := range page.TicketEvents {
			ev := &page.TicketEvents[i]
			if s.Sync.ClosedTicketsOnly {
				closed, err := s.ticketIsClosed(ctx, ev.TicketID, closedCache)
				if err != nil {
					return err
				}
				if !closed {
					continue
				}
			}
			for j := range ev.ChildEvents {
				ce := &ev.ChildEvents[j]
				if !ce.IsComment() {
					continue
				}
				if err := s.writeChildComment(ctx, ev.TicketID, ce); err != nil {
					return err
				}
				total++
			}
		}
		if page.EndTime > 0 {
			if err := s.saveCursor(ctx, repository.ResourceTicketEvents, strconv.FormatInt(page.EndTime, 10)); err != nil {
				return err
			}
		}
		if page.NextPage == "" {
			s.Logger.Info("ticket event comments mirrored", zap.Int("total", total))
			return nil
		}
		endpoint = page.NextPage
		params = nil
	}
}

func (s *MirrorService) writeChildComment(ctx context.Context, ticketID int64, ce *zendesk.ChildEvent) error {
	c := zendesk.Comment{
		ID:          ce.ID,
		AuthorID:    ce.AuthorID,
		Public:      ce.Public,
		Body:        ce.Body,
		CreatedAt:   ce.CreatedAt,
		Attachments: ce.Attachments,
		Raw:         ce.Raw,
	}
	if err := s.Writer.WriteComment(ctx, ticketID, &c); err != nil {
		return err
	}
	for j := range c.Attachments {
		if err := s.mirrorAttachment(ctx, ticketID, c.ID, &c.Attachments[j]); err != nil {
			return err
		}
	}
	return nil
}

// ticketIsClosed resolves the ticket's current status with a one-off
// fetch, cached per run. A 404 counts as not closed.
func (s *MirrorService) ticketIsClosed(ctx context.Context, ticketID int64, cache map[int64]bool) (bool, error) {
	if closed, ok := cache[ticketID]; ok {
		return closed, nil
	}
	var page struct {
		Ticket *zendesk.Ticket `json:"ticket"`
	}
	err := s.Client.GetJSON(ctx, fmt.Sprintf("/api/v2/tickets/%d.json", ticketID), nil, &page)
	if err != nil {
		var apiErr *zendesk.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			cache[ticketID] = false
			return false, nil
		}
		return false, err
	}
	closed := page.Ticket != nil && page.Ticket.Status == "closed"
	cache[ticketID] = closed
	return closed, nil
}

func (s *MirrorService) SyncViews(ctx context.Context) error {
	endpoint := "/api/v2/views.json"
	params := s.listParams()
	total := 0
	for {
		var page zendesk.ViewsPage
		if err := s.Client.GetJSON(ctx, endpoint, params, &page); err != nil {
			return err
		}
		for i := range page.Views {
			if err := s.Writer.WriteView(ctx, &page.Views[i]); err != nil {
				return err
			}
		}
		total += len(page.Views)
		next := page.NextURL()
		if next == "" {
			s.Logger.Info("views mirrored", zap.Int("total", total))
			return nil
		}
		endpoint = next
		params = nil
	}
}

func (s *MirrorService) SyncTriggers(ctx context.Context) error {
	endpoint := "/api/v2/triggers.json"
	params := s.listParams()
	total := 0
	for {
		var page zendesk.TriggersPage
		if err := s.Client.GetJSON(ctx, endpoint, params, &page); err != nil {
			return err
		}
		for i := range page.Triggers {
			if err := s.Writer.WriteTrigger(ctx, &page.Triggers[i]); err != nil {
				return err
			}
		}
		total += len(page.Triggers)
		next := page.NextURL()
		if next == "" {
			s.Logger.Info("triggers mirrored", zap.Int("total", total))
			return nil
		}
		endpoint = next
		params = nil
	}
}

func (s *MirrorService) SyncTriggerCategories(ctx context.Context) error {
	endpoint := "/api/v2/trigger_categories.json"
	params := s.listParams()
	total := 0
	for {
		var page zendesk.TriggerCategoriesPage
		if err := s.Client.GetJSON(ctx, endpoint, params, &page); err != nil {
			return err
		}
		for i := range page.TriggerCategories {
			if err := s.Writer.WriteTriggerCategory(ctx, &page.TriggerCategories[i]); err != nil {
				return err
			}
		}
		total += len(page.TriggerCategories)
		next := page.NextURL()
		if next == "" {
			s.Logger.Info("trigger categories mirrored", zap.Int("total", total))
			return nil
		}
		endpoint = next
		params = nil
	}
}

func (s *MirrorService) SyncMacros(ctx context.Context) error {
	endpoint := "/api/v2/macros.json"
	params := s.listParams()
	total := 0
	for {
		var page zendesk.MacrosPage
		if err := s.Client.GetJSON(ctx, endpoint, params, &page); err != nil {
			return err
		}
		for i := range page.Macros {
			if err := s.Writer.WriteMacro(ctx, &page.Macros[i]); err != nil {
				return err
			}
		}
		total += len(page.Macros)
		next := page.NextURL()
		if next == "" {
			s.Logger.Info("macros mirrored", zap.Int("total", total))
			return nil
		}
		endpoint = next
		params = nil
	}
}

func (s *MirrorService) listParams() url.Values {
	params := url.Values{}
	if s.Zendesk.PerPage > 0 {
		params.Set("per_page", strconv.Itoa(s.Zendesk.PerPage))
	}
	return params
}

// getJSONCapped is the rate-limit-sensitive fetch used inside page loops:
// a 429 waits for the server hint, floored and capped, so a hostile
// Retry-After cannot stall the whole pass; other retryable statuses get a
// short fixed delay. Non-retryable statuses fail immediately.
func (s *MirrorService) getJSONCapped(ctx context.Context, rawURL string, params url.Values, retryCap time.Duration, out any) error {
	var lastErr error
	for attempt := 0; attempt < cappedAttempts; attempt++ {
		resp, err := s.Client.Do(ctx, rawURL, params)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			s.sleep(cappedRetryDelay)
			continue
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}
		if resp.StatusCode == http.StatusOK {
			if err := json.Unmarshal(body, out); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
			return nil
		}
		apiErr := &zendesk.APIError{Status: resp.StatusCode, Body: bodySnippet(body)}
		if !apiErr.Retryable() {
			return apiErr
		}
		lastErr = apiErr
		wait := cappedRetryDelay
		if resp.StatusCode == http.StatusTooManyRequests {
			wait = zendesk.RetryAfter(resp)
			if wait < cappedRetryFloor {
				wait = cappedRetryFloor
			}
			if retryCap > 0 && wait > retryCap {
				wait = retryCap
			}
		}
		s.sleep(wait)
	}
	return fmt.Errorf("GET %s exhausted retries: %w", rawURL, lastErr)
}

func bodySnippet(body []byte) string {
	const max = 300
	s := string(body)
	if len(s) > max {
		s = s[:max]
	}
	return s
}
