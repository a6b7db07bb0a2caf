package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"ticketmirror/internal/client/zendesk"
	"ticketmirror/internal/repository"
)

// restoreOrder fixes the dependency order so referenced rows exist before
// their referrers. Comments and attachments are not restorable resources:
// their structured rows depend on the live ticket tree and are rebuilt by
// the next backup pass instead.
var restoreOrder = []string{
	repository.ResourceUsers,
	repository.ResourceOrganizations,
	repository.ResourceTickets,
	repository.ResourceViews,
	repository.ResourceTriggers,
	repository.ResourceTriggerCategories,
	repository.ResourceMacros,
}

var restoreTables = map[string]string{
	repository.ResourceUsers:             "users",
	repository.ResourceOrganizations:     "organizations",
	repository.ResourceTickets:           "tickets",
	repository.ResourceViews:             "views",
	repository.ResourceTriggers:          "triggers",
	repository.ResourceTriggerCategories: "trigger_categories",
	repository.ResourceMacros:            "macros",
}

// RestoreOptions selects what gets rebuilt and how.
type RestoreOptions struct {
	// Scope is "all" or a comma separated list of resource names.
	Scope         string
	Limit         int
	Offset        int
	TruncateFirst bool
	DryRun        bool
}

// RestoreReport summarizes one restore pass per resource.
type RestoreReport struct {
	Restored map[string]int `json:"restored"`
	Skipped  map[string]int `json:"skipped"`
	DryRun   bool           `json:"dry_run"`
}

// RestoreService rebuilds structured tables from raw snapshots. Snapshots
// are read most-recent-first and deduplicated by entity ID, so each entity
// is written exactly once from its newest payload.
type RestoreService struct {
	Store  repository.MirrorStore
	Writer *EntityWriter
	Logger *zap.Logger
}

func NewRestoreService(store repository.MirrorStore, writer *EntityWriter, logger *zap.Logger) *RestoreService {
	return &RestoreService{Store: store, Writer: writer, Logger: logger}
}

func (r *RestoreService) Run(ctx context.Context, opts RestoreOptions) (*RestoreReport, error) {
	resources, err := resolveScope(opts.Scope)
	if err != nil {
		return nil, err
	}
	report := &RestoreReport{
		Restored: make(map[string]int),
		Skipped:  make(map[string]int),
		DryRun:   opts.DryRun,
	}
	for _, res := range resources {
		if res == repository.ResourceTickets {
			r.Logger.Warn("comments and attachments are not restorable and will be rebuilt by the next backup pass")
			break
		}
	}
	if opts.TruncateFirst && !opts.DryRun {
		tables := make([]string, 0, len(resources))
		for _, res := range resources {
			tables = append(tables, restoreTables[res])
		}
		if err := r.Store.TruncateTables(ctx, tables); err != nil {
			return nil, fmt.Errorf("truncate before restore: %w", err)
		}
	}
	for _, res := range resources {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		restored, skipped, err := r.restoreResource(ctx, res, opts)
		if err != nil {
			return nil, fmt.Errorf("restore %s: %w", res, err)
		}
		report.Restored[res] = restored
		report.Skipped[res] = skipped
		r.Logger.Info("resource restored",
			zap.String("resource", res),
			zap.Int("restored", restored),
			zap.Int("skipped", skipped),
			zap.Bool("dry_run", opts.DryRun))
	}
	return report, nil
}

// resolveScope expands "all" and validates each named resource, keeping
// the fixed restore order regardless of how the list was written.
func resolveScope(scope string) ([]string, error) {
	scope = strings.TrimSpace(scope)
	if scope == "" || scope == "all" {
		return restoreOrder, nil
	}
	wanted := make(map[string]bool)
	for _, part := range strings.Split(scope, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		if _, ok := restoreTables[name]; !ok {
			return nil, fmt.Errorf("unknown restore resource %q", name)
		}
		wanted[name] = true
	}
	if len(wanted) == 0 {
		return nil, fmt.Errorf("empty restore scope")
	}
	var resources []string
	for _, res := range restoreOrder {
		if wanted[res] {
			resources = append(resources, res)
		}
	}
	return resources, nil
}

func (r *RestoreService) restoreResource(ctx context.Context, resource string, opts RestoreOptions) (restored, skipped int, err error) {
	snaps, err := r.Store.ListRawSnapshots(ctx, resource, opts.Limit, opts.Offset)
	if err != nil {
		return 0, 0, err
	}
	seen := make(map[int64]bool, len(snaps))
	for i := range snaps {
		snap := &snaps[i]
		if seen[snap.EntityID] {
			continue
		}
		seen[snap.EntityID] = true
		if opts.DryRun {
			restored++
			continue
		}
		if err := r.applySnapshot(ctx, resource, snap.Payload); err != nil {
			r.Logger.Warn("snapshot not restorable, skipped",
				zap.String("resource", resource),
				zap.Int64("entity_id", snap.EntityID),
				zap.Error(err))
			skipped++
			continue
		}
		restored++
	}
	return restored, skipped, nil
}

func (r *RestoreService) applySnapshot(ctx context.Context, resource string, payload []byte) error {
	switch resource {
	case repository.ResourceUsers:
		var u zendesk.User
		if err := json.Unmarshal(payload, &u); err != nil {
			return err
		}
		if u.ID == 0 {
			return fmt.Errorf("payload has no id")
		}
		return r.Writer.WriteUser(ctx, &u)
	case repository.ResourceOrganizations:
		var o zendesk.Organization
		if err := json.Unmarshal(payload, &o); err != nil {
			return err
		}
		if o.ID == 0 {
			return fmt.Errorf("payload has no id")
		}
		return r.Writer.WriteOrganization(ctx, &o)
	case repository.ResourceTickets:
		var t zendesk.Ticket
		if err := json.Unmarshal(payload, &t); err != nil {
			return err
		}
		if t.ID == 0 {
			return fmt.Errorf("payload has no id")
		}
		return r.Writer.WriteTicket(ctx, &t)
	case repository.ResourceViews:
		var v zendesk.View
		if err := json.Unmarshal(payload, &v); err != nil {
			return err
		}
		if v.ID == 0 {
			return fmt.Errorf("payload has no id")
		}
		return r.Writer.WriteView(ctx, &v)
	case repository.ResourceTriggers:
		var t zendesk.Trigger
		if err := json.Unmarshal(payload, &t); err != nil {
			return err
		}
		if t.ID == 0 {
			return fmt.Errorf("payload has no id")
		}
		return r.Writer.WriteTrigger(ctx, &t)
	case repository.ResourceTriggerCategories:
		var c zendesk.TriggerCategory
		if err := json.Unmarshal(payload, &c); err != nil {
			return err
		}
		if c.ID == "" {
			return fmt.Errorf("payload has no id")
		}
		return r.Writer.WriteTriggerCategory(ctx, &c)
	case repository.ResourceMacros:
		var m zendesk.Macro
		if err := json.Unmarshal(payload, &m); err != nil {
			return err
		}
		if m.ID == 0 {
			return fmt.Errorf("payload has no id")
		}
		return r.Writer.WriteMacro(ctx, &m)
	default:
		return fmt.Errorf("resource %q is not restorable", resource)
	}
}
