package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"assettrack/internal/domain"
	"assettrack/internal/services"
)

func newAuditCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Create and inspect audits",
	}
	cmd.AddCommand(
		newAuditCreateCommand(ctx),
		newAuditTransitionCommand(ctx, "start", "Move a draft audit to in progress"),
		newAuditTransitionCommand(ctx, "finalize", "Finalize an in-progress audit"),
		newAuditListCommand(ctx),
		newAuditSeedCommand(ctx),
		newAuditScanCommand(ctx),
		newAuditProgressCommand(ctx),
		newAuditMismatchesCommand(ctx),
		newAuditSummaryCommand(ctx),
		newAuditItemsCommand(ctx),
	)
	return cmd
}

func newAuditCreateCommand(ctx *commandContext) *cobra.Command {
	var in services.CreateAuditInput
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a draft audit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.auditService()
			if err != nil {
				return err
			}
			a, err := svc.Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			if ctx.wantJSON() {
				return writeJSON(cmd, a)
			}
			say(cmd, "Created audit %s (%s)", a.ID, a.Title)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Title, "title", "", "Audit title")
	cmd.Flags().StringVar(&in.ID, "id", "", "Explicit audit id (generated when empty)")
	cmd.Flags().StringVar(&in.LocationID, "location", "", "Location the audit covers")
	cmd.Flags().StringVar(&in.Notes, "notes", "", "Free-form notes")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newAuditTransitionCommand(ctx *commandContext, verb, short string) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <audit-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.auditService()
			if err != nil {
				return err
			}
			op := svc.Start
			if verb == "finalize" {
				op = svc.Finalize
			}
			a, err := op(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if ctx.wantJSON() {
				return writeJSON(cmd, a)
			}
			say(cmd, "Audit %s is now %s", a.ID, statusText(cmd, a.Status))
			return nil
		},
	}
}

func newAuditListCommand(ctx *commandContext) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List audits, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.auditService()
			if err != nil {
				return err
			}
			audits, err := svc.List(cmd.Context(), status)
			if err != nil {
				return err
			}
			if ctx.wantJSON() {
				return writeJSON(cmd, audits)
			}
			if len(audits) == 0 {
				say(cmd, "No audits")
				return nil
			}
			rows := make([][]string, 0, len(audits))
			for _, a := range audits {
				rows = append(rows, []string{a.ID, a.Title, orDash(a.LocationID), statusText(cmd, a.Status), stamp(a.StartedAt), stamp(a.FinalizedAt)})
			}
			say(cmd, "%s", renderTable([]string{"ID", "Title", "Location", "Status", "Started", "Finalized"}, rows, nil))
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Only audits in this status (draft, in_progress, finalized)")
	return cmd
}

func newAuditSeedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <audit-id> <location-id>",
		Short: "Add unscanned items for every asset expected at a location",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.auditService()
			if err != nil {
				return err
			}
			n, err := svc.SeedFromLocation(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if ctx.wantJSON() {
				return writeJSON(cmd, map[string]int{"added": n})
			}
			say(cmd, "Added %d items from %s", n, args[1])
			return nil
		},
	}
}

func newAuditScanCommand(ctx *commandContext) *cobra.Command {
	var foundAt, condition, notes string
	cmd := &cobra.Command{
		Use:   "scan <audit-id> <asset-code-or-id>",
		Short: "Record that an asset was found",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.auditService()
			if err != nil {
				return err
			}
			var p services.ScanPayload
			if cmd.Flags().Changed("found-at") {
				p.FoundLocationID = &foundAt
			}
			if cmd.Flags().Changed("condition") {
				p.Condition = &condition
			}
			if cmd.Flags().Changed("notes") {
				p.Notes = &notes
			}
			it, err := svc.Scan(cmd.Context(), args[0], args[1], p)
			if err != nil {
				return err
			}
			if ctx.wantJSON() {
				return writeJSON(cmd, it)
			}
			say(cmd, "Scanned %s at %s", args[1], orDash(it.FoundLocationID))
			return nil
		},
	}
	cmd.Flags().StringVar(&foundAt, "found-at", "", "Location where the asset was found")
	cmd.Flags().StringVar(&condition, "condition", "", "Observed condition")
	cmd.Flags().StringVar(&notes, "notes", "", "Scan notes")
	return cmd
}

func newAuditProgressCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "progress <audit-id>",
		Short: "Show how many items have been found",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.auditService()
			if err != nil {
				return err
			}
			p, err := svc.Progress(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if ctx.wantJSON() {
				return writeJSON(cmd, p)
			}
			say(cmd, "%s", progressLine(p))
			return nil
		},
	}
}

func progressLine(p domain.Progress) string {
	return fmt.Sprintf("Found %d of %d (%d%%)", p.Found, p.Total, p.Percent)
}

func mismatchTable(mm []domain.Mismatch) string {
	rows := make([][]string, 0, len(mm))
	for _, m := range mm {
		rows = append(rows, []string{m.AssetCode, m.AssetName, orDash(m.ExpectedLocationID), orDash(m.FoundLocationID)})
	}
	return renderTable([]string{"Code", "Asset", "Expected", "Found at"}, rows, nil)
}

func newAuditMismatchesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "mismatches <audit-id>",
		Short: "List found assets recorded away from their expected location",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.auditService()
			if err != nil {
				return err
			}
			mm, err := svc.Mismatches(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if ctx.wantJSON() {
				return writeJSON(cmd, mm)
			}
			if len(mm) == 0 {
				say(cmd, "No mismatches")
				return nil
			}
			say(cmd, "%s", mismatchTable(mm))
			return nil
		},
	}
}

func newAuditSummaryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "summary <audit-id>",
		Short: "Show progress and mismatches together",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.auditService()
			if err != nil {
				return err
			}
			s, err := svc.Summary(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if ctx.wantJSON() {
				return writeJSON(cmd, s)
			}
			say(cmd, "%s", progressLine(s.Progress))
			say(cmd, "Mismatches: %d", len(s.Mismatches))
			if len(s.Mismatches) > 0 {
				say(cmd, "%s", mismatchTable(s.Mismatches))
			}
			return nil
		},
	}
}

func newAuditItemsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "items <audit-id>",
		Short: "List the audit's items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.auditService()
			if err != nil {
				return err
			}
			items, err := svc.Items(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if ctx.wantJSON() {
				return writeJSON(cmd, items)
			}
			rows := make([][]string, 0, len(items))
			for i, it := range items {
				rows = append(rows, []string{
					strconv.Itoa(i + 1), it.AssetCode, it.AssetName, orDash(it.ExpectedLocationID),
					yesNo(it.Found), orDash(it.FoundLocationID), orDash(it.Condition), stamp(it.ScannedAt),
				})
			}
			say(cmd, "%s", renderTable(
				[]string{"#", "Code", "Asset", "Expected", "Found", "Found at", "Condition", "Scanned"},
				rows,
				[]columnAlignment{alignRight},
			))
			return nil
		},
	}
}
