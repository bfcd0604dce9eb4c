package main

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"assettrack/internal/domain"
	"assettrack/internal/services"
)

func newAssignmentCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "assignment",
		Aliases: []string{"loan"},
		Short:   "Check assets out to people and back in",
	}

	var in services.CheckoutInput
	var due string
	checkout := &cobra.Command{
		Use:   "checkout <asset> <user-id>",
		Short: "Assign an asset to a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.assignmentService()
			if err != nil {
				return err
			}
			in.Asset, in.UserID = args[0], args[1]
			if due != "" {
				t, err := parseWhen(due)
				if err != nil {
					return err
				}
				in.DueAt = &t
			}
			a, err := svc.Checkout(cmd.Context(), in)
			if err != nil {
				return err
			}
			if ctx.wantJSON() {
				return writeJSON(cmd, a)
			}
			say(cmd, "Checked out %s to %s as %s (due %s)", a.AssetID, a.UserID, a.ID, stamp(a.DueAt))
			return nil
		},
	}
	checkout.Flags().StringVar(&in.ID, "id", "", "Explicit assignment id (generated when empty)")
	checkout.Flags().StringVar(&due, "due", "", "Due date (2006-01-02 or RFC 3339)")
	checkout.Flags().StringVar(&in.ConditionOut, "condition", "", "Condition when handed out")
	checkout.Flags().StringVar(&in.Notes, "notes", "", "Free-form notes")

	var ret services.ReturnInput
	giveBack := &cobra.Command{
		Use:   "return <assignment-id>",
		Short: "Record that an assigned asset came back",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.assignmentService()
			if err != nil {
				return err
			}
			a, err := svc.Return(cmd.Context(), args[0], ret)
			if err != nil {
				return err
			}
			if ctx.wantJSON() {
				return writeJSON(cmd, a)
			}
			say(cmd, "Returned %s at %s", a.ID, stamp(a.ReturnedAt))
			return nil
		},
	}
	giveBack.Flags().StringVar(&ret.ConditionIn, "condition", "", "Condition on return")
	giveBack.Flags().StringVar(&ret.Notes, "notes", "", "Replaces the checkout notes when given")

	var q services.AssignmentQuery
	var returned bool
	ls := &cobra.Command{
		Use:   "list",
		Short: "List assignments, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.assignmentService()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("returned") {
				q.Returned = &returned
			}
			page, err := svc.List(cmd.Context(), q)
			if err != nil {
				return err
			}
			if ctx.wantJSON() {
				return writeJSON(cmd, page)
			}
			say(cmd, "%s", assignmentTable(page.Rows, time.Now()))
			say(cmd, "%d of %d", len(page.Rows), page.Total)
			return nil
		},
	}
	ls.Flags().StringVar(&q.UserID, "user", "", "Only this user's assignments")
	ls.Flags().StringVar(&q.Asset, "asset", "", "Only this asset (code or id)")
	ls.Flags().BoolVar(&returned, "returned", false, "true for returned only, false for outstanding only")
	ls.Flags().IntVar(&q.Limit, "limit", 0, "Rows per page (default 50)")
	ls.Flags().IntVar(&q.Offset, "offset", 0, "Rows to skip")

	overdue := &cobra.Command{
		Use:   "overdue",
		Short: "List outstanding assignments past their due date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.assignmentService()
			if err != nil {
				return err
			}
			rows, err := svc.Overdue(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.wantJSON() {
				return writeJSON(cmd, rows)
			}
			if len(rows) == 0 {
				say(cmd, "Nothing overdue")
				return nil
			}
			say(cmd, "%s", assignmentTable(rows, time.Now()))
			return nil
		},
	}

	cmd.AddCommand(checkout, giveBack, ls, overdue)
	return cmd
}

func assignmentTable(rows []domain.Assignment, now time.Time) string {
	out := make([][]string, 0, len(rows))
	for _, a := range rows {
		state := "out"
		switch {
		case !a.Outstanding():
			state = "returned"
		case a.Overdue(now):
			state = "overdue"
		}
		out = append(out, []string{a.ID, a.AssetID, a.UserID, stamp(&a.AssignedAt), stamp(a.DueAt), state})
	}
	return renderTable([]string{"ID", "Asset", "User", "Assigned", "Due", "State"}, out, nil)
}

func newTicketCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ticket",
		Short: "Track maintenance work on assets",
	}

	var in services.OpenTicketInput
	open := &cobra.Command{
		Use:   "open <asset> <title>",
		Short: "Open a maintenance ticket",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.maintenanceService()
			if err != nil {
				return err
			}
			in.Asset, in.Title = args[0], args[1]
			t, err := svc.Open(cmd.Context(), in)
			if err != nil {
				return err
			}
			if ctx.wantJSON() {
				return writeJSON(cmd, t)
			}
			say(cmd, "Opened ticket %s for %s", t.ID, t.AssetID)
			return nil
		},
	}
	open.Flags().StringVar(&in.ID, "id", "", "Explicit ticket id (generated when empty)")
	open.Flags().StringVar(&in.Description, "description", "", "What is wrong")
	open.Flags().Int64Var(&in.CostCents, "cost", 0, "Cost in cents")

	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a ticket's status, cost or text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.maintenanceService()
			if err != nil {
				return err
			}
			p := services.TicketPatch{
				Title:       changed(cmd, "title"),
				Description: changed(cmd, "description"),
				Status:      changed(cmd, "status"),
				Notes:       changed(cmd, "notes"),
			}
			if cmd.Flags().Changed("cost") {
				cost, _ := cmd.Flags().GetInt64("cost")
				p.CostCents = &cost
			}
			t, err := svc.Update(cmd.Context(), args[0], p)
			if err != nil {
				return err
			}
			if ctx.wantJSON() {
				return writeJSON(cmd, t)
			}
			say(cmd, "Ticket %s is %s (cost %s)", t.ID, t.Status, money(t.CostCents))
			return nil
		},
	}
	update.Flags().String("title", "", "New title")
	update.Flags().String("description", "", "New description (empty clears it)")
	update.Flags().String("status", "", "open, in_progress, done or canceled")
	update.Flags().String("notes", "", "Free-form notes")
	update.Flags().Int64("cost", 0, "Cost in cents")

	var q services.TicketQuery
	ls := &cobra.Command{
		Use:   "list",
		Short: "List tickets, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.maintenanceService()
			if err != nil {
				return err
			}
			page, err := svc.List(cmd.Context(), q)
			if err != nil {
				return err
			}
			if ctx.wantJSON() {
				return writeJSON(cmd, page)
			}
			rows := make([][]string, 0, len(page.Rows))
			for _, t := range page.Rows {
				rows = append(rows, []string{t.ID, t.AssetID, t.Title, string(t.Status), stamp(&t.OpenedAt), stamp(t.ClosedAt), money(t.CostCents)})
			}
			say(cmd, "%s", renderTable([]string{"ID", "Asset", "Title", "Status", "Opened", "Closed", "Cost"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight}))
			say(cmd, "%d of %d", len(page.Rows), page.Total)
			return nil
		},
	}
	ls.Flags().StringVar(&q.Asset, "asset", "", "Only this asset (code or id)")
	ls.Flags().StringVar(&q.Status, "status", "", "Only this status")
	ls.Flags().IntVar(&q.Limit, "limit", 0, "Rows per page (default 50)")
	ls.Flags().IntVar(&q.Offset, "offset", 0, "Rows to skip")

	var topN int
	top := &cobra.Command{
		Use:   "top",
		Short: "Assets with the most tickets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.maintenanceService()
			if err != nil {
				return err
			}
			counts, err := svc.TopAssets(cmd.Context(), topN)
			if err != nil {
				return err
			}
			if ctx.wantJSON() {
				return writeJSON(cmd, counts)
			}
			rows := make([][]string, 0, len(counts))
			for _, c := range counts {
				rows = append(rows, []string{c.AssetCode, c.AssetName, strconv.Itoa(c.Count)})
			}
			say(cmd, "%s", renderTable([]string{"Code", "Name", "Tickets"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight}))
			return nil
		},
	}
	top.Flags().IntVar(&topN, "limit", 10, "How many assets")

	var from, to string
	cost := &cobra.Command{
		Use:   "cost",
		Short: "Total ticket cost for tickets opened in a date range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.maintenanceService()
			if err != nil {
				return err
			}
			start, err := parseWhen(from)
			if err != nil {
				return err
			}
			end, err := parseWhen(to)
			if err != nil {
				return err
			}
			total, err := svc.TotalCost(cmd.Context(), start, end)
			if err != nil {
				return err
			}
			if ctx.wantJSON() {
				return writeJSON(cmd, map[string]any{"from": start, "to": end, "totalCostCents": total})
			}
			say(cmd, "Total cost %s", money(total))
			return nil
		},
	}
	cost.Flags().StringVar(&from, "from", "", "Range start (2006-01-02 or RFC 3339)")
	cost.Flags().StringVar(&to, "to", "", "Range end, inclusive")
	_ = cost.MarkFlagRequired("from")
	_ = cost.MarkFlagRequired("to")

	month := &cobra.Command{
		Use:   "month <year> <month>",
		Short: "Tickets opened in one calendar month (UTC)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.maintenanceService()
			if err != nil {
				return err
			}
			y, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("year %q is not a number", args[0])
			}
			m, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("month %q is not a number", args[1])
			}
			sum, err := svc.Month(cmd.Context(), y, m)
			if err != nil {
				return err
			}
			if ctx.wantJSON() {
				return writeJSON(cmd, sum)
			}
			say(cmd, "%04d-%02d: %d open, %d done, cost %s", sum.Year, sum.Month, sum.Open, sum.Done, money(sum.TotalCostCents))
			return nil
		},
	}

	cmd.AddCommand(open, update, ls, top, cost, month)
	return cmd
}

func newDashboardCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show headline counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.dashboardService()
			if err != nil {
				return err
			}
			ov, err := svc.Overview(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.wantJSON() {
				return writeJSON(cmd, ov)
			}
			rows := [][]string{
				{"Assets", strconv.Itoa(ov.Assets)},
				{"Outstanding assignments", strconv.Itoa(ov.Outstanding)},
				{"Overdue assignments", strconv.Itoa(ov.Overdue)},
				{"Open tickets", strconv.Itoa(ov.OpenTickets)},
			}
			rows = append(rows, countRows("Assets ", ov.AssetsByStatus)...)
			rows = append(rows, countRows("Audits ", ov.AuditsByStatus)...)
			say(cmd, "%s", renderTable([]string{"Metric", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
}

func countRows(prefix string, m map[string]int) [][]string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{prefix + k, strconv.Itoa(m[k])})
	}
	return rows
}
