package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/list"
	"github.com/spf13/cobra"

	"assettrack/internal/services"
)

func newCategoryCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "category",
		Short: "Manage asset categories",
	}

	var in services.CreateCategoryInput
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.catalogService()
			if err != nil {
				return err
			}
			in.Name = args[0]
			c, err := svc.CreateCategory(cmd.Context(), in)
			if err != nil {
				return err
			}
			if ctx.wantJSON() {
				return writeJSON(cmd, c)
			}
			say(cmd, "Created category %s (%s)", c.ID, c.Name)
			return nil
		},
	}
	add.Flags().StringVar(&in.ID, "id", "", "Explicit category id (generated when empty)")
	add.Flags().StringVar(&in.Description, "description", "", "Short description")

	ls := &cobra.Command{
		Use:   "list",
		Short: "List categories by name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.catalogService()
			if err != nil {
				return err
			}
			cats, err := svc.ListCategories(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.wantJSON() {
				return writeJSON(cmd, cats)
			}
			rows := make([][]string, 0, len(cats))
			for _, c := range cats {
				rows = append(rows, []string{c.ID, c.Name, orDash(c.Description)})
			}
			say(cmd, "%s", renderTable([]string{"ID", "Name", "Description"}, rows, nil))
			return nil
		},
	}

	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Rename or describe a category (an empty --description clears it)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.catalogService()
			if err != nil {
				return err
			}
			c, err := svc.UpdateCategory(cmd.Context(), args[0], services.CategoryPatch{
				Name:        changed(cmd, "name"),
				Description: changed(cmd, "description"),
			})
			if err != nil {
				return err
			}
			if ctx.wantJSON() {
				return writeJSON(cmd, c)
			}
			say(cmd, "Updated category %s (%s)", c.ID, c.Name)
			return nil
		},
	}
	update.Flags().String("name", "", "New name")
	update.Flags().String("description", "", "New description")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a category no asset uses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.catalogService()
			if err != nil {
				return err
			}
			if err := svc.DeleteCategory(cmd.Context(), args[0]); err != nil {
				return err
			}
			say(cmd, "Deleted category %s", args[0])
			return nil
		},
	}

	cmd.AddCommand(add, ls, update, del)
	return cmd
}

func locationUpdateCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit a location (an empty --parent or --notes clears it)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.catalogService()
			if err != nil {
				return err
			}
			l, err := svc.UpdateLocation(cmd.Context(), args[0], services.LocationPatch{
				Name:     changed(cmd, "name"),
				ParentID: changed(cmd, "parent"),
				Notes:    changed(cmd, "notes"),
			})
			if err != nil {
				return err
			}
			if ctx.wantJSON() {
				return writeJSON(cmd, l)
			}
			say(cmd, "Updated location %s (%s, parent %s)", l.ID, l.Name, orDash(l.ParentID))
			return nil
		},
	}
	cmd.Flags().String("name", "", "New name")
	cmd.Flags().String("parent", "", "Enclosing location id")
	cmd.Flags().String("notes", "", "Free-form notes")
	return cmd
}

func locationDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an empty location that no audit scan refers to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.catalogService()
			if err != nil {
				return err
			}
			if err := svc.DeleteLocation(cmd.Context(), args[0]); err != nil {
				return err
			}
			say(cmd, "Deleted location %s", args[0])
			return nil
		},
	}
}

func locationTreeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Show locations as a tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.catalogService()
			if err != nil {
				return err
			}
			roots, err := svc.LocationTree(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.wantJSON() {
				return writeJSON(cmd, roots)
			}
			lw := list.NewWriter()
			lw.SetStyle(list.StyleConnectedRounded)
			var walk func(nodes []*services.LocationNode)
			walk = func(nodes []*services.LocationNode) {
				for _, n := range nodes {
					lw.AppendItem(fmt.Sprintf("%s (%s)", n.Name, n.ID))
					if len(n.Children) > 0 {
						lw.Indent()
						walk(n.Children)
						lw.UnIndent()
					}
				}
			}
			walk(roots)
			say(cmd, "%s", lw.Render())
			return nil
		},
	}
}

func assetUpdateCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <code-or-id>",
		Short: "Edit an asset (an empty value clears an optional field)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.catalogService()
			if err != nil {
				return err
			}
			a, err := svc.UpdateAsset(cmd.Context(), args[0], services.AssetPatch{
				Code:       changed(cmd, "code"),
				Name:       changed(cmd, "name"),
				CategoryID: changed(cmd, "category"),
				LocationID: changed(cmd, "location"),
				Status:     changed(cmd, "status"),
				SerialNo:   changed(cmd, "serial"),
				Notes:      changed(cmd, "notes"),
			})
			if err != nil {
				return err
			}
			if ctx.wantJSON() {
				return writeJSON(cmd, a)
			}
			say(cmd, "%s", assetTable(a))
			return nil
		},
	}
	cmd.Flags().String("code", "", "New asset code")
	cmd.Flags().String("name", "", "New name")
	cmd.Flags().String("category", "", "Category id")
	cmd.Flags().String("location", "", "Expected location id")
	cmd.Flags().String("status", "", "active, inactive, lost, retired or maintenance")
	cmd.Flags().String("serial", "", "Serial number")
	cmd.Flags().String("notes", "", "Free-form notes")
	return cmd
}

func assetDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <code-or-id>",
		Short: "Delete an asset with no audit history or outstanding checkout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.catalogService()
			if err != nil {
				return err
			}
			if err := svc.DeleteAsset(cmd.Context(), args[0]); err != nil {
				return err
			}
			say(cmd, "Deleted asset %s", args[0])
			return nil
		},
	}
}

func assetSearchCommand(ctx *commandContext) *cobra.Command {
	var q services.AssetQuery
	cmd := &cobra.Command{
		Use:   "search [text]",
		Short: "Find assets by name, code or serial number",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.catalogService()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				q.Q = args[0]
			}
			page, err := svc.SearchAssets(cmd.Context(), q)
			if err != nil {
				return err
			}
			if ctx.wantJSON() {
				return writeJSON(cmd, page)
			}
			rows := make([][]string, 0, len(page.Rows))
			for _, a := range page.Rows {
				rows = append(rows, []string{a.Code, a.Name, orDash(a.CategoryID), orDash(a.LocationID), string(a.Status)})
			}
			say(cmd, "%s", renderTable([]string{"Code", "Name", "Category", "Location", "Status"}, rows, nil))
			say(cmd, "%d of %d", len(page.Rows), page.Total)
			return nil
		},
	}
	cmd.Flags().StringVar(&q.CategoryID, "category", "", "Only this category")
	cmd.Flags().StringVar(&q.LocationID, "location", "", "Only assets expected here")
	cmd.Flags().StringVar(&q.Status, "status", "", "Only this status")
	cmd.Flags().StringVar(&q.OrderBy, "order", "", "name or createdAt (default)")
	cmd.Flags().IntVar(&q.Limit, "limit", 0, "Rows per page (default 50)")
	cmd.Flags().IntVar(&q.Offset, "offset", 0, "Rows to skip")
	return cmd
}
