package main

import (
	"github.com/spf13/cobra"

	"assettrack/internal/domain"
	"assettrack/internal/repos"
	"assettrack/internal/services"
)

func newLocationCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "location",
		Short: "Manage locations",
	}

	var in services.CreateLocationInput
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a location",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.catalogService()
			if err != nil {
				return err
			}
			in.Name = args[0]
			l, err := svc.CreateLocation(cmd.Context(), in)
			if err != nil {
				return err
			}
			if ctx.wantJSON() {
				return writeJSON(cmd, l)
			}
			say(cmd, "Created location %s (%s)", l.ID, l.Name)
			return nil
		},
	}
	add.Flags().StringVar(&in.ID, "id", "", "Explicit location id (generated when empty)")
	add.Flags().StringVar(&in.ParentID, "parent", "", "Enclosing location id")
	add.Flags().StringVar(&in.Notes, "notes", "", "Free-form notes")

	list := &cobra.Command{
		Use:   "list",
		Short: "List locations by name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.catalogService()
			if err != nil {
				return err
			}
			locs, err := svc.ListLocations(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.wantJSON() {
				return writeJSON(cmd, locs)
			}
			rows := make([][]string, 0, len(locs))
			for _, l := range locs {
				rows = append(rows, []string{l.ID, l.Name, orDash(l.ParentID), orDash(l.Notes)})
			}
			say(cmd, "%s", renderTable([]string{"ID", "Name", "Parent", "Notes"}, rows, nil))
			return nil
		},
	}

	cmd.AddCommand(add, list, locationUpdateCommand(ctx), locationDeleteCommand(ctx), locationTreeCommand(ctx))
	return cmd
}

func newAssetCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "asset",
		Short: "Manage assets",
	}

	var in services.CreateAssetInput
	add := &cobra.Command{
		Use:   "add <code> <name>",
		Short: "Create an asset",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.catalogService()
			if err != nil {
				return err
			}
			in.Code, in.Name = args[0], args[1]
			a, err := svc.CreateAsset(cmd.Context(), in)
			if err != nil {
				return err
			}
			if ctx.wantJSON() {
				return writeJSON(cmd, a)
			}
			say(cmd, "Created asset %s (%s)", a.Code, a.ID)
			return nil
		},
	}
	add.Flags().StringVar(&in.ID, "id", "", "Explicit asset id (generated when empty)")
	add.Flags().StringVar(&in.CategoryID, "category", "", "Category id")
	add.Flags().StringVar(&in.LocationID, "location", "", "Expected location id")
	add.Flags().StringVar(&in.Status, "status", "", "active, inactive, lost, retired or maintenance")
	add.Flags().StringVar(&in.SerialNo, "serial", "", "Serial number")
	add.Flags().StringVar(&in.Notes, "notes", "", "Free-form notes")

	show := &cobra.Command{
		Use:   "show <code-or-id>",
		Short: "Show one asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.catalogService()
			if err != nil {
				return err
			}
			a, err := svc.GetAsset(cmd.Context(), args[0])
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

	move := &cobra.Command{
		Use:   "move <code-or-id> [location-id]",
		Short: "Change where an asset is expected (no location clears it)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.catalogService()
			if err != nil {
				return err
			}
			to := ""
			if len(args) == 2 {
				to = args[1]
			}
			a, err := svc.MoveAsset(cmd.Context(), args[0], to)
			if err != nil {
				return err
			}
			if ctx.wantJSON() {
				return writeJSON(cmd, a)
			}
			say(cmd, "Asset %s now expected at %s", a.Code, orDash(a.LocationID))
			return nil
		},
	}

	cmd.AddCommand(add, show, move, assetUpdateCommand(ctx), assetDeleteCommand(ctx), assetSearchCommand(ctx))
	return cmd
}

func assetTable(a domain.Asset) string {
	rows := [][]string{
		{"ID", a.ID},
		{"Code", a.Code},
		{"Name", a.Name},
		{"Category", orDash(a.CategoryID)},
		{"Location", orDash(a.LocationID)},
		{"Status", string(a.Status)},
		{"Serial", orDash(a.SerialNo)},
		{"Notes", orDash(a.Notes)},
	}
	return renderTable([]string{"Field", "Value"}, rows, nil)
}

func newSeedDemoCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "seed-demo",
		Short: "Insert the demo categories, locations and assets into an empty database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.ensureStore(); err != nil {
				return err
			}
			if err := repos.SeedDemo(ctx.db); err != nil {
				return err
			}
			say(cmd, "Demo data ready")
			return nil
		},
	}
}
