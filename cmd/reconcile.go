package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"collection-engine/core/mapping"
	"collection-engine/feature/inspect"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Flags for the change command
	addElements    []string
	removeElements []string
	putEntries     []string
	removeKeys     []string
	dryRunChange   bool
	yesConfirm     bool
)

// collectionCmd is the parent command for all collection operations.
var collectionCmd = &cobra.Command{
	Use:   "collection",
	Short: "Inspect and edit persistent collections",
}

var showCmd = &cobra.Command{
	Use:   "show <Owner.property> <owner id>",
	Short: "Load a collection and print its rows",
	Args:  cobra.ExactArgs(2),
	RunE:  runShow,
}

// changeCmd edits one collection and flushes the resulting row mutations.
var changeCmd = &cobra.Command{
	Use:   "change <Owner.property> <owner id>",
	Short: "Edit a collection (report + optionally flush)",
	Long: `Edit a collection and flush the resulting row mutations.

The plan is always printed first. Nothing is written until it is confirmed.

Examples:
  # Plan only
  collection change Order.lines 42 --add 5 --remove 2 --dry-run

  # Apply with interactive confirmation
  collection change Order.lines 42 --add 5

  # Apply map edits with auto-confirm
  collection change Order.attrs 42 --put color=red --remove-key size --yes`,
	Args: cobra.ExactArgs(2),
	RunE: runChange,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the collection row table",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		rt, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		if err := rt.store.Migrate(ctx); err != nil {
			return err
		}
		rt.log.Info("Collection table is up to date")
		return nil
	},
}

var purgeCmd = &cobra.Command{
	Use:   "purge <Owner.property>",
	Short: "Drop the cache region entries of a role",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		role, err := mapping.ParseRole(args[0])
		if err != nil {
			return err
		}
		rt, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		svc := inspect.NewService(rt.store, rt.purger(), rt.log)
		removed, err := svc.Purge(ctx, role)
		if err != nil {
			return err
		}
		rt.log.Info("Cache entries removed", zap.String("role", role.String()), zap.Int("count", removed))
		return nil
	},
}

func init() {
	changeCmd.Flags().StringSliceVar(&addElements, "add", nil, "Elements to add")
	changeCmd.Flags().StringSliceVar(&removeElements, "remove", nil, "Elements to remove")
	changeCmd.Flags().StringSliceVar(&putEntries, "put", nil, "Map entries to put, as key=value")
	changeCmd.Flags().StringSliceVar(&removeKeys, "remove-key", nil, "Map keys to remove")
	changeCmd.Flags().BoolVar(&dryRunChange, "dry-run", false, "Force dry-run (no mutations even with --yes)")
	changeCmd.Flags().BoolVar(&yesConfirm, "yes", false, "Auto-confirm the flush (non-interactive)")

	collectionCmd.AddCommand(showCmd, changeCmd, migrateCmd, purgeCmd)
	RootCmd.AddCommand(collectionCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	role, err := mapping.ParseRole(args[0])
	if err != nil {
		return err
	}
	rt, err := bootstrap(ctx)
	if err != nil {
		return err
	}

	report, err := inspect.NewService(rt.store, rt.purger(), rt.log).Describe(ctx, role, args[1])
	if err != nil {
		return err
	}
	r := report.Result
	rt.log.Info("Collection loaded",
		zap.String("role", r.Role),
		zap.String("owner", r.Owner),
		zap.String("classification", r.Classification),
		zap.Int("rows", len(report.Rows)),
	)
	for _, row := range report.Rows {
		rt.log.Info("Row",
			zap.Int("index", row.Index),
			zap.Any("key", row.Key),
			zap.Any("id", row.ID),
			zap.Any("value", row.Value),
		)
	}
	return nil
}

func buildChange() (inspect.Change, error) {
	change := inspect.Change{RemoveKeys: removeKeys}
	for _, v := range addElements {
		change.Add = append(change.Add, v)
	}
	for _, v := range removeElements {
		change.Remove = append(change.Remove, v)
	}
	if len(putEntries) > 0 {
		change.Put = make(map[string]any, len(putEntries))
		for _, entry := range putEntries {
			k, v, ok := strings.Cut(entry, "=")
			if !ok {
				return change, fmt.Errorf("invalid --put %q: expected key=value", entry)
			}
			change.Put[k] = v
		}
	}
	return change, nil
}

func runChange(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	role, err := mapping.ParseRole(args[0])
	if err != nil {
		return err
	}
	change, err := buildChange()
	if err != nil {
		return err
	}

	rt, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	l := rt.log
	svc := inspect.NewService(rt.store, rt.purger(), l)

	// Step 1: Plan (always runs)
	l.Info("Planning change...")
	plan, err := svc.ApplyChange(ctx, role, args[1], change, true)
	if err != nil {
		return fmt.Errorf("failed to plan change: %w", err)
	}
	printChangeReport(l, plan)

	if dryRunChange {
		l.Info("Dry-run mode: No changes were made.")
		return nil
	}
	if plan.Summary.Total() == 0 {
		l.Info("No row mutations required.")
		return nil
	}
	if !confirmDestructiveAction() {
		l.Warn("Operation cancelled by user. No changes were made.")
		return nil
	}

	// Step 2: Apply in a fresh session
	l.Info("Applying change...")
	applied, err := svc.ApplyChange(ctx, role, args[1], change, false)
	if err != nil {
		return fmt.Errorf("failed to apply change: %w", err)
	}
	l.Info("Successfully executed actions", zap.Int("count", applied.Executed))
	return nil
}

// printChangeReport prints a formatted change report using logger.
func printChangeReport(l *zap.Logger, report *inspect.ChangeReport) {
	s := report.Summary
	l.Info("Change report",
		zap.String("role", report.Result.Role),
		zap.String("owner", report.Result.Owner),
		zap.String("classification", report.Result.Classification),
		zap.Int("snapshot_size", report.Result.SnapshotSize),
		zap.Int("current_size", report.Result.CurrentSize),
		zap.Int("deletes", s.Deletes),
		zap.Int("updates", s.Updates),
		zap.Int("inserts", s.Inserts),
	)

	maxShow := min(5, len(report.Actions))
	for _, action := range report.Actions[:maxShow] {
		l.Info("Sample action",
			zap.String("type", string(action.Type)),
			zap.Any("target", action.Target),
			zap.Any("value", action.Row.Value),
			zap.String("reason", action.Reason),
		)
	}
	if len(report.Actions) > maxShow {
		l.Info("Additional actions not shown", zap.Int("count", len(report.Actions)-maxShow))
	}
}

// confirmDestructiveAction prompts the user for confirmation or uses --yes flag.
func confirmDestructiveAction() bool {
	if yesConfirm {
		fmt.Println("\n✓ Auto-confirmed via --yes flag")
		return true
	}

	fmt.Print("\n⚠️  Type 'yes' to confirm the flush: ")
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	return strings.TrimSpace(response) == "yes"
}
