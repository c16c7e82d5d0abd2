package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"studio/admin/internal/content"
	"studio/admin/internal/docstore"
	"studio/admin/internal/ordering"
)

// orderCmd groups ordering diagnostics.
var orderCmd = &cobra.Command{
	Use:   "order",
	Short: "Inspect and repair manual ordering",
}

// orderCheckCmd reports gaps, duplicates and legacy records in a scope.
var orderCheckCmd = &cobra.Command{
	Use:   "check <listing> [field=value]",
	Short: "Report how far a listing is from contiguous orders",
	Long: `Reads every record of the listing and reports gaps, duplicate orders,
negative orders and records that have no order at all. Nothing is written.

A listing partitioned by a field (projects by category) is checked one
partition at a time unless a field=value argument names a single one.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runOrderCheck,
}

// orderRenumberCmd rewrites orders to 0..n-1 in resolved order.
var orderRenumberCmd = &cobra.Command{
	Use:   "renumber <listing> [field=value]",
	Short: "Rewrite the orders of a listing to 0..n-1",
	Long: `Sorts each partition the way the admin lists it and rewrites every
ordered record whose order differs from its position. Records without an
order are left untouched; they keep sorting after the ordered ones.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runOrderRenumber,
}

func init() {
	orderCmd.AddCommand(orderCheckCmd, orderRenumberCmd)
}

func runOrderCheck(cmd *cobra.Command, args []string) error {
	e, err := openEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer e.Close()

	scopes, err := resolveScopes(cmd.Context(), e.store, args)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	dirty := 0
	for _, scope := range scopes {
		records, err := e.store.List(cmd.Context(), scope)
		if err != nil {
			return fmt.Errorf("list %s: %w", scope, err)
		}
		report := ordering.Inspect(records)
		printReport(out, scope, report)
		if !report.Contiguous() {
			dirty++
		}
	}
	if dirty > 0 {
		return fmt.Errorf("%d of %d scopes need renumbering", dirty, len(scopes))
	}
	return nil
}

func runOrderRenumber(cmd *cobra.Command, args []string) error {
	e, err := openEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer e.Close()

	scopes, err := resolveScopes(cmd.Context(), e.store, args)
	if err != nil {
		return err
	}
	manager := ordering.NewManager(e.store, e.logger, e.cfg.WriteConcurrency)
	for _, scope := range scopes {
		writes, err := manager.Normalize(cmd.Context(), scope)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d records renumbered\n", scope, writes)
	}
	return nil
}

func printReport(w io.Writer, scope docstore.Scope, r ordering.Report) {
	status := "ok"
	if !r.Contiguous() {
		status = "needs renumber"
	}
	fmt.Fprintf(w, "%s: %s (%d records, %d ordered, %d legacy)\n", scope, status, r.Total, r.Ordered, len(r.Legacy))
	if len(r.Gaps) > 0 {
		fmt.Fprintf(w, "  gaps: %v\n", r.Gaps)
	}
	for _, dup := range r.Duplicates {
		fmt.Fprintf(w, "  order %d held by %s\n", dup.Order, strings.Join(dup.IDs, ", "))
	}
	if len(r.Negative) > 0 {
		fmt.Fprintf(w, "  negative: %s\n", strings.Join(r.Negative, ", "))
	}
	if len(r.Legacy) > 0 {
		fmt.Fprintf(w, "  without order: %s\n", strings.Join(r.Legacy, ", "))
	}
}

// resolveScopes turns "<listing> [field=value]" into the scopes to visit.
// Without a filter, a partitioned listing expands to one scope per value
// present in the store.
func resolveScopes(ctx context.Context, store docstore.Store, args []string) ([]docstore.Scope, error) {
	kind, ok := content.Kinds[args[0]]
	if !ok {
		return nil, fmt.Errorf("unknown listing %q", args[0])
	}
	if !kind.Orderable {
		return nil, fmt.Errorf("listing %q is not manually ordered", kind.Name)
	}

	if len(args) == 2 {
		scope, err := parseScope(kind, args[1])
		if err != nil {
			return nil, err
		}
		return []docstore.Scope{scope}, nil
	}
	if kind.ScopeField == "" {
		return []docstore.Scope{{Collection: kind.Collection}}, nil
	}

	records, err := store.List(ctx, docstore.Scope{Collection: kind.Collection})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind.Collection, err)
	}
	seen := map[string]bool{}
	for _, record := range records {
		if value, ok := record.Fields[kind.ScopeField]; ok && value != nil {
			seen[fmt.Sprint(value)] = true
		}
	}
	values := make([]string, 0, len(seen))
	for value := range seen {
		values = append(values, value)
	}
	sort.Strings(values)

	scopes := make([]docstore.Scope, 0, len(values))
	for _, value := range values {
		scopes = append(scopes, docstore.Scope{Collection: kind.Collection, Field: kind.ScopeField, Value: value})
	}
	return scopes, nil
}

func parseScope(kind content.Kind, arg string) (docstore.Scope, error) {
	field, value, ok := strings.Cut(arg, "=")
	field = strings.TrimSpace(field)
	if !ok || field == "" {
		return docstore.Scope{}, fmt.Errorf("scope %q must look like field=value", arg)
	}
	if field != kind.ScopeField {
		if kind.ScopeField == "" {
			return docstore.Scope{}, fmt.Errorf("listing %q is not partitioned", kind.Name)
		}
		return docstore.Scope{}, fmt.Errorf("listing %q is partitioned by %q, not %q", kind.Name, kind.ScopeField, field)
	}
	return docstore.Scope{Collection: kind.Collection, Field: field, Value: value}, nil
}
