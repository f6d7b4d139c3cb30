package cli

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Simplici0/woodshop/internal/catalog"
	"github.com/Simplici0/woodshop/internal/costing"
	"github.com/Simplici0/woodshop/internal/metrics"
	"github.com/Simplici0/woodshop/internal/migrations"
	"github.com/Simplici0/woodshop/internal/money"
	"github.com/Simplici0/woodshop/internal/seed"
)

// migrateCommand creates the "migrate" command.
func (c *CLI) migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, closeStore, err := c.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			version, err := migrations.Version(st.DB())
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "database %s at migration %d\n", c.cfg.DBPath, version)
			return nil
		},
	}
}

// seedCommand creates the "seed" command.
func (c *CLI) seedCommand() *cobra.Command {
	var demo bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert the admin user, default rates and optionally a demo catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, closeStore, err := c.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			stats, err := seed.Run(st.DB(), seed.Config{
				AdminEmail:    c.cfg.AdminEmail,
				AdminPassword: c.cfg.AdminPassword,
				DemoCatalog:   demo,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "seed: %d inserted, %d updated\n", stats.Inserts, stats.Updates)
			return nil
		},
	}

	cmd.Flags().BoolVar(&demo, "demo", false, "add the demo cabinet catalog")
	return cmd
}

// costCommand creates the "cost" command.
func (c *CLI) costCommand() *cobra.Command {
	var (
		fromSupabase bool
		all          bool
		currency     string
	)

	cmd := &cobra.Command{
		Use:   "cost [product-id]",
		Short: "Roll up the unit cost of a product from its bill of materials",
		Args: func(cmd *cobra.Command, args []string) error {
			if all {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := c.loadCatalog(cmd.Context(), fromSupabase)
			if err != nil {
				return err
			}
			reporter := costing.Multi(costing.LogReporter(c.Logger), metrics.Reporter())
			w := out(cmd)

			if all {
				costs := costing.CostAll(cat, reporter)
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tTYPE\tCOST")
				for _, p := range cat.Products() {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Type, money.Format(costs[p.ID], currency))
				}
				return tw.Flush()
			}

			id := args[0]
			if _, ok := cat.Get(id); !ok {
				return fmt.Errorf("product %s not found", id)
			}
			metrics.RecordRollup("cli")
			res := costing.Rollup(cat, id, reporter)

			fmt.Fprintf(w, "%s (%s) %s\n", res.Name, res.ProductID, res.Type)
			if len(res.Lines) > 0 {
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "COMPONENT\tQTY\tUNIT COST\tEXTENDED")
				for _, l := range res.Lines {
					name := l.ComponentID
					if l.Name != "" {
						name = l.Name + " (" + l.ComponentID + ")"
					}
					fmt.Fprintf(tw, "%s\t%g\t%s\t%s\n", name, l.Quantity, money.String(l.UnitCost), money.String(l.ExtendedCost))
				}
				if err := tw.Flush(); err != nil {
					return err
				}
			}
			fmt.Fprintf(w, "Total: %s\n", money.Format(res.Cost, currency))
			if n := len(res.Issues); n > 0 {
				fmt.Fprintf(w, "%d issue(s):\n", n)
				for _, i := range res.Issues {
					fmt.Fprintf(w, "  - %s\n", i)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&fromSupabase, "supabase", false, "read the catalog from SUPABASE_DB_URL instead of the local database")
	cmd.Flags().BoolVar(&all, "all", false, "cost every product")
	cmd.Flags().StringVar(&currency, "currency", money.DefaultCurrency, "currency code printed after totals")
	return cmd
}

// importCommand creates the "import" command.
func (c *CLI) importCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Upsert products from a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open csv: %w", err)
			}
			defer f.Close()

			products, rowErrs, err := catalog.ReadCSV(f)
			if err != nil {
				return err
			}
			for _, re := range rowErrs {
				c.Logger.Warn("skipping csv row",
					zap.Int("line", re.Line),
					zap.String("product_id", re.ID),
					zap.Error(re.Err),
				)
			}

			st, closeStore, err := c.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			stats, err := st.ImportProducts(cmd.Context(), products)
			if err != nil {
				return err
			}
			metrics.RecordCSVRows(len(products), len(rowErrs))
			fmt.Fprintf(out(cmd), "imported %d new, %d updated, %d rejected\n", stats.Inserted, stats.Updated, len(rowErrs))
			return nil
		},
	}
}

// exportCommand creates the "export" command.
func (c *CLI) exportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export [file.csv]",
		Short: "Write all products as CSV to a file or stdout",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, closeStore, err := c.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			products, err := st.ListProducts(cmd.Context())
			if err != nil {
				return err
			}

			if len(args) == 0 {
				return catalog.WriteCSV(out(cmd), products)
			}
			f, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("create csv: %w", err)
			}
			if err := catalog.WriteCSV(f, products); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
}

// cyclesCommand creates the "cycles" command.
func (c *CLI) cyclesCommand() *cobra.Command {
	var fromSupabase bool

	cmd := &cobra.Command{
		Use:   "cycles",
		Short: "List products whose bill of materials leads back to itself",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := c.loadCatalog(cmd.Context(), fromSupabase)
			if err != nil {
				return err
			}
			w := out(cmd)

			cycles := cat.Cycles()
			dangling := cat.DanglingReferences()
			if len(cycles) == 0 && len(dangling) == 0 {
				fmt.Fprintln(w, "no cycles or dangling references")
				return nil
			}

			for _, id := range sortedKeys(cycles) {
				fmt.Fprintf(w, "cycle    %s: %s\n", id, strings.Join(cycles[id], " -> "))
			}
			for _, id := range sortedKeys(dangling) {
				fmt.Fprintf(w, "dangling %s: %s\n", id, strings.Join(dangling[id], ", "))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&fromSupabase, "supabase", false, "read the catalog from SUPABASE_DB_URL instead of the local database")
	return cmd
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
