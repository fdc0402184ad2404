package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/solatis/jsonforge/internal/components"
	"github.com/solatis/jsonforge/internal/registry"
	"github.com/solatis/jsonforge/internal/rules"
)

var componentsCmd = &cobra.Command{
	Use:   "components",
	Short: "List registered suppliers, functions, predicates and rules",
	RunE:  runComponents,
}

func init() {
	rootCmd.AddCommand(componentsCmd)
	componentsCmd.Flags().StringP("category", "c", "", "only list one category (supplier, function, predicate, rule)")
}

func runComponents(cmd *cobra.Command, _ []string) error {
	reg, err := rules.NewRegistries(components.Deps{})
	if err != nil {
		return err
	}
	only, _ := cmd.Flags().GetString("category")

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CATEGORY\tNAME\tPARAMETERS\tDESCRIPTION")
	for _, info := range reg.Describe() {
		if only != "" && !strings.EqualFold(only, string(info.Category)) {
			continue
		}
		var params []string
		for _, p := range info.Params {
			if p.Use == registry.UseRegistry || p.Use == registry.UseRuleSpec {
				continue
			}
			params = append(params, p.String())
		}
		for _, p := range info.Settings {
			params = append(params, p.String())
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", info.Category, info.Name, strings.Join(params, "; "), info.Doc)
	}
	return w.Flush()
}
