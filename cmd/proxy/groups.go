package proxy

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"mihomoctl/cmd/root"
)

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "列出全部代理组及其选中节点",
	Run: func(cmd *cobra.Command, args []string) {
		app, err := root.GetApp()
		if err != nil {
			root.Exit(err)
		}
		ctx := context.Background()
		client, err := app.Services.ControlClient(ctx)
		if err != nil {
			root.Exit(err)
		}
		groups, err := client.ProxyGroups(ctx)
		if err != nil {
			root.Exit(err)
		}

		names := make([]string, 0, len(groups))
		for name := range groups {
			names = append(names, name)
		}
		sort.Strings(names)

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "GROUP\tTYPE\tNOW\tMEMBERS")
		for _, name := range names {
			g := groups[name]
			if g.Hidden {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", g.Name, g.Type, g.Now, strings.Join(g.All, ","))
		}
		w.Flush()
	},
}

func init() {
	proxyCmd.AddCommand(groupsCmd)
}
