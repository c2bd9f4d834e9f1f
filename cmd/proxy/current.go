package proxy

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"mihomoctl/cmd/root"
	"mihomoctl/internal/errs"
)

var currentCmd = &cobra.Command{
	Use:   "current [group]",
	Short: "查看代理组当前选中的节点",
	Long:  `查看代理组当前选中的节点。不带参数时列出全部代理组的选中情况。`,
	Args:  cobra.MaximumNArgs(1),
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

		if len(args) > 0 {
			g, ok := groups[args[0]]
			if !ok {
				root.Exit(errs.NotFound("proxy group '%s' does not exist", args[0]))
			}
			fmt.Println(g.Now)
			return
		}

		names := make([]string, 0, len(groups))
		for name := range groups {
			names = append(names, name)
		}
		sort.Strings(names)

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "GROUP\tNOW")
		for _, name := range names {
			fmt.Fprintf(w, "%s\t%s\n", name, groups[name].Now)
		}
		w.Flush()
	},
}

func init() {
	proxyCmd.AddCommand(currentCmd)
}
