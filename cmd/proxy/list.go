package proxy

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"mihomoctl/cmd/root"
	"mihomoctl/internal/mihomo"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "列出全部代理节点",
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
		proxies, err := client.Proxies(ctx)
		if err != nil {
			root.Exit(err)
		}

		names := make([]string, 0, len(proxies))
		for name := range proxies {
			names = append(names, name)
		}
		sort.Strings(names)

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tTYPE\tUDP\tDELAY")
		for _, name := range names {
			p := proxies[name]
			if p.Hidden {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%v\t%s\n", p.Name, p.Type, p.UDP, lastDelay(p))
		}
		w.Flush()
	},
}

func lastDelay(p mihomo.Proxy) string {
	if len(p.History) == 0 {
		return "-"
	}
	d := p.History[len(p.History)-1].Delay
	if d == 0 {
		return "timeout"
	}
	return fmt.Sprintf("%dms", d)
}

func init() {
	proxyCmd.AddCommand(listCmd)
}
