package conn

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"mihomoctl/cmd/root"
	"mihomoctl/internal/mihomo"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "列出活动连接",
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
		snap, err := client.Connections(ctx)
		if err != nil {
			root.Exit(err)
		}

		fmt.Printf("Total: up %s, down %s, %d connections\n",
			mihomo.FormatBytes(snap.UploadTotal), mihomo.FormatBytes(snap.DownloadTotal), len(snap.Connections))
		if len(snap.Connections) == 0 {
			return
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tHOST\tRULE\tCHAIN\tUP\tDOWN")
		for _, c := range snap.Connections {
			host := c.Metadata.Host
			if host == "" {
				host = c.Metadata.DestinationIP
			}
			chain := ""
			if len(c.Chains) > 0 {
				chain = c.Chains[0]
			}
			fmt.Fprintf(w, "%s\t%s:%s\t%s\t%s\t%s\t%s\n",
				c.ID, host, c.Metadata.DestinationPort, c.Rule, chain,
				mihomo.FormatBytes(c.Upload), mihomo.FormatBytes(c.Download))
		}
		w.Flush()
	},
}

func init() {
	connCmd.AddCommand(listCmd)
}
