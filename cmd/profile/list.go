package profile

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"mihomoctl/cmd/root"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "列出全部配置",
	Run: func(cmd *cobra.Command, args []string) {
		app, err := root.GetApp()
		if err != nil {
			root.Exit(err)
		}
		profiles, err := app.Profiles.Store().List()
		if err != nil {
			root.Exit(err)
		}
		current, err := app.Profiles.Store().Current()
		if err != nil {
			root.Exit(err)
		}

		if len(profiles) == 0 {
			fmt.Println("No profiles found")
			return
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tMODIFIED\tCURRENT")
		for _, p := range profiles {
			mark := ""
			if p.Name == current {
				mark = "*"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", p.Name, p.CreatedAt.Format("2006-01-02 15:04:05"), mark)
		}
		w.Flush()
	},
}

func init() {
	profileCmd.AddCommand(listCmd)
}
