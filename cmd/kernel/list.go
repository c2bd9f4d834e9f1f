package kernel

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"mihomoctl/cmd/root"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "列出已安装的内核版本",
	Run: func(cmd *cobra.Command, args []string) {
		app, err := root.GetApp()
		if err != nil {
			root.Exit(err)
		}
		versions, err := app.Kernel.List()
		if err != nil {
			root.Exit(err)
		}
		def, err := app.Kernel.Default()
		if err != nil {
			root.Exit(err)
		}

		if len(versions) == 0 {
			fmt.Println("No kernel versions installed")
			return
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "VERSION\tINSTALLED\tDEFAULT")
		for _, v := range versions {
			mark := ""
			if v.Tag == def {
				mark = "*"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", v.Tag, v.InstalledAt.Format("2006-01-02 15:04:05"), mark)
		}
		w.Flush()
	},
}

func init() {
	kernelCmd.AddCommand(listCmd)
}
