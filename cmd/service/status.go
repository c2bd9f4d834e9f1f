package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"mihomoctl/cmd/root"
)

var optJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "查看内核状态",
	Run: func(cmd *cobra.Command, args []string) {
		app, err := root.GetApp()
		if err != nil {
			root.Exit(err)
		}
		status, err := app.Services.Status(context.Background())
		if err != nil {
			root.Exit(err)
		}

		if optJSON {
			out, _ := json.MarshalIndent(status, "", "  ")
			fmt.Println(string(out))
			return
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "State:\t%s\n", status.State)
		if status.Pid > 0 {
			fmt.Fprintf(w, "PID:\t%d\n", status.Pid)
			fmt.Fprintf(w, "Started:\t%s\n", status.StartTime)
		}
		fmt.Fprintf(w, "Version:\t%s\n", orDash(status.Version))
		fmt.Fprintf(w, "Profile:\t%s\n", orDash(status.Profile))
		if status.Controller != "" {
			fmt.Fprintf(w, "Controller:\t%s\n", status.Controller)
		}
		w.Flush()
	},
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	statusCmd.Flags().SortFlags = false
	statusCmd.Flags().BoolVar(&optJSON, "json", false, "以JSON格式输出")
	serviceCmd.AddCommand(statusCmd)
}
