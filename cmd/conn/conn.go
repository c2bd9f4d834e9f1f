package conn

import (
	"github.com/spf13/cobra"

	"mihomoctl/cmd/root"
)

var connCmd = &cobra.Command{
	Use:   "conn",
	Short: "Connection operations (list/close)",
	Long:  `Connection operations (list/close)`,
}

const connExample = `  # inspect and close active connections
  mihomoctl conn list
  mihomoctl conn close 7c2e1bfa-xxxx
  mihomoctl conn close --all`

func init() {
	root.RootCmd.AddCommand(connCmd)

	connCmd.Example = connExample
}
