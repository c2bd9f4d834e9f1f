package profile

import (
	"fmt"

	"github.com/spf13/cobra"

	"mihomoctl/cmd/root"
)

var showCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "打印配置内容",
	Long:  `打印配置内容。不带参数时打印当前配置。`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app, err := root.GetApp()
		if err != nil {
			root.Exit(err)
		}

		name := ""
		if len(args) > 0 {
			name = args[0]
		} else {
			name, err = app.Profiles.Store().Current()
			if err != nil {
				root.Exit(err)
			}
			if name == "" {
				fmt.Println("No current profile is set")
				return
			}
		}

		data, err := app.Profiles.Store().Read(name)
		if err != nil {
			root.Exit(err)
		}
		fmt.Print(string(data))
	},
}

func init() {
	profileCmd.AddCommand(showCmd)
}
