package profile

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mihomoctl/cmd/root"
	"mihomoctl/internal/errs"
)

var optForce bool

var importCmd = &cobra.Command{
	Use:   "import <name> <file>",
	Short: "导入一个配置文件",
	Long: `导入一个配置文件为命名配置。
导入前做结构校验，坏配置不会进入配置库。`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		name, file := args[0], args[1]

		app, err := root.GetApp()
		if err != nil {
			root.Exit(err)
		}
		if app.Profiles.Store().Exists(name) && !optForce {
			root.Exit(errs.Conflict("profile '%s' already exists, use --force to overwrite", name))
		}
		if err := app.Profiles.Validate(file); err != nil {
			root.Exit(err)
		}

		data, err := os.ReadFile(file)
		if err != nil {
			root.Exit(errs.WrapKind(err, errs.KindIO, "read '%s'", file))
		}
		if err := app.Profiles.Store().Save(name, data); err != nil {
			root.Exit(err)
		}
		fmt.Printf("Imported profile %s from %s\n", name, file)
	},
}

func init() {
	importCmd.Flags().SortFlags = false
	importCmd.Flags().BoolVarP(&optForce, "force", "f", false, "覆盖同名配置")
	profileCmd.AddCommand(importCmd)
}
