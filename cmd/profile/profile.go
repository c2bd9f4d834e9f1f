package profile

import (
	"github.com/spf13/cobra"

	"mihomoctl/cmd/root"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Profile operations (list/use/show/import/delete)",
	Long:  `Profile operations (list/use/show/import/delete)`,
}

const profileExample = `  # manage kernel config profiles
  mihomoctl profile list
  mihomoctl profile import home ~/Downloads/home.yaml
  mihomoctl profile use home
  mihomoctl profile show home
  mihomoctl profile delete old`

func init() {
	root.RootCmd.AddCommand(profileCmd)

	profileCmd.Example = profileExample
}
