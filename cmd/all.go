package cmd

import (
	_ "mihomoctl/cmd/conn"
	_ "mihomoctl/cmd/kernel"
	_ "mihomoctl/cmd/logs"
	_ "mihomoctl/cmd/memory"
	_ "mihomoctl/cmd/misc"
	_ "mihomoctl/cmd/profile"
	_ "mihomoctl/cmd/proxy"
	_ "mihomoctl/cmd/root"
	_ "mihomoctl/cmd/server"
	_ "mihomoctl/cmd/service"
	_ "mihomoctl/cmd/traffic"
)
