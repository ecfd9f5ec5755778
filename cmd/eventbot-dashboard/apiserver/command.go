package apiserver

import (
	"github.com/spf13/cobra"

	"github.com/eventbot/dashboard/internal/business"
	"github.com/eventbot/dashboard/internal/cmdutils"
)

func Cmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"api-server",
		"EventBot dashboard API server",
		"EventBot dashboard API server connects Spotify accounts, serves the dashboard and relays notifications to Telegram",
		buildInfo,
		cmdutils.RunAsService,
		business.Main,
	)
}
