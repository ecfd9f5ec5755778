package migrate

import (
	"github.com/spf13/cobra"

	"github.com/eventbot/dashboard/internal/business"
	"github.com/eventbot/dashboard/internal/cmdutils"
)

func Cmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"migrate",
		"EventBot dashboard database migrations",
		"Applies the embedded goose migrations to the Postgres database",
		buildInfo,
		cmdutils.RunAsJob,
		business.MigrateMain,
	)
}
