package commands

import (
	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-pitch/config"
)

func newConfigCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration as YAML",
		Long: `Print the configuration a command would run with, after applying the
preset, the --config file and --log-level. The output is a valid --config
file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := opts.load(cmd)
			if err != nil {
				return err
			}
			data, err := config.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
