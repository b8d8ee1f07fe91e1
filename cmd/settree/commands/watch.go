package commands

import (
	"github.com/dshills/settree/internal/config/notify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newWatchCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch FILE...",
		Short: "Reload settings files as they change",
		Long: `Load settings files and reload them whenever they change, printing
every setting that takes a new value. Invalid edits are logged and leave
the previous values in place. Stop with Ctrl-C.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSettings(flags)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.Load(args...); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			s.Subscribe(func(c notify.Change) {
				if c.Type == notify.ChangeSet {
					printf(out, "%s: %v -> %v\n", c.Path, c.OldValue, c.NewValue)
				}
			})

			ctx := cmd.Context()
			if err := s.Watch(ctx); err != nil {
				return err
			}
			log.Info().Strs("files", s.Paths()).Msg("watching settings")

			<-ctx.Done()
			return nil
		},
	}

	return cmd
}

