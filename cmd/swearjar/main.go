package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iamwavecut/swearjar/internal/config"
)

func main() {
	log.SetFormatter(&config.SjFormatter{})
	log.SetOutput(os.Stdout)

	if err := newRootCommand().Execute(); err != nil {
		log.WithError(err).Errorln("exiting")
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	run := newRunCommand()
	root := &cobra.Command{
		Use:           "swearjar",
		Short:         "Swear jar chat moderation bot",
		Long:          "Watches chats for flagged words, fines the people who use them and answers questions about the jar.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          run.RunE,
	}
	root.AddCommand(run, newTotalCommand(), newLeadersCommand(), newHistoryCommand())
	return root
}
