package cmd

import (
	"github.com/carousell/ct-go/pkg/logger/log"
	"github.com/spf13/cobra"

	"github.com/guideops/chat-core/internal/app"
	"github.com/guideops/chat-core/internal/kafka"
	"github.com/guideops/chat-core/internal/server"
)

var rootCmd = &cobra.Command{
	Use:           "chat-core",
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		app.Invoke(
			server.StartServer,
			kafka.StartConsumeMessages,
		).Run()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
