package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/KaramelBytes/edaloom/internal/server"
	"github.com/spf13/cobra"
)

var (
	srvAddr string
	srvData string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the summary, charts and export over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, c, err := newSession()
		if err != nil {
			return err
		}
		if srvData != "" {
			t, err := sess.Load(srvData)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Loaded %s (%d rows, %d columns)\n", t.Name(), t.Rows(), t.Cols())
		}
		format, err := chartFormat(c.Render.Format, "")
		if err != nil {
			return err
		}
		addr := c.ServerAddr
		if srvAddr != "" {
			addr = srvAddr
		}
		srv := server.New(sess, server.Options{Render: c.RenderOptions(), Format: format, Logger: logger})

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s (Ctrl+C to stop)\n", addr)
		if err := srv.ListenAndServe(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&srvAddr, "addr", "", "listen address (overrides config server_addr)")
	serveCmd.Flags().StringVar(&srvData, "data", "", "table to load at startup")
}
