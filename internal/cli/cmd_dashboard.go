package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/relayforge/orchestra/internal/api"
	"github.com/relayforge/orchestra/internal/tui"
)

// newDashboardCmd creates the dashboard command
func newDashboardCmd() *cobra.Command {
	var useTUI bool
	var port int

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Watch sessions live",
		Long: `Dashboard serves the HTTP/websocket dashboard surface by default, or runs
a terminal dashboard in-process with --tui.

Example:
  orc dashboard              # start the HTTP dashboard
  orc dashboard --port 3000
  orc dashboard --tui        # terminal dashboard, same process`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			if useTUI {
				return tui.Run(a.repos, a.publisher)
			}

			if !cmd.Flags().Changed("port") {
				port = a.cfg.Config.Dashboard.Port
				if port == 0 {
					port = 3847
				}
			}

			server := api.NewServer(a.repos, &a.cfg.Config, a.publisher, a.logger)
			httpServer := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: server}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigCh
				fmt.Println("\nShutting down...")
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				_ = httpServer.Shutdown(shutdownCtx)
				cancel()
			}()

			fmt.Printf("dashboard listening on :%d — press Ctrl+C to stop\n", port)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().BoolVar(&useTUI, "tui", false, "run the terminal dashboard in-process instead of serving HTTP")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (default from config, else 3847)")
	return cmd
}
