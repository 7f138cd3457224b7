package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/melih-ucgun/calswitch/internal/broker"
	"github.com/melih-ucgun/calswitch/internal/reconcile"
	"github.com/melih-ucgun/calswitch/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local toggle API with a websocket notification stream",
	RunE: func(cmd *cobra.Command, args []string) error {
		if subject, _ := cmd.Flags().GetString("issue-token"); subject != "" {
			ttl, _ := cmd.Flags().GetDuration("token-ttl")
			if cfg.Server.JWTSecret == "" {
				return fmt.Errorf("server.jwt_secret is not set")
			}
			token, err := server.IssueToken(cfg.Server.JWTSecret, subject, ttl)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		}

		listen, _ := cmd.Flags().GetString("listen")
		if listen == "" {
			listen = cfg.Server.Listen
		}
		watch, _ := cmd.Flags().GetBool("watch")

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		hub := server.NewHub()
		rt, err := newRuntime(cfg, logger, hub)
		if err != nil {
			return err
		}
		defer rt.Close()
		rt.syncer.OnChange(hub.PublishState)

		opts := server.Options{
			Syncer:      rt.syncer,
			Query:       rt.query,
			Invalidator: rt.invalidator,
			Hub:         hub,
			Context:     ctx,
		}
		if cfg.Server.JWTSecret != "" {
			opts.Validator = server.NewJWTValidator(cfg.Server.JWTSecret)
		} else {
			logger.Warn("server.jwt_secret is empty, the API accepts unauthenticated requests")
		}
		srv := server.New(opts)

		rt.refresh(ctx, logger)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			logger.Info(fmt.Sprintf("Listening on %s", listen))
			return srv.Run(gctx, listen)
		})

		if rt.publisher != nil {
			sub := broker.NewSubscriber(cfg.Kafka.Brokers, "calswitch-"+rt.publisher.Source(), cfg.Kafka.Topic, rt.publisher.Source())
			g.Go(func() error {
				defer sub.Close()
				// Remote invalidations mark the cache stale and refetch so
				// connected clients see the new selection.
				err := sub.Consume(gctx, refetchOnInvalidate{rt})
				if gctx.Err() != nil {
					return nil
				}
				return err
			})
		}

		if watch {
			sched, err := reconcile.New(cfg.Watch.Schedule, rt.cache, rt.query, logger)
			if err != nil {
				return err
			}
			g.Go(func() error {
				sched.Start(gctx)
				return nil
			})
		}

		return g.Wait()
	},
}

// refetchOnInvalidate invalidates the local cache only, so consumed events
// are never published again.
type refetchOnInvalidate struct{ rt *runtime }

func (r refetchOnInvalidate) Invalidate(ctx context.Context, key string) error {
	if err := r.rt.cache.Invalidate(ctx, key); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	_, err := r.rt.query.Get(ctx)
	return err
}

func init() {
	serveCmd.Flags().String("listen", "", "listen address (defaults to server.listen)")
	serveCmd.Flags().Bool("watch", false, "also reconcile on the watch.schedule")
	serveCmd.Flags().String("issue-token", "", "print a bearer token for this subject and exit")
	serveCmd.Flags().Duration("token-ttl", 24*time.Hour, "lifetime of issued tokens")
	rootCmd.AddCommand(serveCmd)
}
