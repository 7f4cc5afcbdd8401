package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Fyssion/zupplin/internal/app"
	"github.com/Fyssion/zupplin/internal/auth"
	"github.com/Fyssion/zupplin/internal/config"
	"github.com/Fyssion/zupplin/internal/log"
	"github.com/Fyssion/zupplin/internal/proto"
	"github.com/Fyssion/zupplin/internal/state"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "zupplin",
		Short:         "Native client for the zupplin chat service",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")

	root.AddCommand(
		loginCmd(&configPath),
		logoutCmd(&configPath),
		runCmd(&configPath),
		whoamiCmd(&configPath),
	)
	return root
}

// setup loads configuration and builds the leveled logger. Config loading
// itself logs through a bootstrap logger at the default level.
func setup(configPath string) (config.Config, *zerolog.Logger, error) {
	bootLog := log.New("info")
	cfg, path, err := config.Load(bootLog, configPath)
	if err != nil {
		return cfg, nil, err
	}
	logger := log.New(cfg.LogLevel)
	logger.Debug().Str("path", path).Msg("config loaded")
	return cfg, logger, nil
}

func loginCmd(configPath *string) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate and persist the auth token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(*configPath)
			if err != nil {
				return err
			}

			application, err := app.New(cfg, logger)
			if err != nil {
				return err
			}
			defer application.Close()

			if _, err := application.Auth().Login(cmd.Context(), email, password); err != nil {
				return err
			}
			fmt.Println("Logged in.")
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func logoutCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the persisted auth token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(*configPath)
			if err != nil {
				return err
			}

			application, err := app.New(cfg, logger)
			if err != nil {
				return err
			}
			defer application.Close()

			if err := application.Auth().Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("Logged out.")
			return nil
		},
	}
}

func runCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connect and print live chat activity until interrupted",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, logger, err := setup(*configPath)
			if err != nil {
				return err
			}

			application, err := app.New(cfg, logger)
			if err != nil {
				return err
			}
			defer application.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			unsubscribe := application.State().Subscribe(printUpdates())
			defer unsubscribe()

			err = application.Run(ctx)
			return loginHint(err)
		},
	}
}

func whoamiCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(*configPath)
			if err != nil {
				return err
			}

			application, err := app.New(cfg, logger)
			if err != nil {
				return err
			}
			defer application.Close()

			me, err := application.Me(cmd.Context())
			if err != nil {
				return loginHint(err)
			}

			fmt.Printf("%s (id %s), %d rooms\n", me.Name, me.ID, len(me.Rooms))
			return nil
		},
	}
}

// printUpdates returns a state observer that prints rooms and messages the
// first time they appear in a snapshot.
func printUpdates() func(state.Snapshot) {
	seenRooms := make(map[proto.ID]struct{})
	seenMessages := make(map[proto.ID]struct{})

	return func(snap state.Snapshot) {
		for id, room := range snap.Rooms {
			if _, ok := seenRooms[id]; ok {
				continue
			}
			seenRooms[id] = struct{}{}
			fmt.Printf("* joined room %q\n", room.Name)
		}
		for _, msgs := range snap.Messages {
			for id, msg := range msgs {
				if _, ok := seenMessages[id]; ok {
					continue
				}
				seenMessages[id] = struct{}{}
				fmt.Printf("[%s] %s: %s\n", msg.RoomID, msg.Author.Name, msg.Content)
			}
		}
	}
}

func loginHint(err error) error {
	switch {
	case errors.Is(err, auth.ErrNoCredentials):
		return errors.New("not logged in; run `zupplin login` first")
	case errors.Is(err, auth.ErrTokenExpired):
		return errors.New("session expired; run `zupplin login` again")
	}
	return err
}
