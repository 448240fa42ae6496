package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kittilsenstian-debug/online-store-engine/internal/config"
	"github.com/kittilsenstian-debug/online-store-engine/internal/store"
	"github.com/kittilsenstian-debug/online-store-engine/internal/store/pg"
	"github.com/spf13/cobra"
)

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down] [steps]",
		Short:     "Aplica o revierte las migraciones de postgres",
		Args:      cobra.RangeArgs(0, 2),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()

			action, steps, err := parseMigrateArgs(args)
			if err != nil {
				return err
			}
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Storage.Driver != "postgres" {
				return fmt.Errorf("migrate: storage.driver=%s has no migrations", cfg.Storage.Driver)
			}

			ctx := cmdContext(cmd)
			s, err := pg.New(ctx, cfg.Storage.DSN, pg.Options{MaxConns: 2})
			if err != nil {
				return err
			}
			defer s.Close()

			m := store.Migrator(s)
			var n int
			if action == "down" {
				n, err = m.Down(ctx, steps)
			} else {
				n, err = m.Up(ctx, steps)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d migration(s)\n", action, n)
			return nil
		},
	}
}

// parseMigrateArgs: action por defecto "up", steps 0 = todas. down exige steps
// explícito.
func parseMigrateArgs(args []string) (string, int, error) {
	action, steps := "up", 0
	if len(args) >= 1 && args[0] != "" {
		action = strings.ToLower(args[0])
	}
	if action != "up" && action != "down" {
		return "", 0, fmt.Errorf("migrate: unknown action %q (up|down)", action)
	}
	if len(args) == 2 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 0 {
			return "", 0, fmt.Errorf("migrate: invalid steps %q", args[1])
		}
		steps = n
	}
	if action == "down" && steps == 0 {
		return "", 0, fmt.Errorf("migrate: down requires steps > 0")
	}
	return action, steps, nil
}
