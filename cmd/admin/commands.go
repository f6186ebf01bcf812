package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"culturetech/internal/bootstrap"
	"culturetech/internal/config"
	"culturetech/internal/models"
	"culturetech/internal/seed"
	"culturetech/internal/service"
	"culturetech/internal/store"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

// storeOpener opens the store the commands operate on.
type storeOpener func() (store.Store, *config.Config, error)

var errMemoryStore = errors.New("STORE_DRIVER=memory keeps no data between processes; point the admin tool at postgres or sqlite")

func openStore() (store.Store, *config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.StoreDriver == config.StoreMemory {
		return nil, nil, errMemoryStore
	}
	st, err := bootstrap.OpenStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	return st, cfg, nil
}

func newRootCmd(open storeOpener) *cobra.Command {
	root := &cobra.Command{
		Use:          "admin",
		Short:        "Manage CultureTech administrators and content",
		SilenceUsage: true,
	}

	root.AddCommand(
		newSetAdminCmd(open, "promote", "Grant admin rights to a user", true),
		newSetAdminCmd(open, "demote", "Revoke admin rights from a user", false),
		newListAdminsCmd(open),
		newSeedCmd(open),
	)
	return root
}

// withStore opens the store, runs fn and closes the store again.
func withStore(open storeOpener, fn func(ctx context.Context, st store.Store, cfg *config.Config) error) error {
	st, cfg, err := open()
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(context.Background(), st, cfg)
}

func newSetAdminCmd(open storeOpener, use, short string, isAdmin bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <username>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(open, func(ctx context.Context, st store.Store, _ *config.Config) error {
				user, err := service.NewUserService(st, bcrypt.DefaultCost).SetAdmin(ctx, args[0], isAdmin)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s (ID: %d) admin=%t\n", user.Username, user.ID, user.IsAdmin)
				return nil
			})
		},
	}
}

func newListAdminsCmd(open storeOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "list-admins",
		Short: "List all administrators",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(open, func(ctx context.Context, st store.Store, _ *config.Config) error {
				admins, err := service.NewUserService(st, bcrypt.DefaultCost).ListAdmins(ctx)
				if err != nil {
					return err
				}
				return printAdmins(cmd.OutOrStdout(), admins)
			})
		},
	}
}

func newSeedCmd(open storeOpener) *cobra.Command {
	var (
		file  string
		count int
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed posts into an empty store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(open, func(ctx context.Context, st store.Store, cfg *config.Config) error {
				if file == "" {
					file = cfg.SeedFile
				}
				if !cmd.Flags().Changed("demo-posts") {
					count = cfg.SeedDemoPosts
				}
				users := service.NewUserService(st, bcrypt.DefaultCost)
				n, err := seed.New(st, users).Run(ctx, seed.Options{File: file, DemoPosts: count})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seeded %d posts\n", n)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML fixture file (defaults to SEED_FILE)")
	cmd.Flags().IntVar(&count, "demo-posts", 0, "number of generated posts (defaults to SEED_DEMO_POSTS)")
	return cmd
}

func printAdmins(w io.Writer, admins []*models.User) error {
	if len(admins) == 0 {
		_, err := fmt.Fprintln(w, "no admins")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSERNAME")
	for _, u := range admins {
		fmt.Fprintf(tw, "%d\t%s\n", u.ID, u.Username)
	}
	return tw.Flush()
}
