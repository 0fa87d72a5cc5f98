package main

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/datawire/dlib/dlog"

	"github.com/datawire/nugetrepo/pkg/nuget/blobstore"
	"github.com/datawire/nugetrepo/pkg/nuget/blobstore/memstore"
	"github.com/datawire/nugetrepo/pkg/nuget/config"
	"github.com/datawire/nugetrepo/pkg/nuget/repository"
	"github.com/datawire/nugetrepo/pkg/nuget/server"
)

func init() {
	var (
		argConfig     string
		argListenAddr string
		argBaseURL    string
		argStoreDir   string
	)
	cmd := &cobra.Command{
		Use:   "serve [flags]",
		Short: "Run the NuGet package repository HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load(argConfig)
			if err != nil {
				return err
			}
			if argListenAddr != "" {
				cfg.ListenAddr = argListenAddr
			}
			if argBaseURL != "" {
				cfg.BaseURL = argBaseURL
			}
			if argStoreDir != "" {
				cfg.StoreDir = argStoreDir
			}

			var store blobstore.Store
			if cfg.StoreDir != "" {
				s, err := memstore.NewWithDir(cfg.StoreDir)
				if err != nil {
					return err
				}
				store = s
			} else {
				store = memstore.New()
			}

			repo := repository.New(store)
			srv := server.New(repo, cfg.BaseURL)

			dlog.Infof(ctx, "listening on %s (base url %s)", cfg.ListenAddr, cfg.BaseURL)
			httpServer := &http.Server{
				Addr:    cfg.ListenAddr,
				Handler: srv.Handler(),
			}
			return httpServer.ListenAndServe()
		},
	}
	cmd.Flags().StringVar(&argConfig, "config", "", "Read configuration from `FILE`")
	cmd.Flags().StringVar(&argListenAddr, "listen", "", "Listen on `ADDR` (overrides config)")
	cmd.Flags().StringVar(&argBaseURL, "base-url", "", "Externally-visible base `URL` (overrides config)")
	cmd.Flags().StringVar(&argStoreDir, "store-dir", "", "Persist blobs under `DIR` (overrides config)")

	argparser.AddCommand(cmd)
}
