// imgcachectl is the operator CLI for the image cache: it clears cached
// artifacts by scope (all, template, or source filename) directly against
// the cache root, without going through the server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"imgcache/internal/cachestore"
	"imgcache/internal/config"
	"imgcache/internal/logger"
)

var (
	cacheRoot string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:           "imgcachectl",
	Short:         "Image transformation cache admin tool",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove cached artifacts",
}

var clearAllCmd = &cobra.Command{
	Use:   "all",
	Short: "Remove every cached artifact",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		return store.InvalidateAll()
	},
}

var clearTemplateCmd = &cobra.Command{
	Use:   "template <name>",
	Short: "Remove all artifacts of one template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		return store.InvalidateTemplate(args[0])
	},
}

var clearFilenameCmd = &cobra.Command{
	Use:   "filename <name>",
	Short: "Remove all artifacts generated from one source filename",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		return store.InvalidateFilename(args[0])
	},
}

func openStore() (*cachestore.Store, error) {
	log, err := logger.NewConsole(verbose)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	root := cacheRoot
	if root == "" {
		root = config.Load().CacheRoot
	}

	log.Debug("Opening cache store", zap.String("cache_root", root))
	return cachestore.New(root, log)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cacheRoot, "cache-root", "", "cache root directory (default: CACHE_ROOT env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	clearCmd.AddCommand(clearAllCmd, clearTemplateCmd, clearFilenameCmd)
	rootCmd.AddCommand(clearCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
