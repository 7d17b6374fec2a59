package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pawcart/internal/paths"
	"github.com/mesh-intelligence/pawcart/pkg/sqlite"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "init",
		Short:       "Initialize pawcart configuration and storage",
		Long:        "Create the configuration and data directories, write a default config.yaml,\nthen initialize local storage.",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationNoApp: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, a.flags)
		},
	}
}

func runInit(cmd *cobra.Command, f rootFlags) error {
	configDir, err := paths.ResolveConfigDir(f.configDir)
	if err != nil {
		return systemf("resolve config dir: %w", err)
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return systemf("create config directory: %w", err)
	}
	if err := writeConfigIfMissing(paths.ConfigFile(configDir), f.dataDir); err != nil {
		return systemf("write config: %w", err)
	}

	s, err := resolveSettings(configDir, f.dataDir)
	if err != nil {
		return err
	}

	// Attach then Detach creates the data directory and schema.
	backend := sqlite.NewBackend()
	if err := backend.Attach(s.storage); err != nil {
		return systemf("initialize storage: %w", err)
	}
	if err := backend.Detach(); err != nil {
		return systemf("finalize storage: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "pawcart initialized successfully")
	return nil
}
