package cli

import (
	"context"
	"fmt"
)

// Represents the 'ownmined seal' command.
type SealCmd struct{}

// Executes the seal command.
//
// Rewrites the configuration file with every secret encrypted. Generates the
// identity when none exists yet.
func (c *SealCmd) Run(ctx context.Context) error {
	store, err := openStore(true)
	if err != nil {
		return err
	}

	cfg, err := store.Load()
	if err != nil {
		return err
	}

	if !cfg.HasPlaintextSecrets() {
		fmt.Println("all secrets are already sealed")
		return nil
	}

	if cfg.Mode.With(flagMode()).IsDryRun() {
		fmt.Println("(Dry-run) would seal plaintext secrets in", cfg.Path)
		return nil
	}

	if err := store.Save(cfg); err != nil {
		return err
	}
	fmt.Println("sealed plaintext secrets in", cfg.Path)
	return nil
}
