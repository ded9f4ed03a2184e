package cli

import (
	"context"
	"fmt"
	"strings"
)

// Represents the 'ownmined check' command.
type CheckCmd struct{}

// Executes the check command.
//
// Loads the configuration like the daemon would and prints the servers it
// defines. Nothing is written.
func (c *CheckCmd) Run(ctx context.Context) error {
	store, err := openStore(false)
	if err != nil {
		return err
	}

	cfg, err := store.Load()
	if err != nil {
		return err
	}

	fmt.Printf("%s: %d servers (%s), mode %s\n",
		cfg.Path, len(cfg.Servers), strings.Join(cfg.Names(), ", "), cfg.Mode.With(flagMode()))
	if cfg.HasPlaintextSecrets() {
		fmt.Println("plaintext secrets present; run 'ownmined seal' or start the daemon to encrypt them")
	}
	return nil
}
