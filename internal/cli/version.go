package cli

import (
	"context"
	"fmt"

	"github.com/ownmine/ownmine/internal"
)

// Represents the 'version' command of both binaries.
type VersionCmd struct{}

// Executes the version command.
func (c *VersionCmd) Run(ctx context.Context) error {
	fmt.Println(internal.VersionString())
	return nil
}
