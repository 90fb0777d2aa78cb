package cli

import (
	"context"
	"fmt"

	"github.com/cruciblehq/cruxpkgs/internal"
)

// Represents the 'cruxpkgs version' command.
type VersionCmd struct{}

// Executes the version command.
func (c *VersionCmd) Run(ctx context.Context) error {
	fmt.Println(internal.VersionString())
	return nil
}
