package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/mrlokans/librarian/internal/entrypoint"
)

// GenerateSecretCommand prints a value for CSRF_SECRET.
type GenerateSecretCommand struct {
	out io.Writer
}

func NewGenerateSecretCommand() *GenerateSecretCommand {
	return &GenerateSecretCommand{out: os.Stdout}
}

func (cmd *GenerateSecretCommand) Run() error {
	secret, err := entrypoint.GenerateSecret()
	if err != nil {
		return fmt.Errorf("failed to generate secret: %w", err)
	}
	fmt.Fprintln(cmd.out, secret)
	return nil
}
