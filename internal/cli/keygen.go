package cli

import (
	"fmt"

	"github.com/asteroid-belt/aegis/internal/signing"
	"github.com/spf13/cobra"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen [DIR]",
	Short: "Generate a cosign key pair for signing",
	Long: `Keygen shells out to cosign generate-key-pair, writing cosign.key and
cosign.pub into DIR (the current directory by default).

Examples:
  aegis keygen
  aegis keygen ./keys`,
	Args: cobra.MaximumNArgs(1),
	RunE: runKeygen,
}

func runKeygen(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}

	if err := signing.GenerateKeyPair(cmd.Context(), dir); err != nil {
		return fmt.Errorf("generate key pair: %w", err)
	}

	fmt.Println(cleanStyle.Render(fmt.Sprintf("wrote cosign.key and cosign.pub to %s", dir)))
	return nil
}
