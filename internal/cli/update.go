package cli

import (
	"fmt"

	"github.com/asteroid-belt/aegis/internal/config"
	"github.com/asteroid-belt/aegis/internal/signatures"
	"github.com/spf13/cobra"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Refresh the signature store from its upstream",
	Long: `Update fetches a fresh copy of the signature file (unsafe-reference
severities, prompt-injection and secret-leakage patterns, typosquat and
known-malicious package lists) from its upstream URL and writes it to
the user-home signature file, validating it before it replaces the
file on disk.

Examples:
  aegis update`,
	Args: cobra.NoArgs,
	RunE: runUpdate,
}

func runUpdate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	url := cfg.SignatureUpdateURL
	path := config.GetPaths(cfg).Signatures

	fmt.Printf("Fetching signatures from %s...\n", url)
	set, err := signatures.Update(url, path)
	if err != nil {
		return fmt.Errorf("update signatures: %w", err)
	}

	fmt.Println(cleanStyle.Render(fmt.Sprintf("signatures updated (version %s)", set.Version)))
	fmt.Printf("  unsafe globals:     %d\n", len(set.UnsafeGlobals))
	fmt.Printf("  prompt injections:  %d\n", len(set.PromptInjections))
	fmt.Printf("  suspicious strings: %d\n", len(set.SuspiciousStrings))
	fmt.Printf("  known malicious:    %d\n", len(set.KnownMalicious))
	fmt.Printf("  popular packages:   %d\n", len(set.PopularPackages))
	fmt.Printf("written to %s\n", path)
	return nil
}
