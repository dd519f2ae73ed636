package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/asteroid-belt/aegis/internal/config"
	"github.com/asteroid-belt/aegis/internal/hashcache"
	"github.com/asteroid-belt/aegis/internal/identity"
	"github.com/asteroid-belt/aegis/internal/log"
	"github.com/asteroid-belt/aegis/internal/models"
	"github.com/asteroid-belt/aegis/internal/pipeline"
	"github.com/asteroid-belt/aegis/internal/signatures"
	"github.com/asteroid-belt/aegis/internal/signing"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan PATH",
	Short: "Scan a model, dataset, or notebook tree for security threats",
	Long: `Scan inspects every file under PATH, classifies it by format, and runs
format-specific static analyses for code-execution, data-poisoning, and
secret-leakage hazards.

Examples:
  aegis scan ./model.pt
  aegis scan ./models/bert-base --repo bert-base-uncased
  aegis scan ./artifacts --image registry.local/model:v1 --force`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

var (
	scanRepo    string
	scanImage   string
	scanForce   bool
	scanJSON    bool
	scanVerbose bool
)

func init() {
	scanCmd.Flags().StringVar(&scanRepo, "repo", "", "upstream registry repo to cross-check file identity against")
	scanCmd.Flags().StringVar(&scanImage, "image", "", "OCI image to cosign-sign when the scan passes")
	scanCmd.Flags().BoolVar(&scanForce, "force", false, "record blocking threats but force an approved verdict")
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "emit the run summary as JSON")
	scanCmd.Flags().BoolVar(&scanVerbose, "verbose", false, "print passing files too, not just ones with threats")
}

// Color styles for CLI output.
var (
	criticalStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true)
	highStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF8C00"))
	mediumStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700"))
	lowStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00"))
	cleanStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
)

func runScan(cmd *cobra.Command, args []string) error {
	start := time.Now()
	target := args[0]

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	sigs, err := loadSignatures(cfg)
	if err != nil {
		return fmt.Errorf("load signatures: %w", err)
	}

	paths := config.GetPaths(cfg)
	cache, err := hashcache.Open(hashcache.DefaultConfig(paths.HashCache))
	if err != nil {
		return fmt.Errorf("open hash cache: %w", err)
	}

	var identityClient *identity.Client
	if scanRepo != "" {
		identityClient = identity.New(cfg.HFToken)
	}

	log.Printf("scan: target=%s repo=%q force=%t\n", target, scanRepo, scanForce)

	p := pipeline.New(cfg, sigs, cache, identityClient)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	cancelCh := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			close(cancelCh)
			cancel()
		case <-ctx.Done():
		}
	}()

	summary, err := p.Run(ctx, target, pipeline.Options{
		Repo:   scanRepo,
		Force:  scanForce,
		Cancel: cancelCh,
	})
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}

	if scanJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			return fmt.Errorf("encode summary: %w", err)
		}
	} else {
		printScanReport(summary, time.Since(start))
	}

	if scanImage != "" && summary.Verdict != models.VerdictBlock {
		signer := signing.NewSigner(cfg.PrivateKeyPath)
		if err := signer.Sign(ctx, scanImage, map[string]string{
			"aegis.verdict": string(summary.Verdict),
		}); err != nil {
			return fmt.Errorf("sign image: %w", err)
		}
		fmt.Println(cleanStyle.Render(fmt.Sprintf("signed %s", scanImage)))
	}

	os.Exit(summary.ExitCode())
	return nil
}

func loadSignatures(cfg *config.Config) (*signatures.Set, error) {
	path := config.GetPaths(cfg).Signatures
	set, err := signatures.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if set == nil {
		set = signatures.Default()
	}
	return set, nil
}

func printScanReport(summary *models.RunSummary, elapsed time.Duration) {
	criticalCount, highCount, mediumCount, lowCount := 0, 0, 0, 0

	for _, result := range summary.Results {
		if len(result.Threats) == 0 {
			if scanVerbose {
				fmt.Println(cleanStyle.Render(fmt.Sprintf("PASS  %s", result.File)))
			}
			continue
		}

		fmt.Printf("%s %s\n", styleForStatus(result.Status).Render(string(result.Status)), result.File)
		for _, t := range result.Threats {
			fmt.Printf("    %s\n", severityStyle(t.Severity).Render(t.String()))
			switch t.Severity {
			case models.SeverityCritical:
				criticalCount++
			case models.SeverityHigh:
				highCount++
			case models.SeverityMedium:
				mediumCount++
			case models.SeverityLow:
				lowCount++
			}
		}
	}

	fmt.Println()
	fmt.Printf("Scanned %d file(s) in %v\n", len(summary.Results), elapsed.Round(time.Millisecond))

	if criticalCount+highCount+mediumCount+lowCount > 0 {
		fmt.Println(highStyle.Render("Threats found:"))
		if criticalCount > 0 {
			fmt.Println(criticalStyle.Render(fmt.Sprintf("  CRITICAL: %d", criticalCount)))
		}
		if highCount > 0 {
			fmt.Println(highStyle.Render(fmt.Sprintf("  HIGH:     %d", highCount)))
		}
		if mediumCount > 0 {
			fmt.Println(mediumStyle.Render(fmt.Sprintf("  MEDIUM:   %d", mediumCount)))
		}
		if lowCount > 0 {
			fmt.Println(lowStyle.Render(fmt.Sprintf("  LOW:      %d", lowCount)))
		}
	} else {
		fmt.Println(cleanStyle.Render("No threats detected"))
	}

	switch summary.Verdict {
	case models.VerdictBlock:
		fmt.Println(criticalStyle.Render("VERDICT: BLOCK"))
	case models.VerdictForcedApproval:
		fmt.Println(highStyle.Render("VERDICT: FORCED APPROVAL (--force)"))
	default:
		fmt.Println(cleanStyle.Render("VERDICT: PASS"))
	}
}

func styleForStatus(status models.Status) lipgloss.Style {
	if status == models.StatusBlock {
		return criticalStyle
	}
	return cleanStyle
}

func severityStyle(sev models.Severity) lipgloss.Style {
	switch sev {
	case models.SeverityCritical:
		return criticalStyle
	case models.SeverityHigh:
		return highStyle
	case models.SeverityMedium:
		return mediumStyle
	case models.SeverityLow:
		return lowStyle
	default:
		return errorStyle
	}
}
