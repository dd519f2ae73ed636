// Package pipeline drives the engines end-to-end: it enumerates a
// path, dispatches each file to the hash cache, identity verifier,
// and format engine, then aggregates per-file results into a global
// verdict (spec.md §4.9).
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/asteroid-belt/aegis/internal/config"
	"github.com/asteroid-belt/aegis/internal/engines/dependency"
	"github.com/asteroid-belt/aegis/internal/hashcache"
	"github.com/asteroid-belt/aegis/internal/identity"
	"github.com/asteroid-belt/aegis/internal/models"
	"github.com/asteroid-belt/aegis/internal/signatures"
	"golang.org/x/sync/errgroup"
)

// Options configures a single pipeline run.
type Options struct {
	Repo   string // upstream registry repo for identity checks; empty disables it
	Force  bool   // force-mode: blocking threats are recorded but the verdict is forced_approval
	Cancel <-chan struct{}
}

// Pipeline wires the shared, read-only collaborators a scan run needs.
type Pipeline struct {
	Config     *config.Config
	Signatures *signatures.Set
	Cache      *hashcache.Cache
	Identity   *identity.Client
	Oracle     *dependency.Oracle
}

// New builds a Pipeline from already-opened collaborators. cache and
// identityClient may be nil (identity checks are then skipped/only
// performed when opts.Repo is set and identityClient is non-nil).
func New(cfg *config.Config, sigs *signatures.Set, cache *hashcache.Cache, identityClient *identity.Client) *Pipeline {
	return &Pipeline{
		Config:     cfg,
		Signatures: sigs,
		Cache:      cache,
		Identity:   identityClient,
		Oracle:     dependency.NewOracle(),
	}
}

// Run scans root (a single file or a directory, enumerated
// recursively) and returns the aggregate RunSummary.
func (p *Pipeline) Run(ctx context.Context, root string, opts Options) (*models.RunSummary, error) {
	files, err := enumerate(root)
	if err != nil {
		return nil, err
	}

	results := make([]models.ScanResult, len(files))
	workers := runtime.NumCPU()
	if workers < 1 {
		workers = 1
	}

	cancelled := func() bool {
		select {
		case <-opts.Cancel:
			return true
		default:
			return false
		}
	}

	var g errgroup.Group
	g.SetLimit(workers)

	for i, f := range files {
		if cancelled() {
			break
		}
		seq, file := i, f
		g.Go(func() error {
			result := p.scanFile(ctx, file, opts, cancelled)
			result.Sequence = seq
			results[seq] = result
			return nil
		})
	}
	_ = g.Wait()

	summary := &models.RunSummary{Results: results}
	summary.Verdict = deriveVerdict(summary, opts.Force)
	return summary, nil
}

// scanFile runs the full per-file sequence: digest, identity check,
// engine dispatch, ignored-rules filter, status derivation.
func (p *Pipeline) scanFile(ctx context.Context, file string, opts Options, cancelled func() bool) models.ScanResult {
	result := models.ScanResult{File: file, IdentityState: models.IdentityUnchecked}

	digest, digestErr := p.digest(file)
	if digestErr != nil {
		result.Threats = append(result.Threats, models.Threat{
			Severity: models.SeverityWarning,
			Kind:     models.KindScanError,
			File:     file,
			Message:  fmt.Sprintf("hashing-error: %v", digestErr),
		})
	} else {
		result.Digest = digest
	}

	if opts.Repo != "" && p.Identity != nil && digestErr == nil {
		state, err := identity.Verify(ctx, p.Identity, opts.Repo, filepath.Base(file), digest)
		if err != nil {
			result.IdentityState = models.IdentityError
			result.Threats = append(result.Threats, models.Threat{
				Severity: models.SeverityWarning,
				Kind:     models.KindScanError,
				File:     file,
				Message:  fmt.Sprintf("identity lookup failed: %v", err),
			})
		} else {
			result.IdentityState = state
			if state == models.IdentityMismatch {
				result.Threats = append(result.Threats, models.Threat{
					Severity: models.SeverityCritical,
					Kind:     models.KindHashMismatch,
					File:     file,
					Message:  "local digest does not match the registry's canonical digest",
				})
			}
		}
	}

	threats := selectEngine(file, p.Signatures, p.Config, p.Oracle, cancelled)
	result.Threats = append(result.Threats, p.filterIgnored(threats)...)

	result.DeriveStatus(p.Config.FailOnSeverityLevel())
	return result
}

func (p *Pipeline) filterIgnored(threats []models.Threat) []models.Threat {
	var out []models.Threat
	for _, t := range threats {
		if p.Config.IsRuleIgnored(string(t.Kind), "") {
			continue
		}
		out = append(out, t)
	}
	return out
}

func (p *Pipeline) digest(path string) (string, error) {
	if p.Cache != nil {
		return p.Cache.DigestFile(path)
	}
	return hashcache.Digest(path)
}

// enumerate expands root into a sorted file list: the file itself if
// root is not a directory, else every regular file under it.
func enumerate(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var files []string
	err = filepath.Walk(root, func(path string, fi os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if fi.IsDir() {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// deriveVerdict computes the global decision. In force-mode, blocking
// threats are still recorded on each ScanResult but the run-level
// verdict is forced_approval rather than block (spec.md §4.9).
func deriveVerdict(summary *models.RunSummary, force bool) models.Verdict {
	if !summary.Blocking() {
		return models.VerdictPass
	}
	if force {
		return models.VerdictForcedApproval
	}
	return models.VerdictBlock
}
