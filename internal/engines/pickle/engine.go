package pickle

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/asteroid-belt/aegis/internal/models"
	"github.com/asteroid-belt/aegis/internal/signatures"
)

// Options configures a single Scan invocation.
type Options struct {
	Strict         bool
	AllowedModules map[string]bool
	SafeModules    map[string]bool
	Signatures     *signatures.Set
	Cancelled      func() bool
}

// Scan inspects path, which may be a raw pickle stream or a zip
// archive containing one or more pickle members, and returns every
// threat found without ever executing the stream (spec.md §4.1).
func Scan(path string, opts Options) []models.Threat {
	data, err := os.ReadFile(path)
	if err != nil {
		return []models.Threat{{
			Severity: models.SeverityCritical,
			Kind:     models.KindScanError,
			File:     path,
			Message:  fmt.Sprintf("read file: %v", err),
		}}
	}

	if zr, err := zip.NewReader(sliceReaderAt(data), int64(len(data))); err == nil {
		return scanZip(path, zr, opts)
	}

	return scanStream(path, "", data, opts)
}

func scanZip(path string, zr *zip.Reader, opts Options) []models.Threat {
	var threats []models.Threat
	found := false
	for _, f := range zr.File {
		if !isPickleMember(f.Name) {
			continue
		}
		found = true
		rc, err := f.Open()
		if err != nil {
			threats = append(threats, models.Threat{
				Severity: models.SeverityCritical,
				Kind:     models.KindScanError,
				File:     path,
				Locator:  f.Name,
				Message:  fmt.Sprintf("open archive member: %v", err),
			})
			continue
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			threats = append(threats, models.Threat{
				Severity: models.SeverityCritical,
				Kind:     models.KindScanError,
				File:     path,
				Locator:  f.Name,
				Message:  fmt.Sprintf("read archive member: %v", err),
			})
			continue
		}
		threats = append(threats, scanStream(path, f.Name, data, opts)...)
	}
	if !found {
		return nil
	}
	return threats
}

// isPickleMember matches the conventional framework layout: members
// named "data.pkl" or ending in it (e.g. "archive/data.pkl").
func isPickleMember(name string) bool {
	return strings.HasSuffix(name, "data.pkl") || strings.HasSuffix(name, ".pkl")
}

func scanStream(path, member string, data []byte, opts Options) []models.Threat {
	locatorPrefix := func(offset int64) string {
		if member != "" {
			return fmt.Sprintf("%s:offset %d", member, offset)
		}
		return fmt.Sprintf("offset %d", offset)
	}

	result, err := Walk(data, opts.Cancelled)
	var threats []models.Threat

	if result.HighProto {
		threats = append(threats, models.Threat{
			Severity: models.SeverityWarning,
			Kind:     models.KindScanError,
			File:     path,
			Locator:  member,
			Message:  fmt.Sprintf("pickle protocol %d exceeds supported version %d; scanned opportunistically", result.Protocol, MaxSupportedProtocol),
		})
	}

	for _, ref := range result.Refs {
		threats = append(threats, evaluateRef(path, ref, locatorPrefix(ref.Offset), opts)...)
	}

	if err != nil {
		if err == ErrTruncated {
			threats = append(threats, models.Threat{
				Severity: models.SeverityCritical,
				Kind:     models.KindScanError,
				File:     path,
				Locator:  member,
				Message:  "truncated or malformed pickle stream",
			})
		}
	}

	return threats
}

func evaluateRef(path string, ref GlobalRef, locator string, opts Options) []models.Threat {
	if opts.AllowedModules != nil && opts.AllowedModules[ref.Module] {
		return nil
	}

	if opts.Signatures != nil {
		if sev, ok := opts.Signatures.Severity(ref.Module, ref.Attr); ok {
			if sev == models.SeverityCritical || sev == models.SeverityHigh {
				return []models.Threat{{
					Severity: sev,
					Kind:     models.KindUnsafeReference,
					File:     path,
					Locator:  locator,
					Message:  fmt.Sprintf("unsafe reference %s.%s", ref.Module, ref.Attr),
				}}
			}
		}
	}

	if opts.Strict {
		safe := opts.SafeModules != nil && opts.SafeModules[ref.Module]
		if !safe {
			return []models.Threat{{
				Severity: models.SeverityMedium,
				Kind:     models.KindUnsafeReference,
				File:     path,
				Locator:  locator,
				Message:  fmt.Sprintf("reference %s.%s is not on the scientific-computing whitelist", ref.Module, ref.Attr),
			}}
		}
	}

	return nil
}

// sliceReaderAt adapts a byte slice to io.ReaderAt for zip.NewReader.
type sliceReaderAt []byte

func (s sliceReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(s)) {
		return 0, io.EOF
	}
	n := copy(p, s[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}
