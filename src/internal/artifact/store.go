package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/gielenor/launcher/src/internal/version"
	"github.com/gielenor/launcher/src/pkg/models"
)

// partSuffix marks a download that has not completed
const partSuffix = ".part"

// Store handles the locally cached artifacts of one domain.
// Artifacts are named <prefix><version><ext> inside dir.
type Store struct {
	domain models.Domain
	dir    string
	prefix string
	ext    string
}

// NewStore creates a store for the given domain directory
func NewStore(domain models.Domain, dir, prefix, ext string) *Store {
	return &Store{
		domain: domain,
		dir:    dir,
		prefix: prefix,
		ext:    ext,
	}
}

// Dir creates the store directory if needed and returns it
func (s *Store) Dir() (string, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s directory: %w", s.domain, err)
	}
	return s.dir, nil
}

// FileName returns the canonical file name for a version
func (s *Store) FileName(v string) string {
	return s.prefix + v + s.ext
}

// PathFor returns the canonical path for a version
func (s *Store) PathFor(v string) string {
	return filepath.Join(s.dir, s.FileName(v))
}

// ListVersions returns the versions of all cached artifacts, lowest first
func (s *Store) ListVersions() ([]version.Version, error) {
	dir, err := s.Dir()
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s directory: %w", s.domain, err)
	}

	var versions []version.Version
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if v, ok := s.versionOf(entry.Name()); ok {
			versions = append(versions, version.Parse(v))
		}
	}

	slices.SortStableFunc(versions, func(a, b version.Version) int {
		return a.Compare(b)
	})
	return versions, nil
}

// BestLocal returns the highest versioned valid artifact
func (s *Store) BestLocal() (models.Artifact, bool) {
	versions, err := s.ListVersions()
	if err != nil {
		log.WithField("domain", s.domain).Warnf("failed to list cached artifacts: %v", err)
		return models.Artifact{}, false
	}

	for i := len(versions) - 1; i >= 0; i-- {
		path := s.PathFor(versions[i].String())
		if !s.IsValidArtifact(path) {
			log.WithField("domain", s.domain).Debugf("skipping invalid cached artifact %s", path)
			continue
		}
		return models.Artifact{
			Domain:  s.domain,
			Version: versions[i].String(),
			Path:    path,
		}, true
	}

	return models.Artifact{}, false
}

// BestLocalVersion returns the version of BestLocal
func (s *Store) BestLocalVersion() (version.Version, bool) {
	best, ok := s.BestLocal()
	if !ok {
		return version.Version{}, false
	}
	return version.Parse(best.Version), true
}

// IsValidArtifact checks that path is an existing, non-empty regular file
func (s *Store) IsValidArtifact(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Size() > 0
}

// versionOf extracts the version from a file name following the naming convention.
// Pending downloads and names whose version is not purely dotted digits are skipped.
func (s *Store) versionOf(name string) (string, bool) {
	if strings.HasSuffix(name, partSuffix) {
		return "", false
	}
	if len(name) <= len(s.prefix)+len(s.ext) {
		return "", false
	}
	if !strings.HasPrefix(name, s.prefix) || !strings.HasSuffix(name, s.ext) {
		return "", false
	}

	v := name[len(s.prefix) : len(name)-len(s.ext)]
	for _, segment := range strings.Split(v, ".") {
		if _, err := strconv.ParseUint(segment, 10, 64); err != nil {
			return "", false
		}
	}
	return v, true
}
