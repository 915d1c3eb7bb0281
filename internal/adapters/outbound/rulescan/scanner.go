package rulescan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/ryanuber/go-glob"
	"gopkg.in/yaml.v3"

	"github.com/detectiq/workbench/internal/domain"
)

// Scanner walks rule directories and counts parseable rules per file. It
// implements domain.RuleScanner.
type Scanner struct{}

// New creates a Scanner.
func New() *Scanner { return &Scanner{} }

var yaraRuleRE = regexp.MustCompile(`(?m)^\s*(?:private\s+|global\s+)*rule\s+[A-Za-z_][A-Za-z0-9_]*`)

// Scan walks one configured rule directory. Files matching an exclude glob
// (against the path relative to dir, or the base name) are skipped. A
// configured directory that does not exist comes back with Missing set
// rather than an error.
func (s *Scanner) Scan(ctx context.Context, kind domain.RuleKind, dir string, exclude []string) (*domain.RulesetReport, error) {
	expanded, err := homedir.Expand(dir)
	if err != nil {
		return nil, fmt.Errorf("expanding %s: %w", dir, err)
	}
	report := &domain.RulesetReport{Kind: kind, Path: expanded}

	if _, err := os.Stat(expanded); errors.Is(err, os.ErrNotExist) {
		report.Missing = true
		return report, nil
	} else if err != nil {
		return nil, fmt.Errorf("stat %s: %w", expanded, err)
	}

	walkErr := filepath.WalkDir(expanded, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(expanded, path)
		if relErr != nil {
			rel = d.Name()
		}
		if excluded(rel, d.Name(), exclude) {
			return nil
		}
		if !ruleFile(kind, d.Name()) {
			return nil
		}

		report.Files++
		rules, countErr := countRules(kind, path)
		if countErr != nil || rules == 0 {
			report.Invalid++
			return nil
		}
		report.Rules += rules
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("scanning %s rules: %w", kind, walkErr)
	}
	return report, nil
}

func ruleFile(kind domain.RuleKind, name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	switch kind {
	case domain.RuleSigma:
		return ext == ".yml" || ext == ".yaml"
	case domain.RuleYara:
		return ext == ".yar" || ext == ".yara"
	case domain.RuleSnort:
		return ext == ".rules"
	}
	return false
}

func excluded(rel, base string, patterns []string) bool {
	for _, p := range patterns {
		if glob.Glob(p, rel) || glob.Glob(p, base) {
			return true
		}
	}
	return false
}

// countRules returns how many rules one file contains; zero or an error
// marks the file invalid.
func countRules(kind domain.RuleKind, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	switch kind {
	case domain.RuleSigma:
		return countSigmaDocs(data)
	case domain.RuleYara:
		return len(yaraRuleRE.FindAll(data, -1)), nil
	case domain.RuleSnort:
		return countSnortRules(data), nil
	}
	return 0, fmt.Errorf("unsupported rule kind %q", kind)
}

// countSigmaDocs decodes every YAML document in the file and counts the ones
// that carry a rule title or id. A decode failure poisons the whole file.
func countSigmaDocs(data []byte) (int, error) {
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	count := 0
	for {
		var header domain.SigmaHeader
		err := dec.Decode(&header)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, err
		}
		if header.Title != "" || header.ID != "" {
			count++
		}
	}
	return count, nil
}

// countSnortRules counts action lines carrying a sid option. Commented-out
// rules do not count.
func countSnortRules(data []byte) int {
	count := 0
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.Contains(line, "sid:") {
			count++
		}
	}
	return count
}
