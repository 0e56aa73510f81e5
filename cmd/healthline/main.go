package main

import (
	"os"
	"path/filepath"
	"strings"

	"healthline/internal/cli"
)

func isSourceSpec(s string) bool {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "sqlite:") || strings.HasPrefix(s, "sheet:") {
		return true
	}
	switch strings.ToLower(filepath.Ext(s)) {
	case ".json", ".yaml", ".yml", ".csv":
		return true
	}
	return false
}

func rewriteDirectSourceArgs(argv []string) []string {
	// Convenience: `healthline events.yaml` works like `healthline --source events.yaml`.
	//
	// Cobra treats the first non-flag token as a subcommand, so we rewrite argv before parsing.
	// Persistent flags may come first (e.g. `healthline --dir ... events.csv`), so we look for
	// the first positional token, not just argv[1].
	if len(argv) < 2 {
		return argv
	}

	// Unknown flags are skipped without their value so we never swallow the source.
	valueFlags := map[string]bool{
		"--dir":    true,
		"--source": true,
		"--config": true,
		"--format": true,
	}
	boolFlags := map[string]bool{
		"--pretty": true,
	}

	rewrite := func(head []string, spec string, tail []string) []string {
		out := make([]string, 0, len(head)+len(tail)+2)
		out = append(out, head...)
		out = append(out, "--source", spec)
		return append(out, tail...)
	}

	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		if a == "" {
			continue
		}
		if a == "--" {
			// The flag has to go before "--" to be parsed at all.
			if i+1 < len(argv) && isSourceSpec(argv[i+1]) {
				return rewrite(argv[:i], argv[i+1], argv[i+2:])
			}
			return argv
		}

		if strings.HasPrefix(a, "-") {
			if strings.Contains(a, "=") {
				continue
			}
			if boolFlags[a] {
				continue
			}
			if valueFlags[a] {
				i++
				continue
			}
			continue
		}

		// First positional token.
		if isSourceSpec(a) {
			return rewrite(argv[:i], argv[i], argv[i+1:])
		}
		return argv
	}

	return argv
}

func main() {
	os.Args = rewriteDirectSourceArgs(os.Args)

	cmd := cli.NewRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
