// Package deps reports which external tools gifcut can reach.
package deps

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/forPelevin/gifcut/internal/runner"
)

// Requirement defines an external tool gifcut relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool

	// VersionArgs, when set, are run to fill Status.Version.
	VersionArgs []string
}

// Status reports the availability of a tool.
type Status struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description,omitempty"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Version     string `json:"version,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// CheckVersions runs CheckBinaries and then asks every available tool for its
// version. A failing version probe is recorded in Detail, not returned.
func CheckVersions(ctx context.Context, r *runner.Runner, requirements []Requirement) []Status {
	if r == nil {
		r = runner.New()
	}
	results := CheckBinaries(requirements)
	for i, req := range requirements {
		if !results[i].Available || len(req.VersionArgs) == 0 {
			continue
		}
		vctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		res, err := r.Run(vctx, runner.Command{Name: results[i].Command, Args: req.VersionArgs, MaxOutput: 4096})
		cancel()
		if err != nil {
			results[i].Detail = "version probe failed: " + err.Error()
			continue
		}
		results[i].Version = firstLine(res.Stdout + res.Stderr)
	}
	return results
}

// MissingRequired returns the names of unavailable, non-optional tools.
func MissingRequired(statuses []Status) []string {
	var missing []string
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			missing = append(missing, s.Name)
		}
	}
	return missing
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
