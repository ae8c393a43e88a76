// Package deps checks that external programs the launcher starts are
// installed.
package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement names an external program and what it is used for.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	// Path is the resolved executable when Available.
	Path   string
	Detail string
}

// CheckBinaries resolves each requirement's command on PATH. Commands
// containing a path separator are checked as given.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		results = append(results, checkBinary(req))
	}
	return results
}

func checkBinary(req Requirement) Status {
	cmd := strings.TrimSpace(req.Command)
	status := Status{
		Name:        req.Name,
		Command:     cmd,
		Description: strings.TrimSpace(req.Description),
		Optional:    req.Optional,
	}
	if cmd == "" {
		status.Detail = "command not configured"
		return status
	}
	resolved, err := exec.LookPath(cmd)
	if err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", cmd)
		return status
	}
	status.Available = true
	status.Path = resolved
	return status
}

// DaemonRequirement describes the queue consumer started from argv.
func DaemonRequirement(argv []string, optional bool) Requirement {
	req := Requirement{
		Name:        "Daemon",
		Description: "Consumes the reconstruction queue",
		Optional:    optional,
	}
	if len(argv) > 0 {
		req.Command = argv[0]
	}
	return req
}
