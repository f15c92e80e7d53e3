package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// Exit codes returned by CheckCommand.
const (
	ExitOK     = 0
	ExitFailed = 1
	ExitBroken = 10
)

// LayoutChecker is satisfied by *shelves.Service.
type LayoutChecker interface {
	ShelfCodes(ctx context.Context) ([]string, error)
	BrokenRows(ctx context.Context, shelfCode string) ([]int, error)
	CompactLayout(ctx context.Context, shelfCode string) (int, error)
}

// LayoutCheckOptions defines available flags for the layout check command.
type LayoutCheckOptions struct {
	ShelfCode  string
	Repair     bool
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// LayoutCheckSummary describes the JSON output of layout check.
type LayoutCheckSummary struct {
	OK       bool               `json:"ok"`
	Checked  int                `json:"checked"`
	Findings []LayoutCheckIssue `json:"findings"`
}

// LayoutCheckIssue lists the broken rows of one shelf.
type LayoutCheckIssue struct {
	ShelfCode string `json:"shelf_code"`
	Rows      []int  `json:"rows"`
	Repaired  bool   `json:"repaired"`
}

// LayoutCheckCLI runs integrity checks synchronously, without the job queue.
type LayoutCheckCLI struct {
	checker LayoutChecker
}

// NewLayoutCheckCLI constructs LayoutCheckCLI.
func NewLayoutCheckCLI(checker LayoutChecker) *LayoutCheckCLI {
	return &LayoutCheckCLI{checker: checker}
}

// CheckCommand inspects shelves and prints the outcome. It exits with
// ExitBroken when unrepaired rows remain.
func (c *LayoutCheckCLI) CheckCommand(ctx context.Context, opts LayoutCheckOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	codes := []string{strings.ToUpper(strings.TrimSpace(opts.ShelfCode))}
	if codes[0] == "" {
		var err error
		codes, err = c.checker.ShelfCodes(ctx)
		if err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "layout check: %v\n", err)
			return ExitFailed
		}
	}

	summary := LayoutCheckSummary{OK: true, Checked: len(codes), Findings: []LayoutCheckIssue{}}
	for _, code := range codes {
		rows, err := c.checker.BrokenRows(ctx, code)
		if err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "layout check: shelf %s: %v\n", code, err)
			return ExitFailed
		}
		if len(rows) == 0 {
			continue
		}
		issue := LayoutCheckIssue{ShelfCode: code, Rows: rows}
		if opts.Repair {
			if _, err := c.checker.CompactLayout(ctx, code); err != nil {
				_, _ = fmt.Fprintf(opts.Stderr, "layout check: repair %s: %v\n", code, err)
				return ExitFailed
			}
			issue.Repaired = true
		} else {
			summary.OK = false
		}
		summary.Findings = append(summary.Findings, issue)
	}

	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(summary); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "layout check: encode json: %v\n", err)
			return ExitFailed
		}
	} else {
		renderLayoutCheckHuman(opts.Stdout, summary)
	}
	if !summary.OK {
		return ExitBroken
	}
	return ExitOK
}

func renderLayoutCheckHuman(out io.Writer, summary LayoutCheckSummary) {
	_, _ = fmt.Fprintf(out, "Checked %d shelf(s)\n", summary.Checked)
	if len(summary.Findings) == 0 {
		_, _ = fmt.Fprintln(out, "All rows are numbered 1..N.")
		return
	}
	for _, f := range summary.Findings {
		rows := make([]string, len(f.Rows))
		for i, r := range f.Rows {
			rows[i] = fmt.Sprint(r)
		}
		state := "broken"
		if f.Repaired {
			state = "repaired"
		}
		_, _ = fmt.Fprintf(out, " - %s rows %s %s\n", f.ShelfCode, strings.Join(rows, ", "), state)
	}
}
