package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/spf13/cobra"

	"github.com/antonhoess/gitredate"
)

type applyCmd struct {
	*cobra.Command

	repoPath string
	branches []string

	rule gitredate.RuleConfig

	boundary      []string
	maxDepth      int
	includeShared bool
	dryRun        bool
	yes           bool
}

func newApplyCmd() *applyCmd {
	r := &applyCmd{
		Command: &cobra.Command{
			Use:   "apply",
			Short: "rewrite the commit timestamps of a repository",
			Args:  cobra.NoArgs,
		},
		repoPath: ".",
		rule: gitredate.RuleConfig{
			Interval: 1,
			Unit:     "day",
		},
	}

	r.Flags().StringVarP(&r.repoPath, "repo", "p", r.repoPath, "path of the repository")
	r.Flags().StringArrayVarP(&r.branches, "branch", "b", r.branches, "branch to rewrite, repeatable, defaults to the branch HEAD points at")
	r.Flags().StringVar(&r.rule.Start, "start", r.rule.Start, "timestamp of the first commit, RFC 3339 or 2006-01-02")
	r.MarkFlagRequired("start")
	r.Flags().Int64Var(&r.rule.Interval, "interval", r.rule.Interval, "spacing between two consecutive commits, in units")
	r.Flags().StringVar(&r.rule.Unit, "unit", r.rule.Unit, "unit of the interval: second, minute, hour or day")
	r.Flags().StringVar((*string)(&r.rule.Direction), "direction", string(r.rule.Direction), "oldest-first anchors start at the oldest commit, newest-first at the newest")
	r.Flags().Int64Var(&r.rule.JitterBoundSecs, "jitter-bound", r.rule.JitterBoundSecs, "upper bound of the per-commit jitter, in seconds")
	r.Flags().Int64Var(&r.rule.JitterSeed, "jitter-seed", r.rule.JitterSeed, "seed of the jitter, the same seed draws the same jitter")
	r.Flags().StringArrayVar(&r.boundary, "boundary", r.boundary, "hex hash of a commit that keeps its identity, repeatable")
	r.Flags().IntVar(&r.maxDepth, "max-depth", r.maxDepth, "cap on the generations to rewrite, 0 is unlimited")
	r.Flags().BoolVar(&r.includeShared, "include-shared", r.includeShared, "also rewrite commits reachable from other branches or tags")
	r.Flags().BoolVar(&r.dryRun, "dry-run", r.dryRun, "plan and report, move no refs")
	r.Flags().BoolVarP(&r.yes, "yes", "y", r.yes, "confirm a backup of the repository exists")

	r.Run = func(*cobra.Command, []string) {
		r.run()
	}

	return r
}

func (r *applyCmd) run() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rule, err := gitredate.NewIntervalRule(r.rule)
	if err != nil {
		fatal(err)
	}

	boundary, err := gitredate.NewHashSetFromStrings(r.boundary...)
	if err != nil {
		fatal(fmt.Errorf("invalid boundary commit: %w", err))
	}

	repo, err := git.PlainOpenWithOptions(r.repoPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		fatal(fmt.Errorf("cannot open repository at %s: %w", r.repoPath, err))
	}

	refs, err := refsToRewrite(repo, r.branches)
	if err != nil {
		fatal(err)
	}

	if !r.dryRun && !r.yes && !confirmBackup(os.Stdin, os.Stdout) {
		fmt.Println("Create a backup of your git repository first!")
		os.Exit(2)
	}

	report, err := gitredate.Redate(ctx, repo.Storer, gitredate.RedateOptions{
		Refs:          refs,
		Rule:          rule,
		Boundary:      boundary,
		MaxDepth:      r.maxDepth,
		IncludeShared: r.includeShared,
		DryRun:        r.dryRun,
	})

	switch {
	case err == nil:
		printReport(report)
	case errors.Is(err, gitredate.ErrPartialCompletion):
		printReport(report)
		color.Red("%v", err)
		os.Exit(1)
	default:
		fatal(err)
	}
}

// refsToRewrite turns the branch names into full ref names. Without names the
// branch HEAD points at is used.
func refsToRewrite(repo *git.Repository, branches []string) ([]plumbing.ReferenceName, error) {
	if len(branches) == 0 {
		head, err := repo.Head()
		if err != nil {
			return nil, fmt.Errorf("cannot resolve HEAD: %w", err)
		}
		if !head.Name().IsBranch() {
			return nil, fmt.Errorf("HEAD is detached, name a branch with --branch")
		}

		return []plumbing.ReferenceName{head.Name()}, nil
	}

	refs := make([]plumbing.ReferenceName, 0, len(branches))
	for _, b := range branches {
		refs = append(refs, plumbing.NewBranchReferenceName(b))
	}

	return refs, nil
}

// confirmBackup asks for the backup of the repository. Only an explicit yes
// lets the rewrite proceed.
func confirmBackup(in io.Reader, out io.Writer) bool {
	fmt.Fprintln(out, "!!! Create a backup of your repository before running this program on it !!!")
	fmt.Fprint(out, "Did you create a backup? [Y/n] ")

	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}

	return strings.EqualFold(strings.TrimSpace(answer), "y")
}

func printReport(report *gitredate.Report) {
	fmt.Printf("commits in scope: %d, rewritten: %d\n", report.CommitsInScope, report.CommitsRewritten)

	if report.DryRun {
		color.Yellow("dry run, no ref was moved")
	}

	if len(report.Plan.Updates) == 0 {
		fmt.Println("every ref already follows the rule, nothing to move")
		return
	}

	for _, u := range report.Plan.Updates {
		status := u.Status.String()
		switch u.Status {
		case gitredate.RefUpdated:
			status = color.GreenString(status)
		case gitredate.RefPlanned:
			status = color.YellowString(status)
		default:
			status = color.RedString(status)
		}

		fmt.Printf("%s: %s -> %s [%s]", u.Name, shortHash(u.OldTarget), shortHash(u.NewTarget), status)
		if u.Err != nil {
			fmt.Printf(" %v", u.Err)
		}
		fmt.Println()
	}
}

func shortHash(h plumbing.Hash) string {
	return h.String()[:10]
}
