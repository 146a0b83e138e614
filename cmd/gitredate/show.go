package main

import (
	"context"
	"fmt"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/spf13/cobra"

	"github.com/antonhoess/gitredate"
)

type showCmd struct {
	*cobra.Command

	repoPath string
	branches []string
	days     bool

	rule gitredate.RuleConfig
}

func newShowCmd() *showCmd {
	r := &showCmd{
		Command: &cobra.Command{
			Use:   "show",
			Short: "print the commit timestamps of a branch",
			Long: `show prints, for every commit of a branch in topological order, the hash,
the committer and the author time and the drift between the two. With the
rule flags set it also prints the replacement timestamps the rule would
assign, without writing anything.`,
			Args: cobra.NoArgs,
		},
		repoPath: ".",
		rule: gitredate.RuleConfig{
			Interval: 1,
			Unit:     "day",
		},
	}

	r.Flags().StringVarP(&r.repoPath, "repo", "p", r.repoPath, "path of the repository")
	r.Flags().StringArrayVarP(&r.branches, "branch", "b", r.branches, "branch to inspect, defaults to the branch HEAD points at")
	r.Flags().BoolVar(&r.days, "days", r.days, "also print the set of distinct commit days")
	r.Flags().StringVar(&r.rule.Start, "start", r.rule.Start, "when set, print the replacement timestamp of every commit")
	r.Flags().Int64Var(&r.rule.Interval, "interval", r.rule.Interval, "spacing between two consecutive commits, in units")
	r.Flags().StringVar(&r.rule.Unit, "unit", r.rule.Unit, "unit of the interval: second, minute, hour or day")
	r.Flags().StringVar((*string)(&r.rule.Direction), "direction", string(r.rule.Direction), "oldest-first anchors start at the oldest commit, newest-first at the newest")
	r.Flags().Int64Var(&r.rule.JitterBoundSecs, "jitter-bound", r.rule.JitterBoundSecs, "upper bound of the per-commit jitter, in seconds")
	r.Flags().Int64Var(&r.rule.JitterSeed, "jitter-seed", r.rule.JitterSeed, "seed of the jitter, the same seed draws the same jitter")

	r.Run = func(*cobra.Command, []string) {
		r.run()
	}

	return r
}

func (r *showCmd) run() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var rule gitredate.Rule
	if r.rule.Start != "" {
		compiled, err := gitredate.NewIntervalRule(r.rule)
		if err != nil {
			fatal(err)
		}
		rule = compiled
	}

	repo, err := git.PlainOpenWithOptions(r.repoPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		fatal(fmt.Errorf("cannot open repository at %s: %w", r.repoPath, err))
	}

	refs, err := refsToRewrite(repo, r.branches)
	if err != nil {
		fatal(err)
	}

	heads := make([]plumbing.Hash, 0, len(refs))
	for _, name := range refs {
		ref, err := storer.ResolveReference(repo.Storer, name)
		if err != nil {
			fatal(fmt.Errorf("cannot resolve ref %s: %w", name, err))
		}
		heads = append(heads, ref.Hash())
	}

	g, err := gitredate.LoadGraph(ctx, repo.Storer, heads, gitredate.LoadOptions{})
	if err != nil {
		fatal(err)
	}

	order := g.TopoOrder()
	printTimestamps(order, rule)

	if r.days {
		fmt.Println()
		fmt.Println("distinct commit days:")
		printDays(order)
	}
}

func printTimestamps(order []*object.Commit, rule gitredate.Rule) {
	total := len(order)

	for i, c := range order {
		fmt.Printf("%3d: %s\n", i+1, c.Hash)
		fmt.Printf("%3d: commit = %s\n", i+1, dateStr(c.Committer.When))
		fmt.Printf("%3d: author = %s\n", i+1, dateStr(c.Author.When))
		fmt.Printf("%3d:   => diff = %s\n", i+1, c.Committer.When.Sub(c.Author.When))

		if rule != nil {
			times := rule.Times(i, total, gitredate.TimePair{Author: c.Author.When, Committer: c.Committer.When})
			fmt.Printf("%3d:   => new = %s\n", i+1, dateStr(times.Committer))
		}
	}
}

func printDays(order []*object.Commit) {
	seen := make(map[string]struct{})
	days := make([]time.Time, 0)

	for _, c := range order {
		key := c.Committer.When.Format("2006-01-02")
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		days = append(days, c.Committer.When)
	}

	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	for i, d := range days {
		fmt.Printf("%3d: %s (%s)\n", i+1, d.Format("2006-01-02"), d.Weekday())
	}
}

func dateStr(t time.Time) string {
	return fmt.Sprintf("%s (%s)", t.Format("2006-01-02 15:04:05 -0700"), t.Weekday())
}
