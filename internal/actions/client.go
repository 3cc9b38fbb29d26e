// Package actions drives GitHub Actions through the gh CLI: dispatching the
// build workflow, confirming that a run was scheduled, and reporting on runs.
package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/hochfrequenz/ghactl/internal/domain"
	"github.com/hochfrequenz/ghactl/internal/runner"
)

// runFields is the --json projection requested from gh run list
const runFields = "databaseId,status,conclusion,displayTitle,createdAt"

// ClientConfig identifies the workflow and the call budgets
type ClientConfig struct {
	Owner        string // empty Owner/Repo lets gh infer the repository from Dir
	Repo         string
	Workflow     string
	Dir          string
	QueryTimeout time.Duration
	LiveTimeout  time.Duration
}

// Client wraps the gh CLI
type Client struct {
	runner runner.Runner
	cfg    ClientConfig
}

// NewClient creates a gh client
func NewClient(r runner.Runner, cfg ClientConfig) *Client {
	return &Client{runner: r, cfg: cfg}
}

// Slug returns owner/repo, or "" when gh should infer it
func (c *Client) Slug() string {
	if c.cfg.Owner == "" || c.cfg.Repo == "" {
		return ""
	}
	return c.cfg.Owner + "/" + c.cfg.Repo
}

// Workflow returns the workflow file name
func (c *Client) Workflow() string {
	return c.cfg.Workflow
}

func (c *Client) withRepo(args ...string) []string {
	if slug := c.Slug(); slug != "" {
		args = append(args, "-R", slug)
	}
	return args
}

func (c *Client) query(ctx context.Context, args ...string) domain.CommandResult {
	return c.runner.Run(ctx, runner.Command{Name: "gh", Args: args, Dir: c.cfg.Dir, Timeout: c.cfg.QueryTimeout})
}

func (c *Client) live(ctx context.Context, args ...string) domain.CommandResult {
	return c.runner.RunLive(ctx, runner.Command{Name: "gh", Args: args, Dir: c.cfg.Dir, Timeout: c.cfg.LiveTimeout})
}

// Version runs gh --version
func (c *Client) Version(ctx context.Context) domain.CommandResult {
	return c.query(ctx, "--version")
}

// AuthStatus runs gh auth status
func (c *Client) AuthStatus(ctx context.Context) domain.CommandResult {
	return c.query(ctx, "auth", "status")
}

// ListOptions filters a run listing
type ListOptions struct {
	Status string // e.g. "failure"; empty for any
	Limit  int
}

type ghRun struct {
	DatabaseID   int64     `json:"databaseId"`
	Status       string    `json:"status"`
	Conclusion   string    `json:"conclusion"`
	DisplayTitle string    `json:"displayTitle"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ListRuns lists the newest runs of the workflow, newest first
func (c *Client) ListRuns(ctx context.Context, opts ListOptions) ([]domain.WorkflowRun, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 1
	}
	args := c.withRepo("run", "list")
	args = append(args, "-w", c.cfg.Workflow)
	if opts.Status != "" {
		args = append(args, "-s", opts.Status)
	}
	args = append(args, "-L", strconv.Itoa(limit), "--json", runFields)

	res := c.query(ctx, args...)
	if !res.OK() {
		return nil, fmt.Errorf("gh run list: %s: %w", res.Diagnostic(), domain.ErrQueryFailed)
	}
	if res.Simulated {
		return nil, nil
	}
	return parseRuns([]byte(res.Stdout))
}

func parseRuns(data []byte) ([]domain.WorkflowRun, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var raw []ghRun
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse gh output: %v: %w", err, domain.ErrQueryFailed)
	}

	runs := make([]domain.WorkflowRun, 0, len(raw))
	for _, r := range raw {
		runs = append(runs, domain.WorkflowRun{
			ID:         strconv.FormatInt(r.DatabaseID, 10),
			Status:     domain.ParseRunStatus(r.Status),
			Conclusion: domain.ParseRunConclusion(r.Conclusion),
			Title:      r.DisplayTitle,
			CreatedAt:  r.CreatedAt,
		})
	}
	return runs, nil
}

// Dispatch triggers the workflow with the given inputs
func (c *Client) Dispatch(ctx context.Context, inputs map[string]string) domain.CommandResult {
	args := c.withRepo("workflow", "run", c.cfg.Workflow)

	keys := make([]string, 0, len(inputs))
	for k := range inputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "-f", k+"="+inputs[k])
	}
	return c.query(ctx, args...)
}

// Watch attaches to a run and streams its progress
func (c *Client) Watch(ctx context.Context, runID string) domain.CommandResult {
	return c.live(ctx, c.withRepo("run", "watch", runID)...)
}

// ViewFailedLog streams the logs of the failed steps of a run
func (c *Client) ViewFailedLog(ctx context.Context, runID string) domain.CommandResult {
	return c.live(ctx, c.withRepo("run", "view", runID, "--log-failed")...)
}

// ViewCommand returns the gh command an operator can use to inspect a run
func (c *Client) ViewCommand(runID string) string {
	return runner.Command{Name: "gh", Args: c.withRepo("run", "view", runID)}.String()
}
