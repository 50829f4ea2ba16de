package cli

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	pkgerrors "github.com/pipext/pipext/pkg/errors"
	"github.com/pipext/pipext/pkg/registry"
	"github.com/pipext/pipext/pkg/report"
)

// searchOpts holds the command-line flags for the search command.
type searchOpts struct {
	version string // exact release version, empty for latest
	yes     bool   // accept name suggestions without prompting
}

// searchCommand creates the search command.
//
// Validation happens before any network traffic: an empty or malformed name
// or version never reaches the index. The lookup itself is one best-effort
// attempt; the only follow-up is the name-suggestion retry, and only after
// the exact name came back not-found.
func (c *CLI) searchCommand() *cobra.Command {
	opts := searchOpts{}

	cmd := &cobra.Command{
		Use:   "search <package>",
		Short: "Report metadata for a package on PyPI",
		Long: `Report metadata for a package on PyPI.

Prints name, version, summary, author, links, and dependencies as a
"Label: value" block on stdout. With --version, the report describes exactly
that release or fails; a different version is never substituted.

Examples:
  pipext search requests
  pipext search requests -v 2.23.0
  pipext search Djangoo --yes    # accept the suggested corrected name`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSearch(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.version, "version", "v", "", "exact release version to report")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "accept name suggestions without prompting")

	return cmd
}

func (c *CLI) runSearch(cmd *cobra.Command, opts searchOpts, name string) error {
	if err := pkgerrors.ValidatePythonPackageName(name); err != nil {
		return err
	}
	if opts.version != "" {
		if err := pkgerrors.ValidateVersion(opts.version); err != nil {
			return err
		}
	}

	logger := c.Logger.With("run", uuid.NewString()[:8])
	query := report.Query{Name: name, Version: opts.version}
	logger.Debug("Resolving query", "package", query.Name, "version", query.Version)

	prog := newProgress(logger)
	rec, err := c.lookup(cmd.Context(), c.newProvider(), query, opts.yes)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Resolved %s %s", rec.Name, rec.Version))

	return report.Render(cmd.OutOrStdout(), rec)
}

// lookup fetches the record for query, with a spinner on stderr. When the
// exact name is unknown but its PEP 503 normalized form resolves, the user is
// asked to confirm the suggestion; declining surfaces the original not-found
// error untouched.
func (c *CLI) lookup(ctx context.Context, provider report.Provider, query report.Query, autoYes bool) (*report.Record, error) {
	rec, err := c.fetch(ctx, provider, query)
	if err == nil {
		return rec, nil
	}
	if !pkgerrors.Is(err, pkgerrors.ErrCodePackageNotFound) {
		return nil, err
	}

	suggestion := registry.NormalizePkgName(query.Name)
	if suggestion == query.Name {
		return nil, err
	}

	alt := query
	alt.Name = suggestion
	rec, altErr := c.fetch(ctx, provider, alt)
	if altErr != nil {
		return nil, err
	}

	accepted, promptErr := c.confirmSuggestion(ctx, suggestion, autoYes)
	if promptErr != nil {
		return nil, promptErr
	}
	if !accepted {
		return nil, err
	}
	return rec, nil
}

func (c *CLI) fetch(ctx context.Context, provider report.Provider, query report.Query) (*report.Record, error) {
	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Fetching metadata for %s...", query))
	spinner.Start()
	rec, err := provider.Lookup(ctx, query)
	switch {
	case err == nil:
		spinner.StopWithSuccess(fmt.Sprintf("Fetched %s %s", rec.Name, rec.Version))
	case spinner.Cancelled():
		spinner.Stop()
		return nil, ctx.Err()
	case pkgerrors.Is(err, pkgerrors.ErrCodePackageNotFound):
		// Quiet stop: the caller may still resolve the name via a suggestion.
		spinner.Stop()
	default:
		spinner.StopWithError(fmt.Sprintf("Lookup for %s failed", query))
	}
	return rec, err
}
