// Command git-ps manages a linear stack of reviewable patches on top of a
// tracked upstream branch: stamping identities, projecting ranges onto
// disposable topic branches, verifying isolation, and integrating patches
// one at a time back into the mainline.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/patchwork-dev/git-ps/internal/commitfactory"
	"github.com/patchwork-dev/git-ps/internal/config"
	"github.com/patchwork-dev/git-ps/internal/errs"
	"github.com/patchwork-dev/git-ps/internal/gitfacade"
	"github.com/patchwork-dev/git-ps/internal/logging"
	"github.com/patchwork-dev/git-ps/internal/ops"
	"github.com/patchwork-dev/git-ps/internal/patch"
	"github.com/patchwork-dev/git-ps/internal/signer"
)

// version is overridden at build time via -ldflags.
var version = "dev"

var (
	noColor bool
	verbose int
	env     *ops.Env
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, renderErr(err))
		os.Exit(exitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "git-ps",
		Short:         "manage a stack of reviewable Git patches",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			e, err := buildEnv(cmd.Context())
			if err != nil {
				return err
			}
			env = e
			return nil
		},
	}
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	root.PersistentFlags().CountVarP(&verbose, "verbose", "v", "increase logging verbosity")

	root.AddCommand(
		branchCmd(), requestReviewCmd(), integrateCmd(), listCmd(), rebaseCmd(),
		pullCmd(), fetchCmd(), showCmd(), isolateCmd(), checkoutCmd(),
		createPatchCmd(), amendPatchCmd(), statusCmd(), addCmd(), logCmd(),
		unstageCmd(), idCmd(), shaCmd(), appendCmd(), backupStackCmd(), pushCmd(),
	)
	return root
}

func buildEnv(ctx context.Context) (*ops.Env, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	repo, err := gitfacade.Open(cwd)
	if err != nil {
		return nil, fmt.Errorf("not a git repository: %w", err)
	}

	settings, err := config.Load(repo.Root(), repo.GitDir())
	if err != nil {
		return nil, err
	}

	log := logging.New(verbose)

	prompt := func(question string) (string, error) {
		fmt.Fprint(os.Stdout, question)
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", err
		}
		return line, nil
	}

	var sign signer.Signer = signer.None{}
	if repo.GitConfigBool("commit", "gpgsign", false) {
		format := signer.ResolveFormat(mustConfigString(repo, "gpg", "format"), func(msg string) {
			log.Warn(msg)
		})
		switch format {
		case signer.FormatOpenPGP:
			keyID, _ := repo.GitConfigString("user", "signingkey")
			sign = signer.GPG{Exec: gitfacade.OSExec{}, Dir: repo.Root(), KeyID: keyID}
		case signer.FormatSSH:
			keyPath, _ := repo.GitConfigString("user", "signingkey")
			sign = signer.SSH{KeyPath: keyPath, Prompt: prompt}
		}
	}

	factory := &commitfactory.Factory{Repo: repo, Signer: sign}

	remote, _, _ := repo.BranchUpstream(currentBranchOr(repo))

	e := &ops.Env{
		Repo:    repo,
		Exec:    gitfacade.OSExec{},
		Factory: factory,
		Signer:  sign,
		Config:  settings,
		Log:     log,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Version: version,
		Prompt:  prompt,
		Remote:  remote,
	}
	return e, nil
}

func currentBranchOr(repo *gitfacade.Repo) string {
	name, ok := repo.CurrentBranch()
	if !ok {
		return ""
	}
	return name
}

func mustConfigString(repo *gitfacade.Repo, section, key string) string {
	v, _ := repo.GitConfigString(section, key)
	return v
}

func renderErr(err error) string {
	return fmt.Sprintf("git-ps: %s", err)
}

// exitCode is always 1 for an operation failure; retained as a seam for
// future per-Kind exit codes (e.g. distinguishing a rejected range from a
// signing failure) without touching call sites.
func exitCode(err error) int {
	var oe *errs.OpError
	if errors.As(err, &oe) {
		return 1
	}
	return 1
}

func branchCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:     "branch <range>",
		Aliases: []string{"br"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := patch.ParseRange(args[0])
			if err != nil {
				return err
			}
			branch, err := env.Branch(cmd.Context(), r, name)
			if err != nil {
				return err
			}
			fmt.Fprintln(env.Stdout, branch)
			return nil
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "destination branch name")
	return cmd
}

func requestReviewCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:     "request-review <batch>",
		Aliases: []string{"rr", "sync"},
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ranges := make([]patch.IndexRange, 0, len(args))
			for _, a := range args {
				r, err := patch.ParseRange(a)
				if err != nil {
					return err
				}
				ranges = append(ranges, r)
			}
			names, err := env.RequestReviewBatch(cmd.Context(), ranges, name)
			for _, n := range names {
				fmt.Fprintln(env.Stdout, n)
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "destination branch name (single range only)")
	return cmd
}

func integrateCmd() *cobra.Command {
	var force, keep bool
	var name string
	cmd := &cobra.Command{
		Use:     "integrate <range>",
		Aliases: []string{"int"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := patch.ParseRange(args[0])
			if err != nil {
				return err
			}
			return env.Integrate(cmd.Context(), r, ops.IntegrateOptions{
				Force: force, KeepBranch: keep, BranchName: name,
			})
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip the caught-up verification")
	cmd.Flags().BoolVarP(&keep, "keep-branch", "k", false, "do not delete the disposable branch afterward")
	cmd.Flags().StringVarP(&name, "name", "n", "", "destination branch name")
	return cmd
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use: "list", Aliases: []string{"ls"}, Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error { return env.List(cmd.Context()) },
	}
}

func rebaseCmd() *cobra.Command {
	var cont bool
	cmd := &cobra.Command{
		Use: "rebase", Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error { return env.Rebase(cmd.Context(), cont) },
	}
	cmd.Flags().BoolVar(&cont, "continue", false, "continue a paused rebase")
	return cmd
}

func pullCmd() *cobra.Command {
	return &cobra.Command{
		Use: "pull", Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error { return env.Pull(cmd.Context()) },
	}
}

func fetchCmd() *cobra.Command {
	return &cobra.Command{
		Use: "fetch", Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error { return env.Fetch(cmd.Context()) },
	}
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use: "show <range>", Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := patch.ParseRange(args[0])
			if err != nil {
				return err
			}
			return env.Show(cmd.Context(), r)
		},
	}
}

func isolateCmd() *cobra.Command {
	return &cobra.Command{
		Use: "isolate [range]", Aliases: []string{"iso"}, Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return env.Isolate(cmd.Context(), nil)
			}
			r, err := patch.ParseRange(args[0])
			if err != nil {
				return err
			}
			return env.Isolate(cmd.Context(), &r)
		},
	}
}

func checkoutCmd() *cobra.Command {
	return &cobra.Command{
		Use: "checkout <index>", Aliases: []string{"co"}, Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := patch.ParseRange(args[0])
			if err != nil {
				return err
			}
			return env.Checkout(cmd.Context(), r.Start)
		},
	}
}

func createPatchCmd() *cobra.Command {
	return &cobra.Command{
		Use: "create-patch", Aliases: []string{"c"}, Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error { return env.CreatePatch(cmd.Context()) },
	}
}

func amendPatchCmd() *cobra.Command {
	var noEdit bool
	cmd := &cobra.Command{
		Use: "amend-patch", Aliases: []string{"a"}, Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error { return env.AmendPatch(cmd.Context(), noEdit) },
	}
	cmd.Flags().BoolVar(&noEdit, "no-edit", false, "keep the existing commit message")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use: "status", Aliases: []string{"s"}, Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error { return env.Status(cmd.Context()) },
	}
}

func addCmd() *cobra.Command {
	var interactive, patchMode, edit, all bool
	cmd := &cobra.Command{
		Use: "add [files...]", Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.Add(cmd.Context(), interactive, patchMode, edit, all, args)
		},
	}
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "")
	cmd.Flags().BoolVarP(&patchMode, "patch", "p", false, "")
	cmd.Flags().BoolVarP(&edit, "edit", "e", false, "")
	cmd.Flags().BoolVarP(&all, "all", "A", false, "")
	return cmd
}

func logCmd() *cobra.Command {
	return &cobra.Command{
		Use: "log", Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error { return env.Log(cmd.Context()) },
	}
}

func unstageCmd() *cobra.Command {
	return &cobra.Command{
		Use: "unstage [files...]", Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error { return env.Unstage(cmd.Context(), args) },
	}
}

func idCmd() *cobra.Command {
	return &cobra.Command{
		Use: "id", Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error { return env.ID(cmd.Context()) },
	}
}

func shaCmd() *cobra.Command {
	var excludeNewline bool
	cmd := &cobra.Command{
		Use: "sha <index>", Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := patch.ParseRange(args[0])
			if err != nil {
				return err
			}
			return env.Sha(cmd.Context(), r.Start, excludeNewline)
		},
	}
	cmd.Flags().BoolVar(&excludeNewline, "exclude-newline", false, "omit the trailing newline")
	return cmd
}

func appendCmd() *cobra.Command {
	return &cobra.Command{
		Use: "append <range> <branch>", Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := patch.ParseRange(args[0])
			if err != nil {
				return err
			}
			return env.Append(cmd.Context(), r, args[1])
		},
	}
}

func backupStackCmd() *cobra.Command {
	return &cobra.Command{
		Use: "backup-stack <branch>", Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error { return env.BackupStack(cmd.Context(), args[0]) },
	}
}

func pushCmd() *cobra.Command {
	return &cobra.Command{
		Use: "push <branch>", Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error { return env.Push(cmd.Context(), args[0]) },
	}
}
