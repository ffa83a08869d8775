package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rpupo63/inkwell/blogstate"
	"github.com/rpupo63/inkwell/cmd/blogctl/output"
	"github.com/rpupo63/inkwell/config"
	"github.com/rpupo63/inkwell/database"
	"github.com/rpupo63/inkwell/errs"
	"github.com/rpupo63/inkwell/models"
	"github.com/rpupo63/inkwell/services"
	"github.com/rpupo63/inkwell/session"
)

type (
	opener           func(ctx context.Context, cfg map[string]string) (database.Database, error)
	imageHostFactory func(ctx context.Context, cfg models.ImageConfig) (services.ImageHost, error)
)

// app carries the global flags and what every command opens before running
type app struct {
	// Global flags
	password   string
	jsonOutput bool

	cfg   map[string]string
	open  opener
	hosts imageHostFactory

	db    database.Database
	gate  *session.Gate
	model *blogstate.Model
	out   output.Printer
	// set when this run's password became the admin password
	bootstrapped bool
}

// NewRootCmd builds blogctl. open provides the store every command works on.
func NewRootCmd(cfg map[string]string, open opener, hosts imageHostFactory) *cobra.Command {
	a := &app{cfg: cfg, open: open, hosts: hosts}

	rootCmd := &cobra.Command{
		Use:   "blogctl",
		Short: "Manage the blog from the command line",
		Long: `blogctl works directly on the blog's configured store (DB_TYPE and friends).

Reading published posts needs no password. Drafts, writes, backups and
image hosting need the admin password, given with --password or BLOG_PASSWORD.
The first password ever used becomes the admin password.`,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&a.password, "password", config.GetString(cfg, "BLOG_PASSWORD", ""), "Admin password")
	rootCmd.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "Output in JSON format")

	rootCmd.AddCommand(
		newLoginCmd(a),
		newListCmd(a),
		newShowCmd(a),
		newCreateCmd(a),
		newUpdateCmd(a),
		newDeleteCmd(a),
		newExportCmd(a),
		newImportCmd(a),
		newImagesCmd(a),
	)
	return rootCmd
}

// Execute runs blogctl against the store configured in the environment
func Execute() {
	config.LoadDotEnv()
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	rootCmd := NewRootCmd(config.New(), database.Open, services.NewImageHost)
	if err := rootCmd.Execute(); err != nil {
		output.New(os.Stderr).Error("%v", err)
		os.Exit(1)
	}
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	a.out = output.New(cmd.OutOrStdout())

	db, err := a.open(cmd.Context(), a.cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	a.db = db
	a.gate = session.NewGate(db.CredentialRepo())
	a.model = blogstate.NewModel(db.PostRepo(), a.gate)

	if a.password == "" {
		return nil
	}
	existed, err := a.gate.CredentialExists(cmd.Context())
	if err != nil {
		return err
	}
	ok, err := a.gate.Login(cmd.Context(), a.password)
	if err != nil {
		return err
	}
	if !ok {
		return errs.NewInvalidCredentialError()
	}
	a.bootstrapped = !existed
	return nil
}

func (a *app) teardown(*cobra.Command, []string) error {
	a.gate.Logout()
	return a.db.Close()
}

// requireAdmin guards the commands that bypass the view model
func (a *app) requireAdmin() error {
	if !a.gate.IsAdmin() {
		return errs.NewUnauthorizedError("admin password required (--password)")
	}
	return nil
}
