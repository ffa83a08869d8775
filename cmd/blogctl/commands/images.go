package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/rpupo63/inkwell/errs"
	"github.com/rpupo63/inkwell/models"
	"github.com/rpupo63/inkwell/services"
)

// maxConcurrentUploads bounds the uploads running at once
const maxConcurrentUploads = 4

func newImagesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "images",
		Short: "Configure image hosting and upload images",
		Long: `Configure image hosting and upload images.

Subcommands:
  config  - Show or change the image hosting settings
  test    - Check that the settings reach the host
  upload  - Upload images and print their URLs`,
	}

	cmd.AddCommand(newImagesConfigCmd(a), newImagesTestCmd(a), newImagesUploadCmd(a))
	return cmd
}

func newImagesConfigCmd(a *app) *cobra.Command {
	var cfg models.ImageConfig

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the image hosting settings",
		Long: `Show the image hosting settings, or change the ones given as flags.

Examples:
  blogctl images config --password PW
  blogctl images config --password PW --username me --repo blog-images --token ghp_xxx
  blogctl images config --password PW --provider s3 --bucket blog-images --region eu-west-1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireAdmin(); err != nil {
				return err
			}
			repo := a.db.ImageConfigRepo()

			saved, _, err := repo.Get(cmd.Context())
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if anyChanged(flags, imageConfigFlags...) {
				if flags.Changed("provider") {
					saved.Provider = cfg.Provider
				}
				if flags.Changed("username") {
					saved.Username = cfg.Username
				}
				if flags.Changed("repo") {
					saved.Repo = cfg.Repo
				}
				if flags.Changed("token") {
					saved.Token = cfg.Token
				}
				if flags.Changed("branch") {
					saved.Branch = cfg.Branch
				}
				if flags.Changed("bucket") {
					saved.Bucket = cfg.Bucket
				}
				if flags.Changed("region") {
					saved.Region = cfg.Region
				}
				if flags.Changed("public-url") {
					saved.PublicBaseURL = cfg.PublicBaseURL
				}

				normalized := saved.Normalize()
				if normalized.Provider != models.ImageProviderGitHub && normalized.Provider != models.ImageProviderS3 {
					return errs.NewInvalidFieldError("provider", "provider must be github or s3")
				}
				if saved, err = repo.Save(cmd.Context(), normalized); err != nil {
					return err
				}
				a.out.Success("Image hosting settings saved")
			}

			shown := saved.Normalize().Redacted()
			if a.jsonOutput {
				return a.out.JSON(shown)
			}
			a.out.Section("Image hosting")
			a.out.Muted("provider: %s", shown.Provider)
			switch shown.Provider {
			case models.ImageProviderS3:
				a.out.Muted("bucket: %s", shown.Bucket)
				a.out.Muted("region: %s", shown.Region)
				a.out.Muted("public url: %s", shown.PublicBaseURL)
			default:
				a.out.Muted("repository: %s/%s (%s)", shown.Username, shown.Repo, shown.Branch)
				a.out.Muted("token: %s", shown.Token)
			}
			if !shown.IsComplete() {
				a.out.Warning("Not configured yet")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cfg.Provider, "provider", "", "github or s3")
	cmd.Flags().StringVar(&cfg.Username, "username", "", "GitHub user or organization")
	cmd.Flags().StringVar(&cfg.Repo, "repo", "", "GitHub repository")
	cmd.Flags().StringVar(&cfg.Token, "token", "", "GitHub access token")
	cmd.Flags().StringVar(&cfg.Branch, "branch", "", "GitHub branch (default main)")
	cmd.Flags().StringVar(&cfg.Bucket, "bucket", "", "S3 bucket")
	cmd.Flags().StringVar(&cfg.Region, "region", "", "S3 region")
	cmd.Flags().StringVar(&cfg.PublicBaseURL, "public-url", "", "Public base URL of uploaded images (CDN)")
	return cmd
}

var imageConfigFlags = []string{"provider", "username", "repo", "token", "branch", "bucket", "region", "public-url"}

func anyChanged(flags *pflag.FlagSet, names ...string) bool {
	for _, name := range names {
		if flags.Changed(name) {
			return true
		}
	}
	return false
}

// imageHost builds the host for the saved settings
func (a *app) imageHost(cmd *cobra.Command) (services.ImageHost, error) {
	cfg, ok, err := a.db.ImageConfigRepo().Get(cmd.Context())
	if err != nil {
		return nil, err
	}
	if !ok || !cfg.IsComplete() {
		return nil, errs.NewConfigMissingError("image hosting")
	}
	return a.hosts(cmd.Context(), cfg)
}

func newImagesTestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Check that the image hosting settings work",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireAdmin(); err != nil {
				return err
			}
			host, err := a.imageHost(cmd)
			if err != nil {
				return err
			}
			if err := host.TestConnection(cmd.Context()); err != nil {
				return fmt.Errorf("cannot connect, check your settings: %w", err)
			}
			a.out.Success("Connection OK")
			return nil
		},
	}
}

// UploadResult is the outcome of one file of an upload run
type UploadResult struct {
	File string `json:"file"`
	URL  string `json:"url"`
}

func newImagesUploadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "upload FILE...",
		Short: "Upload images and print their URLs",
		Long: `Upload images (at most 10MB each) and print their public URLs.

Every file is checked before anything is uploaded.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireAdmin(); err != nil {
				return err
			}
			host, err := a.imageHost(cmd)
			if err != nil {
				return err
			}

			payloads := make([][]byte, len(args))
			for i, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}
				if _, err := services.DetectImageType(data); err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				payloads[i] = data
			}

			results := make([]UploadResult, len(args))
			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(maxConcurrentUploads)
			for i, path := range args {
				g.Go(func() error {
					url, err := host.Upload(ctx, services.ImageFileName(filepath.Base(path)), payloads[i])
					if err != nil {
						return fmt.Errorf("upload %s: %w", path, err)
					}
					results[i] = UploadResult{File: path, URL: url}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			if a.jsonOutput {
				return a.out.JSON(results)
			}
			for _, r := range results {
				a.out.Success("%s → %s", r.File, r.URL)
			}
			return nil
		},
	}
}
