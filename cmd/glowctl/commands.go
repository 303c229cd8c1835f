package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"glowstudio/internal/bootstrap"
	"glowstudio/internal/domain"
	"glowstudio/internal/http/handlers"
	"glowstudio/internal/i18n"
	"glowstudio/internal/imaging"
	"glowstudio/internal/infra"
	"glowstudio/internal/providers/genai"
	"glowstudio/internal/providers/prompt"
)

type rootOptions struct {
	locale   string
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "glowctl",
		Short: "GlowStudio photo edits from the command line",
		Long: `glowctl runs the GlowStudio edit pipeline locally: preset filters,
prompt enhancement and AI edits. Provider settings come from the same
environment variables as the API server (GEMINI_API_KEY, PROMPT_PROVIDER, ...).

Examples:
  glowctl filters
  glowctl apply --in photo.jpg --filter vintage --out vintage.jpg
  glowctl edit --in photo.jpg --prompt "add a retro flash look" --enhance
  glowctl enhance --prompt "make it pop"`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
		},
	}
	root.PersistentFlags().StringVar(&opts.locale, "locale", i18n.English, "message locale (en, hi)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level")

	root.AddCommand(
		newFiltersCmd(opts),
		newApplyCmd(opts),
		newEditCmd(opts),
		newEnhanceCmd(opts),
	)
	return root
}

func (o *rootOptions) setup() (*infra.Config, zerolog.Logger, error) {
	cfg, err := infra.LoadConfig()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	logger := infra.NewLogger("cli", o.logLevel).With().Str("cmd", "glowctl").Logger()
	return cfg, logger, nil
}

func newFiltersCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "filters",
		Short: "List the preset filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.setup()
			if err != nil {
				return err
			}
			engine, err := bootstrap.Filters(cfg, logger)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tCSS")
			for _, p := range engine.Catalog().List() {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", p.ID, p.Name, p.CSS)
			}
			return tw.Flush()
		},
	}
}

func newApplyCmd(opts *rootOptions) *cobra.Command {
	var in, filterID, out string
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply a preset filter to an image file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.setup()
			if err != nil {
				return err
			}
			engine, err := bootstrap.Filters(cfg, logger)
			if err != nil {
				return err
			}
			src, err := readImage(in, domain.OriginUpload)
			if err != nil {
				return userError(opts.locale, err)
			}
			result, err := engine.Apply(cmd.Context(), src, filterID)
			if err != nil {
				return userError(opts.locale, err)
			}
			return writeResult(cmd.OutOrStdout(), out, result)
		},
	}
	cmd.Flags().StringVar(&in, "in", "", "source image")
	cmd.Flags().StringVar(&filterID, "filter", imaging.IdentityFilterID, "preset id")
	cmd.Flags().StringVar(&out, "out", "", "output path (defaults to <in>-<filter>.<ext>)")
	_ = cmd.MarkFlagRequired("in")
	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		if out == "" {
			base := strings.TrimSuffix(in, filepath.Ext(in))
			out = base + "-" + filterID
		}
	}
	return cmd
}

type editOptions struct {
	in        string
	prompt    string
	filterID  string
	reference string
	enhance   bool
	out       string
}

func newEditCmd(opts *rootOptions) *cobra.Command {
	eo := &editOptions{}
	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Run an AI edit on an image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(cmd, opts, eo)
		},
	}
	cmd.Flags().StringVar(&eo.in, "in", "", "source image")
	cmd.Flags().StringVarP(&eo.prompt, "prompt", "p", "", "edit instruction")
	cmd.Flags().StringVar(&eo.filterID, "filter", "", "preset applied before the edit")
	cmd.Flags().StringVar(&eo.reference, "reference", "", "optional reference image")
	cmd.Flags().BoolVar(&eo.enhance, "enhance", false, "rewrite the prompt before editing")
	cmd.Flags().StringVar(&eo.out, "out", "", "output path (defaults to glowstudio-edit-<unixms>.<ext>)")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("prompt")
	return cmd
}

func runEdit(cmd *cobra.Command, opts *rootOptions, eo *editOptions) error {
	cfg, logger, err := opts.setup()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	components, err := bootstrap.Build(ctx, cfg, logger, bootstrap.Options{SkipDatabase: true, SkipGeoIP: true})
	if err != nil {
		return err
	}
	defer components.Close()

	src, err := readImage(eo.in, domain.OriginUpload)
	if err != nil {
		return userError(opts.locale, err)
	}
	var ref *domain.ImageSource
	if eo.reference != "" {
		img, err := readImage(eo.reference, domain.OriginReference)
		if err != nil {
			return userError(opts.locale, err)
		}
		ref = &img
	}

	ctrl := components.Sessions.Create(opts.locale)
	defer func() { _ = components.Sessions.Delete(ctrl.ID()) }()

	if _, err := ctrl.SelectImage(src); err != nil {
		return userError(opts.locale, err)
	}
	if eo.filterID != "" {
		if _, err := ctrl.ApplyFilter(ctx, eo.filterID); err != nil {
			return userError(opts.locale, err)
		}
	}

	instruction := eo.prompt
	if eo.enhance {
		res := prompt.Improve(ctx, components.Enhancer, prompt.EnhanceRequest{Prompt: instruction, Locale: opts.locale})
		instruction = res.Prompt
		fmt.Fprintf(cmd.ErrOrStderr(), "prompt: %s\n", instruction)
	}

	snap, err := ctrl.Submit(ctx, instruction, ref)
	if err != nil {
		return userError(opts.locale, err)
	}
	if snap.Status == domain.StatusError {
		return errors.New(snap.ErrorMessage)
	}
	generated, ok := ctrl.Image(domain.SlotGenerated)
	if !ok {
		return errors.New(i18n.Message(opts.locale, i18n.ErrorGeneric))
	}
	out := eo.out
	if out == "" {
		out = handlers.DownloadName(domain.SlotGenerated, generated, time.Now())
	}
	return writeResult(cmd.OutOrStdout(), out, generated)
}

func newEnhanceCmd(opts *rootOptions) *cobra.Command {
	var text string
	cmd := &cobra.Command{
		Use:   "enhance",
		Short: "Rewrite an edit instruction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.setup()
			if err != nil {
				return err
			}
			content, err := bootstrap.ContentClient(cmd.Context(), cfg)
			if err != nil && !errors.Is(err, genai.ErrMissingAPIKey) {
				return err
			}
			enhancer, err := bootstrap.Enhancer(cfg, content, logger)
			if err != nil {
				return err
			}
			res := prompt.Improve(cmd.Context(), enhancer, prompt.EnhanceRequest{Prompt: text, Locale: opts.locale})
			fmt.Fprintln(cmd.OutOrStdout(), res.Prompt)
			if res.FallbackReason != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "unchanged: %s\n", res.FallbackReason)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&text, "prompt", "p", "", "instruction to rewrite")
	_ = cmd.MarkFlagRequired("prompt")
	return cmd
}

func readImage(path string, origin domain.ImageOrigin) (domain.ImageSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.ImageSource{}, err
	}
	return imaging.Ingest(data, origin)
}

// writeResult saves img at path, adding the extension for its format when
// path has none.
func writeResult(stdout io.Writer, path string, img domain.ImageSource) error {
	if filepath.Ext(path) == "" {
		path += "." + img.Extension()
	}
	if err := os.WriteFile(path, img.Data, 0o644); err != nil {
		return err
	}
	fmt.Fprintln(stdout, path)
	return nil
}

// userError swaps domain errors for catalog messages.
func userError(locale string, err error) error {
	var key i18n.Key
	switch {
	case errors.Is(err, domain.ErrEmptyImage), errors.Is(err, domain.ErrNotImage):
		key = i18n.InvalidImage
	case errors.Is(err, domain.ErrEmptyPrompt):
		key = i18n.EmptyPrompt
	case errors.Is(err, domain.ErrNoImage):
		key = i18n.NoImage
	case errors.Is(err, domain.ErrUnknownFilter):
		key = i18n.UnknownFilter
	default:
		return err
	}
	return errors.New(i18n.Message(locale, key))
}
