package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"freshsense/internal/core/affiliate"
	"freshsense/internal/infrastructure/config"
	"freshsense/internal/pkg/common"

	"github.com/spf13/cobra"
)

// errSelfTestFailed 自我測試有失敗項目
var errSelfTestFailed = errors.New("affiliate self-test failed")

type cliOptions struct {
	envFile  string
	tag      string
	logLevel string
}

// newRootCmd 建立 affiliatectl 指令樹
func newRootCmd() *cobra.Command {
	opts := &cliOptions{}
	var linker *affiliate.Linker

	root := &cobra.Command{
		Use:           "affiliatectl",
		Short:         "Generate, validate and self-test affiliate shopping links",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := common.InitLogger(opts.logLevel, ""); err != nil {
				return err
			}
			l, err := loadLinker(opts)
			if err != nil {
				return err
			}
			linker = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			common.Sync()
		},
	}

	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	root.PersistentFlags().StringVar(&opts.tag, "tag", "", "override the affiliate tag")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "error", "log level (debug, info, warn, error)")

	get := func() *affiliate.Linker { return linker }
	root.AddCommand(
		newSelfTestCmd(get),
		newLinkCmd(get),
		newCartCmd(get),
		newProductCmd(get),
		newValidateCmd(get),
		newCategorizeCmd(),
	)
	return root
}

func loadLinker(opts *cliOptions) (*affiliate.Linker, error) {
	cfg, err := config.Load(opts.envFile)
	if err != nil {
		return nil, err
	}

	linkerCfg := cfg.LinkerConfig()
	if opts.tag != "" {
		linkerCfg.Tag = opts.tag
	}
	return affiliate.NewLinker(linkerCfg)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func newSelfTestCmd(linker func() *affiliate.Linker) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "selftest",
		Short: "Run the affiliate link self-test suite",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			suite := linker().RunTests()
			out := cmd.OutOrStdout()

			if asJSON {
				if err := printJSON(out, suite); err != nil {
					return err
				}
			} else {
				for _, r := range suite.Results {
					fmt.Fprintf(out, "[%s] %s: %s\n", r.Status, r.TestName, r.Details)
				}
				fmt.Fprintf(out, "\n%d/%d passed, %d failed\n", suite.PassedTests, suite.TotalTests, suite.FailedTests)
			}

			if !suite.Passed() {
				return errSelfTestFailed
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the suite as JSON")
	return cmd
}

func newLinkCmd(linker func() *affiliate.Linker) *cobra.Command {
	var opts affiliate.LinkOptions

	cmd := &cobra.Command{
		Use:   "link <ingredient>",
		Short: "Generate a validated affiliate link for one ingredient",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result := linker().GenerateValidatedAffiliateLink(args[0], opts)
			if err := printJSON(cmd.OutOrStdout(), result); err != nil {
				return err
			}
			if !result.IsValid {
				return fmt.Errorf("generated link failed validation: %v", result.Validation.Issues)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.PreferFresh, "fresh", false, "force an Amazon Fresh link")
	cmd.Flags().StringVar(&opts.Department, "department", "", "department for general search links")
	cmd.Flags().StringVar(&opts.Category, "category", "", "category hint for fresh links")
	return cmd
}

func newCartCmd(linker func() *affiliate.Linker) *cobra.Command {
	return &cobra.Command{
		Use:   "cart <ingredient>...",
		Short: "Generate one Amazon Fresh search link for a shopping list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			link := linker().ShoppingCartLink(args)
			fmt.Fprintln(cmd.OutOrStdout(), link)
			return nil
		},
	}
}

func newProductCmd(linker func() *affiliate.Linker) *cobra.Command {
	var sample bool
	cmd := &cobra.Command{
		Use:   "product <asin | name>",
		Short: "Generate a product page link for an ASIN or a sample product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				link string
				err  error
			)
			if sample {
				link, err = linker().SampleProductLink(args[0])
			} else {
				link, err = linker().ProductLink(args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), link)
			return nil
		},
	}
	cmd.Flags().BoolVar(&sample, "sample", false, "treat the argument as a product name and pick a sample ASIN (rice, pasta, scale, storage)")
	return cmd
}

func newValidateCmd(linker func() *affiliate.Linker) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <url>",
		Short: "Check a link against the affiliate rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result := linker().ValidateAffiliateLink(args[0])
			if err := printJSON(cmd.OutOrStdout(), result); err != nil {
				return err
			}
			if !result.IsValid {
				return fmt.Errorf("link is not a valid affiliate link")
			}
			return nil
		},
	}
}

func newCategorizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categorize <name>",
		Short: "Show the category an ingredient is routed to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := affiliate.SanitizeIngredientName(args[0])
			return printJSON(cmd.OutOrStdout(), map[string]interface{}{
				"ingredient": name,
				"result":     affiliate.CategorizeIngredient(name),
			})
		},
	}
}
