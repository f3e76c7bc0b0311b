package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"permadeploy/internal/app"
	"permadeploy/internal/config"
	"permadeploy/internal/pd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates a PDApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "PublishSite", "Estimate").
func newApp(cmd *cobra.Command, operation string) (*app.PDApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	opts := app.Options{Passphrase: app.SecretsPassphrase()}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		opts.Verbose = true
		opts.Stderr = cmd.ErrOrStderr()
	}

	a, err := app.NewPDApp(cfg, operation, opts)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

var rootCmd = &cobra.Command{
	Use:          "permadeploy",
	Short:        "Publish static sites and files to permanent storage",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", cfg.BaseDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir:     %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:      %s\n", cfg.LogDir)
		fmt.Printf("Gateway:      %s\n", cfg.Network.GatewayURL)
		fmt.Printf("Upload Tool:  %s (fallback: %s)\n", cfg.Upload.Tool, orNone(cfg.Upload.FallbackTool))
		fmt.Printf("Index File:   %s\n", cfg.Upload.IndexFile)
		fmt.Printf("History:      %s (max %d)\n", cfg.History.Path, cfg.History.MaxRecords)
		fmt.Printf("Catalog:      %s\n", cfg.Catalog.Type)
		fmt.Printf("Secrets:      %s\n", cfg.Secrets.Type)
		fmt.Printf("Registry:     %s\n", orNone(cfg.Registry.Path))
		fmt.Printf("Export Vault: %s\n", orNone(cfg.Vault.Type))
		return nil
	},
}

// account command
var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage signing accounts",
}

var accountAddCmd = &cobra.Command{
	Use:   "add [KEYFILE]",
	Short: "Add an account from a key file or stdin",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		nickname, _ := cmd.Flags().GetString("name")

		material, err := readKeyMaterial(cmd, args)
		if err != nil {
			return err
		}

		a, err := newApp(cmd, "AddAccount")
		if err != nil {
			return err
		}
		defer a.Close()

		acct, err := a.AddAccount(material, nickname)
		if err != nil {
			return fmt.Errorf("adding account: %w", err)
		}
		fmt.Printf("Added account %s (%s)\n", acct.Nickname, acct.Address)
		fmt.Printf("ID: %s\n", acct.ID)
		return nil
	},
}

var accountListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "ListAccounts")
		if err != nil {
			return err
		}
		defer a.Close()

		accounts, active, err := a.ListAccounts()
		if err != nil {
			return err
		}
		if len(accounts) == 0 {
			fmt.Println("No accounts. Add one with 'permadeploy account add'.")
			return nil
		}
		for _, acct := range accounts {
			marker := " "
			if acct.ID == active {
				marker = "*"
			}
			fmt.Printf("%s %-36s  %-20s  %s  last used %s\n",
				marker, acct.ID, acct.Nickname, acct.Address, humanize.Time(acct.LastUsed))
		}
		return nil
	},
}

var accountUseCmd = &cobra.Command{
	Use:   "use ID",
	Short: "Switch the active account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "UseAccount")
		if err != nil {
			return err
		}
		defer a.Close()

		acct, err := a.UseAccount(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Active account: %s (%s)\n", acct.Nickname, acct.Address)
		return nil
	},
}

var accountRenameCmd = &cobra.Command{
	Use:   "rename ID NAME",
	Short: "Rename an account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "RenameAccount")
		if err != nil {
			return err
		}
		defer a.Close()

		acct, err := a.RenameAccount(args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("Renamed %s to %s\n", acct.ID, acct.Nickname)
		return nil
	},
}

var accountRemoveCmd = &cobra.Command{
	Use:   "remove ID",
	Short: "Remove an account and its key material",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "RemoveAccount")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.RemoveAccount(args[0]); err != nil {
			return err
		}
		fmt.Printf("Removed account %s\n", args[0])
		return nil
	},
}

var accountShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the active account",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "ShowAccount")
		if err != nil {
			return err
		}
		defer a.Close()

		acct, err := a.ActiveAccount()
		if err != nil {
			return err
		}
		fmt.Printf("ID:        %s\n", acct.ID)
		fmt.Printf("Nickname:  %s\n", acct.Nickname)
		fmt.Printf("Address:   %s\n", acct.Address)
		fmt.Printf("Created:   %s\n", acct.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("Last Used: %s\n", acct.LastUsed.Format("2006-01-02 15:04:05"))
		return nil
	},
}

var accountAddressCmd = &cobra.Command{
	Use:   "address",
	Short: "Print the active account's address",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "AccountAddress")
		if err != nil {
			return err
		}
		defer a.Close()

		acct, err := a.ActiveAccount()
		if err != nil {
			return err
		}
		fmt.Println(acct.Address)
		return nil
	},
}

var accountMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Convert a legacy single-wallet setup into an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "MigrateLegacy")
		if err != nil {
			return err
		}
		defer a.Close()

		accounts, err := a.MigrateLegacy()
		if err != nil {
			return err
		}
		fmt.Printf("%d account(s) configured\n", len(accounts))
		return nil
	},
}

var accountBalanceCmd = &cobra.Command{
	Use:   "balance [ADDRESS]",
	Short: "Show a wallet balance (default: active account)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Balance")
		if err != nil {
			return err
		}
		defer a.Close()

		address := ""
		if len(args) > 0 {
			address = args[0]
		}
		bal, err := a.Balance(cmd.Context(), address)
		if err != nil {
			return err
		}
		fmt.Printf("%s AR\n", bal)
		return nil
	},
}

// publish command
var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish a site or a single file",
}

var publishSiteCmd = &cobra.Command{
	Use:   "site DIR",
	Short: "Publish a static site directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		siteID, _ := cmd.Flags().GetString("site")

		a, err := newApp(cmd, "PublishSite")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := preflight(cmd.Context(), a, args[0]); err != nil {
			return err
		}

		rec, err := a.PublishSite(cmd.Context(), args[0], siteID)
		if err != nil {
			if rec != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Recorded failed deployment %s\n", rec.ID)
			}
			return err
		}
		fmt.Printf("Published %s\n", rec.SiteID)
		fmt.Printf("URL:        %s\n", rec.URL)
		if rec.ManifestURL != "" && rec.ManifestURL != rec.URL {
			fmt.Printf("Manifest:   %s\n", rec.ManifestURL)
		}
		if rec.Metadata["cleanUrls"] != "true" {
			fmt.Printf("Clean URLs: unavailable (%s)\n", orNone(rec.Metadata["manifestError"]))
		}
		fmt.Printf("Files:      %d (%s)\n", rec.FileCount, humanize.IBytes(uint64(rec.TotalSize)))
		fmt.Printf("Record:     %s\n", rec.ID)
		return nil
	},
}

var publishFileCmd = &cobra.Command{
	Use:   "file PATH",
	Short: "Publish a single file tagged with its resource id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "PublishFile")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := preflight(cmd.Context(), a, args[0]); err != nil {
			return err
		}

		up, err := a.PublishFile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Published %s\n", args[0])
		fmt.Printf("Resource:    %s (%s, %s confidence)\n", up.Resource.ID, up.Resource.Source, up.Resource.Confidence)
		fmt.Printf("Transaction: %s\n", up.Result.TransactionID)
		fmt.Printf("URL:         %s\n", up.Result.URL)
		return nil
	},
}

// preflight prints the estimate for path and warns when the active account
// cannot cover it. It never blocks the publish.
func preflight(ctx context.Context, a *app.PDApp, path string) error {
	summary, est, err := a.Estimate(ctx, path)
	if err != nil {
		return err
	}
	fmt.Printf("Estimated cost: %s for %d file(s), %s\n", formatCost(est, a.Config().Network.Currency),
		summary.FileCount, humanize.IBytes(uint64(summary.TotalSize)))

	if aff := a.CheckAffordability(ctx, est); aff != nil && !aff.Affordable {
		fmt.Fprintf(os.Stderr, "Warning: estimated cost %s AR exceeds balance %s AR\n", est.Native, aff.Balance)
	}
	return nil
}

// estimate command
var estimateCmd = &cobra.Command{
	Use:   "estimate PATH",
	Short: "Estimate the cost of publishing a file or directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Estimate")
		if err != nil {
			return err
		}
		defer a.Close()

		summary, est, err := a.Estimate(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Files: %d\n", summary.FileCount)
		fmt.Printf("Size:  %s\n", humanize.IBytes(uint64(summary.TotalSize)))
		fmt.Printf("Cost:  %s\n", formatCost(est, a.Config().Network.Currency))
		return nil
	},
}

// verify command
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that published content is on the network",
}

var verifyTxCmd = &cobra.Command{
	Use:   "tx ID",
	Short: "Verify one transaction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "VerifyTransaction")
		if err != nil {
			return err
		}
		defer a.Close()

		v := a.VerifyTransaction(cmd.Context(), args[0])
		fmt.Printf("%s  %s", v.ID, v.Status)
		if v.BlockHeight > 0 {
			fmt.Printf("  block %d", v.BlockHeight)
		}
		if v.Accessible {
			fmt.Print("  accessible")
		}
		fmt.Println()
		return nil
	},
}

var verifyDeploymentCmd = &cobra.Command{
	Use:   "deployment ID",
	Short: "Verify a manifest and every file it lists",
	Long:  "Verify a manifest and every file it lists. With --record, ID is a deployment record id.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		byRecord, _ := cmd.Flags().GetBool("record")

		a, err := newApp(cmd, "VerifyDeployment")
		if err != nil {
			return err
		}
		defer a.Close()

		manifestID := args[0]
		if byRecord {
			rec, err := a.Deployment(args[0])
			if err != nil {
				return err
			}
			if rec.ManifestContentID == "" {
				return fmt.Errorf("%w: deployment %s has no manifest", pd.ErrValidation, rec.ID)
			}
			manifestID = rec.ManifestContentID
		}

		v := a.VerifyDeployment(cmd.Context(), manifestID)
		fmt.Printf("Manifest:   %s (accessible: %t)\n", v.ManifestID, v.ManifestAccessible)
		fmt.Printf("Files:      %d/%d verified\n", v.VerifiedFiles, v.TotalFiles)
		for _, e := range v.Errors {
			fmt.Printf("  %s\n", e)
		}
		if !v.IsValid {
			return errors.New("deployment is not fully available yet")
		}
		fmt.Println("Deployment verified.")
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View deployment history",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent deployments",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd, "ListDeployments")
		if err != nil {
			return err
		}
		defer a.Close()

		recs, err := a.RecentDeployments(limit)
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			fmt.Println("No deployments recorded.")
			return nil
		}
		for _, r := range recs {
			fmt.Printf("%s  %s  %-7s  %-20s  %-12s  %s\n",
				r.ID,
				r.Timestamp.Format("2006-01-02 15:04:05"),
				r.Status,
				r.SiteID,
				r.Cost.Native+" AR",
				orNone(r.URL),
			)
		}
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show one deployment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "ShowDeployment")
		if err != nil {
			return err
		}
		defer a.Close()

		r, err := a.Deployment(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("ID:        %s\n", r.ID)
		fmt.Printf("Time:      %s (%s)\n", r.Timestamp.Format("2006-01-02 15:04:05"), humanize.Time(r.Timestamp))
		fmt.Printf("Site:      %s\n", r.SiteID)
		fmt.Printf("Status:    %s\n", r.Status)
		fmt.Printf("Strategy:  %s\n", r.Strategy)
		fmt.Printf("Manifest:  %s\n", orNone(r.ManifestContentID))
		fmt.Printf("URL:       %s\n", orNone(r.URL))
		fmt.Printf("Cost:      %s\n", formatCost(r.Cost, a.Config().Network.Currency))
		fmt.Printf("Files:     %d (%s)\n", r.FileCount, humanize.IBytes(uint64(r.TotalSize)))
		if r.Error != "" {
			fmt.Printf("Error:     %s\n", r.Error)
		}
		for _, f := range r.UploadedFiles {
			fmt.Printf("  %s  %s  %s\n", f.ContentID, humanize.IBytes(uint64(f.Size)), f.Path)
		}
		return nil
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete one deployment record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "DeleteDeployment")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.DeleteDeployment(args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the deployment history",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "ExportHistory")
		if err != nil {
			return err
		}
		defer a.Close()

		path, err := a.ExportHistory(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Exported to %s\n", path)
		return nil
	},
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the deployment history",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "HistoryStats")
		if err != nil {
			return err
		}
		defer a.Close()

		s, err := a.HistoryStats()
		if err != nil {
			return err
		}
		fmt.Printf("Deployments: %d (%d successful, %d failed)\n", s.Total, s.Successful, s.Failed)
		fmt.Printf("Total Cost:  %s AR\n", s.TotalCost)
		fmt.Printf("Total Files: %s\n", humanize.Comma(int64(s.TotalFiles)))
		fmt.Printf("Total Size:  %s\n", humanize.IBytes(uint64(s.TotalSize)))
		if s.Latest != nil {
			fmt.Printf("Latest:      %s %s (%s)\n", s.Latest.SiteID, orNone(s.Latest.URL), humanize.Time(s.Latest.Timestamp))
		}
		return nil
	},
}

// resource command
var resourceCmd = &cobra.Command{
	Use:   "resource",
	Short: "Inspect resource identifiers of local files",
}

var resourceIDCmd = &cobra.Command{
	Use:   "id PATH",
	Short: "Resolve the stable id of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "ResourceID")
		if err != nil {
			return err
		}
		defer a.Close()

		ident, meta, err := a.ResourceID(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("ID:         %s\n", ident.ID)
		fmt.Printf("Source:     %s\n", ident.Source)
		fmt.Printf("Confidence: %s\n", ident.Confidence)
		if meta.Title != "" {
			fmt.Printf("Title:      %s\n", meta.Title)
		}
		if meta.Type != "" {
			fmt.Printf("Type:       %s\n", meta.Type)
		}
		return nil
	},
}

var resourceStatusCmd = &cobra.Command{
	Use:   "status PATH",
	Short: "Show the upload history of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "ResourceStatus")
		if err != nil {
			return err
		}
		defer a.Close()

		st, err := a.ResourceStatus(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("ID: %s (%s)\n", st.Resource.ID, st.Resource.Source)
		if st.Registry != "" {
			fmt.Printf("Archive: %s\n", st.Registry)
		}
		if len(st.Uploads) == 0 {
			fmt.Println("No uploads recorded.")
			return nil
		}
		for _, u := range st.Uploads {
			fmt.Printf("%s  %s  %s\n", u.UploadedAt.Format("2006-01-02 15:04:05"), u.TransactionID, u.Link)
		}
		return nil
	},
}

// readKeyMaterial reads the key file named in args, or stdin. An interactive
// terminal is read without echo.
func readKeyMaterial(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) > 0 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return nil, fmt.Errorf("reading key file: %w", err)
		}
		return data, nil
	}

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(cmd.ErrOrStderr(), "Paste key JSON: ")
		data, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return nil, fmt.Errorf("reading key from terminal: %w", err)
		}
		return data, nil
	}

	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return nil, fmt.Errorf("reading key from stdin: %w", err)
	}
	return data, nil
}

func formatCost(c pd.Cost, currency string) string {
	s := c.Native + " AR"
	if c.Fiat != nil {
		s += fmt.Sprintf(" (~%.2f %s)", *c.Fiat, strings.ToUpper(currency))
	}
	return s
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Echo debug logs to stderr")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// account subcommands
	accountCmd.AddCommand(accountAddCmd)
	accountAddCmd.Flags().StringP("name", "n", "", "Account nickname")
	accountCmd.AddCommand(accountListCmd)
	accountCmd.AddCommand(accountUseCmd)
	accountCmd.AddCommand(accountRenameCmd)
	accountCmd.AddCommand(accountRemoveCmd)
	accountCmd.AddCommand(accountShowCmd)
	accountCmd.AddCommand(accountAddressCmd)
	accountCmd.AddCommand(accountMigrateCmd)
	accountCmd.AddCommand(accountBalanceCmd)

	// publish subcommands
	publishCmd.AddCommand(publishSiteCmd)
	publishSiteCmd.Flags().StringP("site", "s", "", "Site id (default: directory name)")
	publishCmd.AddCommand(publishFileCmd)

	// verify subcommands
	verifyCmd.AddCommand(verifyTxCmd)
	verifyCmd.AddCommand(verifyDeploymentCmd)
	verifyDeploymentCmd.Flags().Bool("record", false, "Treat ID as a deployment record id")

	// history subcommands
	historyCmd.AddCommand(historyListCmd)
	historyListCmd.Flags().IntP("limit", "n", 20, "Maximum number of deployments to show")
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyStatsCmd)

	// resource subcommands
	resourceCmd.AddCommand(resourceIDCmd)
	resourceCmd.AddCommand(resourceStatusCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(accountCmd)
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(estimateCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(resourceCmd)
}
