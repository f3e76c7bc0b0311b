package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"permadeploy/internal/catalog"
	"permadeploy/internal/config"
	"permadeploy/internal/cost"
	"permadeploy/internal/fs"
	"permadeploy/internal/gateway"
	"permadeploy/internal/history"
	"permadeploy/internal/identity"
	"permadeploy/internal/pd"
	"permadeploy/internal/registry"
	"permadeploy/internal/resource"
	"permadeploy/internal/secrets"
	"permadeploy/internal/upload"
	"permadeploy/internal/vault"
	"permadeploy/internal/verify"
)

// Options carries the process-level inputs that do not belong in the config file.
type Options struct {
	// Passphrase switches the age secret store to passphrase mode.
	Passphrase string

	// Runner executes the upload tools. Nil means real subprocesses.
	Runner pd.CommandRunner

	// Stderr receives a copy of every log line. Nil keeps logs in the file only.
	Stderr io.Writer

	// Verbose lowers the log threshold to debug.
	Verbose bool

	Clock pd.Clock
	IDs   pd.IDGenerator
}

// PDApp is the application layer between the CLI and PDService.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw string paths, and releases the catalog and log file on Close.
type PDApp struct {
	cfg       *config.Config
	identity  *identity.Store
	gateway   *gateway.Client
	estimator *cost.Estimator
	history   *history.Store
	catalog   pd.Catalog
	registry  *registry.Registry
	resolver  *resource.Resolver
	scanner   *fs.Scanner
	verifier  *verify.Service
	service   *pd.PDService
	op        *Operation
	logger    pd.Logger
	logFile   *os.File
}

// NewPDApp creates a fully wired PDApp from the given config.
// operation identifies the CLI command being run (e.g. "PublishSite", "Estimate").
// The caller must call Close when done.
func NewPDApp(cfg *config.Config, operation string, opts Options) (*PDApp, error) {
	clock := opts.Clock
	if clock == nil {
		clock = pd.RealClock{}
	}
	ids := opts.IDs
	if ids == nil {
		ids = pd.UUIDGenerator{}
	}

	opID := clock.Now().UTC().Format("20060102T150405Z")
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	l, logFile, err := newLogger(cfg.LogDir, opID, level, opts.Stderr)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: l}

	a, err := wire(cfg, opts, clock, ids, logger)
	if err != nil {
		logFile.Close()
		return nil, err
	}
	a.op = NewOperation(opID, operation, clock.Now())
	a.logFile = logFile
	logger.Debug("operation started", "operation", operation)
	return a, nil
}

func wire(cfg *config.Config, opts Options, clock pd.Clock, ids pd.IDGenerator, logger pd.Logger) (*PDApp, error) {
	store, err := secrets.NewSecretStoreFromConfig(cfg.Secrets, opts.Passphrase)
	if err != nil {
		return nil, fmt.Errorf("creating secret store: %w", err)
	}
	if cfg.Identity.KeyDir != "" {
		if err := os.MkdirAll(cfg.Identity.KeyDir, 0700); err != nil {
			return nil, fmt.Errorf("creating key directory: %w", err)
		}
	}
	keys := identity.NewStore(store, cfg.Identity.Service, cfg.Identity.KeyDir, clock, ids, logger)
	keys.MigrateLegacy()

	gw := gateway.New(gateway.Options{
		BaseURL:       cfg.Network.GatewayURL,
		GraphQLURL:    cfg.Network.GraphQLURL,
		PriceURL:      cfg.Network.PriceURL,
		PriceAsset:    cfg.Network.PriceAsset,
		Currency:      cfg.Network.Currency,
		Timeout:       config.Seconds(cfg.Network.RequestTimeout),
		StatusRetries: cfg.Network.StatusRetries,
	}, logger)

	var feed cost.PriceFeed
	if cfg.Network.PriceURL != "" {
		feed = gw
	}
	est := cost.NewEstimator(cfg.Cost.WinstonPerMiB, cfg.Cost.MarginPercent, feed, config.Seconds(cfg.Network.RequestTimeout), logger)

	runner := opts.Runner
	if runner == nil {
		runner = upload.ExecRunner{}
	}
	bundler := upload.NewBundler(cfg.Upload.Tool, runner,
		config.Seconds(cfg.Upload.DirTimeout), config.Seconds(cfg.Upload.FileTimeout), !cfg.Upload.NoBundle)
	var fallback upload.DirectoryStrategy
	if cfg.Upload.FallbackTool != "" {
		fallback = upload.NewSDKUploader(cfg.Upload.FallbackTool, cfg.Upload.FallbackNetwork, cfg.Upload.FallbackToken,
			runner, config.Seconds(cfg.Upload.DirTimeout))
	}
	orch := upload.NewOrchestrator(keys, bundler, fallback, upload.Options{
		GatewayURL: gw.BaseURL(),
		AppName:    cfg.Upload.AppName,
		ExtraTags:  cfg.Upload.ExtraTags,
		IndexFile:  cfg.Upload.IndexFile,
		TempDir:    cfg.Upload.TempDir,
	}, logger)

	hist := history.NewStore(cfg.History.Path, cfg.History.ExportDir, cfg.History.MaxRecords, clock, ids, logger)
	v, err := vault.NewVaultFromConfig(context.Background(), cfg.Vault)
	if err != nil {
		return nil, fmt.Errorf("creating export vault: %w", err)
	}
	if v != nil {
		hist.WithVault(v)
	}

	cat, err := catalog.NewCatalogFromConfig(cfg.Catalog)
	if err != nil {
		return nil, fmt.Errorf("creating catalog: %w", err)
	}

	a := &PDApp{
		cfg:       cfg,
		identity:  keys,
		gateway:   gw,
		estimator: est,
		history:   hist,
		catalog:   cat,
		resolver:  resource.NewResolver(cat, logger),
		scanner:   fs.NewScanner(cfg.Filesystem.Ignore),
		verifier:  verify.New(gw, config.Seconds(cfg.Network.VerifyTimeout), cfg.Network.VerifyConcurrency, logger),
		logger:    logger,
	}

	var reg pd.Registry
	if cfg.Registry.Path != "" {
		a.registry = registry.New(cfg.Registry.Path, gw.BaseURL(), logger)
		reg = a.registry
	}

	a.service = pd.NewPDService(orch, est, hist, a.resolver, cat, reg, a.scanner, logger, clock, cfg.Upload.IndexFile)
	return a, nil
}

// Config returns the config the app was built from.
func (a *PDApp) Config() *config.Config { return a.cfg }

// track marks the current operation failed when err is non-nil and returns err.
func (a *PDApp) track(err error) error {
	a.op.Fail(err)
	return err
}

// AddAccount validates and stores key material as a new account.
func (a *PDApp) AddAccount(keyMaterial []byte, nickname string) (*pd.Account, error) {
	acct, err := a.identity.AddAccount(keyMaterial, nickname)
	return acct, a.track(err)
}

// ListAccounts returns all accounts and the active account id, which is
// empty when no account is active.
func (a *PDApp) ListAccounts() ([]*pd.Account, string, error) {
	accounts, err := a.identity.ListAccounts()
	if err != nil {
		return nil, "", a.track(err)
	}
	active, err := a.identity.ActiveAccount()
	if errors.Is(err, pd.ErrNoActiveAccount) {
		return accounts, "", nil
	}
	if err != nil {
		return nil, "", a.track(err)
	}
	return accounts, active.ID, nil
}

// UseAccount makes id the active account.
func (a *PDApp) UseAccount(id string) (*pd.Account, error) {
	acct, err := a.identity.SwitchAccount(id)
	return acct, a.track(err)
}

// RenameAccount changes an account's nickname.
func (a *PDApp) RenameAccount(id, nickname string) (*pd.Account, error) {
	acct, err := a.identity.RenameAccount(id, nickname)
	return acct, a.track(err)
}

// RemoveAccount deletes an account and its key material.
func (a *PDApp) RemoveAccount(id string) error {
	return a.track(a.identity.RemoveAccount(id))
}

// ActiveAccount returns the active account.
func (a *PDApp) ActiveAccount() (*pd.Account, error) {
	acct, err := a.identity.ActiveAccount()
	return acct, a.track(err)
}

// MigrateLegacy converts a single-wallet layout into an account and returns
// the resulting account list.
func (a *PDApp) MigrateLegacy() ([]*pd.Account, error) {
	a.identity.MigrateLegacy()
	accounts, err := a.identity.ListAccounts()
	return accounts, a.track(err)
}

// Balance returns the balance of address in AR. An empty address means the
// active account.
func (a *PDApp) Balance(ctx context.Context, address string) (string, error) {
	if address == "" {
		acct, err := a.identity.ActiveAccount()
		if err != nil {
			return "", a.track(err)
		}
		address = acct.Address
	}
	winston, err := a.gateway.Balance(ctx, address)
	if err != nil {
		return "", a.track(err)
	}
	ar, err := cost.WinstonToAR(winston)
	return ar, a.track(err)
}

// Estimate scans rawPath and returns its size summary and fee estimate.
func (a *PDApp) Estimate(ctx context.Context, rawPath string) (*pd.ScanSummary, pd.Cost, error) {
	p, _, err := fs.Resolve(rawPath)
	if err != nil {
		return nil, pd.Cost{}, a.track(fmt.Errorf("resolving path: %w", err))
	}
	summary, err := a.scanner.Scan(p)
	if err != nil {
		return nil, pd.Cost{}, a.track(err)
	}
	return summary, a.estimator.Estimate(ctx, summary.TotalSize), nil
}

// Affordability compares an estimate against the active account's balance.
type Affordability struct {
	Balance    string
	Affordable bool
}

// CheckAffordability reports whether the active account can pay estimate.
// It returns nil when the balance cannot be determined; the reason is
// logged and never fails the calling operation.
func (a *PDApp) CheckAffordability(ctx context.Context, estimate pd.Cost) *Affordability {
	acct, err := a.identity.ActiveAccount()
	if err != nil {
		a.logger.Warn("affordability check skipped", "error", err)
		return nil
	}
	winston, err := a.gateway.Balance(ctx, acct.Address)
	if err != nil {
		a.logger.Warn("balance lookup failed", "address", acct.Address, "error", err)
		return nil
	}
	balance, err := cost.WinstonToAR(winston)
	if err != nil {
		a.logger.Warn("unreadable balance", "address", acct.Address, "winston", winston, "error", err)
		return nil
	}
	cmp, err := cost.CompareAR(estimate.Native, balance)
	if err != nil {
		a.logger.Warn("comparing estimate to balance failed", "error", err)
		return nil
	}
	return &Affordability{Balance: balance, Affordable: cmp <= 0}
}

// PublishSite resolves rawPath, which must be a directory, and publishes it.
func (a *PDApp) PublishSite(ctx context.Context, rawPath, siteID string) (*pd.DeploymentRecord, error) {
	p, info, err := fs.Resolve(rawPath)
	if err != nil {
		return nil, a.track(fmt.Errorf("resolving path: %w", err))
	}
	if !info.IsDir() {
		return nil, a.track(fmt.Errorf("%w: %s is not a directory", pd.ErrValidation, p))
	}
	a.op.Parameters = p
	rec, err := a.service.PublishSite(ctx, p, siteID)
	return rec, a.track(err)
}

// PublishFile resolves rawPath, which must be a regular file, and publishes it.
func (a *PDApp) PublishFile(ctx context.Context, rawPath string) (*pd.FileUpload, error) {
	p, info, err := fs.Resolve(rawPath)
	if err != nil {
		return nil, a.track(fmt.Errorf("resolving path: %w", err))
	}
	if info.IsDir() {
		return nil, a.track(fmt.Errorf("%w: %s is a directory; use publish site", pd.ErrValidation, p))
	}
	a.op.Parameters = p
	up, err := a.service.PublishFile(ctx, p)
	return up, a.track(err)
}

// VerifyTransaction checks one transaction id.
func (a *PDApp) VerifyTransaction(ctx context.Context, id string) pd.TxVerification {
	return a.verifier.VerifyTransaction(ctx, id)
}

// VerifyDeployment checks a manifest and every file it references.
func (a *PDApp) VerifyDeployment(ctx context.Context, manifestID string) pd.DeploymentVerification {
	return a.verifier.VerifyDeployment(ctx, manifestID)
}

// RecentDeployments returns up to limit records, newest first.
func (a *PDApp) RecentDeployments(limit int) ([]*pd.DeploymentRecord, error) {
	recs, err := a.history.GetRecent(limit)
	return recs, a.track(err)
}

// Deployment returns one record by id.
func (a *PDApp) Deployment(id string) (*pd.DeploymentRecord, error) {
	rec, err := a.history.GetByID(id)
	return rec, a.track(err)
}

// DeleteDeployment removes one record by id.
func (a *PDApp) DeleteDeployment(id string) error {
	return a.track(a.history.Delete(id))
}

// ExportHistory writes a history export and returns its path.
func (a *PDApp) ExportHistory(ctx context.Context) (string, error) {
	path, err := a.history.ExportAll(ctx)
	return path, a.track(err)
}

// HistoryStats aggregates the retained history.
func (a *PDApp) HistoryStats() (*pd.DeploymentStats, error) {
	stats, err := a.history.GetStats()
	return stats, a.track(err)
}

// ResourceID resolves the stable id and front matter of a local file.
func (a *PDApp) ResourceID(ctx context.Context, rawPath string) (pd.ResourceIdentifier, pd.FileMetadata, error) {
	p, info, err := fs.Resolve(rawPath)
	if err != nil {
		return pd.ResourceIdentifier{}, pd.FileMetadata{}, a.track(fmt.Errorf("resolving path: %w", err))
	}
	if info.IsDir() {
		return pd.ResourceIdentifier{}, pd.FileMetadata{}, a.track(fmt.Errorf("%w: %s is a directory", pd.ErrValidation, p))
	}
	meta, err := a.resolver.Metadata(p)
	if err != nil {
		a.logger.Debug("reading front matter failed", "path", p, "error", err)
	}
	return a.resolver.Resolve(ctx, p), meta, nil
}

// ResourceStatus is the upload state of one local file.
type ResourceStatus struct {
	Resource pd.ResourceIdentifier
	Metadata pd.FileMetadata
	Uploads  []*pd.UploadRecord

	// Registry is the legacy archive's summary line, empty when no registry
	// is configured.
	Registry string
}

// ResourceStatus returns the catalog uploads and registry summary for rawPath.
func (a *PDApp) ResourceStatus(ctx context.Context, rawPath string) (*ResourceStatus, error) {
	ident, meta, err := a.ResourceID(ctx, rawPath)
	if err != nil {
		return nil, err
	}
	uploads, err := a.catalog.ListUploadRecords(ctx, ident.ID)
	if err != nil {
		return nil, a.track(fmt.Errorf("listing uploads: %w", err))
	}
	st := &ResourceStatus{Resource: ident, Metadata: meta, Uploads: uploads}
	if a.registry != nil {
		if st.Registry, err = a.registry.Status(ident.ID); err != nil {
			a.logger.Warn("registry status failed", "resource", ident.ID, "error", err)
		}
	}
	return st, nil
}

// Close logs the operation outcome and releases the catalog and log file.
func (a *PDApp) Close() error {
	var firstErr error

	if err := a.catalog.Close(); err != nil {
		firstErr = fmt.Errorf("closing catalog: %w", err)
	}

	if a.op.Failed() {
		a.logger.Error("operation finished", "operation", a.op.Name, "params", a.op.Parameters, "status", a.op.Status, "error", a.op.Err)
	} else {
		a.logger.Info("operation finished", "operation", a.op.Name, "params", a.op.Parameters, "status", a.op.Status)
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}
