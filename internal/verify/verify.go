// Package verify checks that published content is known to the network and
// retrievable from the gateway.
package verify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"permadeploy/internal/gateway"
	"permadeploy/internal/manifest"
	"permadeploy/internal/pd"
)

// Gateway is the subset of the gateway client verification needs.
type Gateway interface {
	QueryTransaction(ctx context.Context, id string) (*gateway.TxInfo, error)
	TransactionStatus(ctx context.Context, id string) (*gateway.StatusInfo, error)
	Fetch(ctx context.Context, id string) ([]byte, error)
	Accessible(ctx context.Context, id string) error
}

// Service never fails on network trouble: anything that cannot be proven
// absent is reported as pending.
type Service struct {
	gw          Gateway
	timeout     time.Duration
	concurrency int
	logger      pd.Logger
}

// New creates a verification service. timeout bounds each remote call.
func New(gw Gateway, timeout time.Duration, concurrency int, logger pd.Logger) *Service {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if concurrency <= 0 {
		concurrency = 8
	}
	return &Service{gw: gw, timeout: timeout, concurrency: concurrency, logger: pd.OrNop(logger)}
}

// VerifyTransaction classifies id. The GraphQL index is asked first; when it
// errors or does not know the id, the status endpoint decides. Only a miss
// on both is reported as failed.
func (s *Service) VerifyTransaction(ctx context.Context, id string) pd.TxVerification {
	v := pd.TxVerification{ID: id, Status: pd.TxPending}

	info, qerr := s.query(ctx, id)
	switch {
	case qerr != nil:
		s.logger.Debug("graphql lookup failed, using status endpoint", "id", id, "error", qerr)
	case info != nil && info.Confirmed:
		v.Status, v.Exists, v.BlockHeight = pd.TxConfirmed, true, info.BlockHeight
	case info != nil:
		v.Exists = true
	}

	if v.Status != pd.TxConfirmed {
		st, serr := s.status(ctx, id)
		switch {
		case serr != nil:
			s.logger.Warn("status lookup failed", "id", id, "error", serr)
		case st.Confirmed:
			v.Status, v.Exists, v.BlockHeight = pd.TxConfirmed, true, st.BlockHeight
		case st.Found:
			v.Exists = true
		case qerr == nil && info == nil:
			v.Status = pd.TxFailed
		}
	}

	if v.Exists {
		v.Accessible = s.accessible(ctx, id) == nil
	}
	return v
}

// VerifyDeployment fetches the manifest at manifestID and checks every
// content id it references. An unreachable manifest fails the deployment
// without checking files.
func (s *Service) VerifyDeployment(ctx context.Context, manifestID string) pd.DeploymentVerification {
	res := pd.DeploymentVerification{ManifestID: manifestID}

	fctx, cancel := context.WithTimeout(ctx, s.timeout)
	data, err := s.gw.Fetch(fctx, manifestID)
	cancel()
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("manifest %s: %v", manifestID, err))
		return res
	}
	res.ManifestAccessible = true

	m, err := manifest.Parse(data)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("manifest %s: %v", manifestID, err))
		return res
	}

	ids := m.ContentIDs()
	res.TotalFiles = len(ids)
	results := make([]error, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			results[i] = s.accessible(gctx, id)
			return nil
		})
	}
	g.Wait()

	for i, err := range results {
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", ids[i], err))
			continue
		}
		res.VerifiedFiles++
	}
	res.IsValid = res.VerifiedFiles == res.TotalFiles
	return res
}

func (s *Service) query(ctx context.Context, id string) (*gateway.TxInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.gw.QueryTransaction(ctx, id)
}

func (s *Service) status(ctx context.Context, id string) (*gateway.StatusInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.gw.TransactionStatus(ctx, id)
}

func (s *Service) accessible(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	err := s.gw.Accessible(ctx, id)
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: timed out", pd.ErrNetwork)
	}
	return err
}
