// Package cost estimates upload fees.
package cost

import (
	"context"
	"math/big"
	"strconv"
	"time"

	"permadeploy/internal/pd"
)

const (
	MiB = 1 << 20

	// ChunkSize is the unit the network bills storage in.
	ChunkSize = 256 * 1024

	DefaultWinstonPerMiB = 2_500_000_000
	DefaultMarginPercent = 20
)

// PriceFeed quotes the fiat price of one AR.
type PriceFeed interface {
	Price(ctx context.Context) (float64, error)
}

// Estimator implements pd.CostEstimator with a fixed per-MiB rate plus a
// safety margin, so estimates err on the high side.
type Estimator struct {
	winstonPerMiB *big.Int
	marginPercent int64
	feed          PriceFeed
	feedTimeout   time.Duration
	logger        pd.Logger
}

var _ pd.CostEstimator = (*Estimator)(nil)

// NewEstimator creates an estimator. feed may be nil.
func NewEstimator(winstonPerMiB int64, marginPercent int, feed PriceFeed, feedTimeout time.Duration, logger pd.Logger) *Estimator {
	if winstonPerMiB <= 0 {
		winstonPerMiB = DefaultWinstonPerMiB
	}
	if marginPercent < 0 {
		marginPercent = 0
	}
	if feedTimeout <= 0 {
		feedTimeout = 10 * time.Second
	}
	return &Estimator{
		winstonPerMiB: big.NewInt(winstonPerMiB),
		marginPercent: int64(marginPercent),
		feed:          feed,
		feedTimeout:   feedTimeout,
		logger:        pd.OrNop(logger),
	}
}

// Winston returns the estimated fee for size bytes. Size is rounded up to
// whole chunks, with at least one chunk.
func (e *Estimator) Winston(size int64) *big.Int {
	chunks := (max(size, 1) + ChunkSize - 1) / ChunkSize
	bytes := new(big.Int).Mul(big.NewInt(chunks), big.NewInt(ChunkSize))

	w := new(big.Int).Mul(bytes, e.winstonPerMiB)
	w = ceilDiv(w, big.NewInt(MiB))
	w.Mul(w, big.NewInt(100+e.marginPercent))
	return ceilDiv(w, big.NewInt(100))
}

// Estimate returns the fee for size bytes in AR. The fiat value is added
// only when the price feed answers.
func (e *Estimator) Estimate(ctx context.Context, size int64) pd.Cost {
	w := e.Winston(size)
	c := pd.Cost{Native: FormatAR(w)}
	if e.feed == nil {
		return c
	}

	ctx, cancel := context.WithTimeout(ctx, e.feedTimeout)
	defer cancel()
	price, err := e.feed.Price(ctx)
	if err != nil {
		e.logger.Debug("fiat price unavailable", "error", err)
		return c
	}

	ar, _ := new(big.Float).SetInt(w).Float64()
	fiat := ar / 1e12 * price
	// Rounded to cents.
	fiat, _ = strconv.ParseFloat(strconv.FormatFloat(fiat, 'f', 2, 64), 64)
	c.Fiat = &fiat
	return c
}

func ceilDiv(a, b *big.Int) *big.Int {
	q, r := new(big.Int).QuoRem(a, b, new(big.Int))
	if r.Sign() > 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}
