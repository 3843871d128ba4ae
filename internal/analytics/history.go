package analytics

import (
	"math/rand"

	"github.com/shopspring/decimal"

	"autovault/internal/domain"
)

// historyBucketSpan is the synthetic spacing between history points when
// the vault has not executed yet and no natural end anchor exists.
const historyBucketSpan = 3600 // seconds

// BuildHistory produces a deterministic interpolation between the vault's
// total deposits (earliest point) and its current balance (latest point)
// across bucketCount points. The same vault, bucketCount and seed always
// yield an identical sequence, so tests and re-renders are reproducible.
//
// This is an approximation standing in for a real on-chain event series and
// must be labeled as such wherever displayed.
func BuildHistory(v domain.Vault, bucketCount int, seed int64) []domain.HistoryPoint {
	if bucketCount <= 0 {
		return []domain.HistoryPoint{}
	}

	start := v.CreatedAt
	end := v.LastExecution
	// A real span narrower than the bucket count would truncate to duplicate
	// timestamps; fall back to synthetic spacing so the series stays strictly
	// increasing.
	if end-start < int64(bucketCount-1) {
		end = start + int64(bucketCount-1)*historyBucketSpan
	}

	if bucketCount == 1 {
		return []domain.HistoryPoint{{Timestamp: end, Value: v.Balance}}
	}

	startVal := v.TotalDeposits.InexactFloat64()
	endVal := v.Balance.InexactFloat64()
	span := endVal - startVal

	// Jitter amplitude scales with the move size; zero at both endpoints so
	// the series anchors exactly on deposits and current balance.
	amp := span
	if amp < 0 {
		amp = -amp
	}
	amp *= 0.15

	rng := rand.New(rand.NewSource(seed))
	step := float64(end-start) / float64(bucketCount-1)

	points := make([]domain.HistoryPoint, bucketCount)
	for i := 0; i < bucketCount; i++ {
		t := float64(i) / float64(bucketCount-1)
		noise := (rng.Float64()*2 - 1) * amp * 4 * t * (1 - t)

		value := startVal + span*t + noise
		if value < 0 {
			value = 0
		}

		points[i] = domain.HistoryPoint{
			Timestamp: start + int64(float64(i)*step),
			Value:     decimal.NewFromFloat(value).Round(8),
		}
	}

	// Anchor the endpoints exactly.
	points[0].Value = v.TotalDeposits
	points[bucketCount-1].Value = v.Balance
	points[bucketCount-1].Timestamp = end

	return points
}
