package pipeline

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/02loveslollipop/corrosight/internal/alignment"
	"github.com/02loveslollipop/corrosight/internal/chain"
	"github.com/02loveslollipop/corrosight/internal/forecast"
	"github.com/02loveslollipop/corrosight/internal/growth"
	"github.com/02loveslollipop/corrosight/internal/integrity"
	"github.com/02loveslollipop/corrosight/internal/matching"
	"github.com/02loveslollipop/corrosight/internal/models"
	"github.com/02loveslollipop/corrosight/internal/params"
)

// ErrNoGrowth is returned by queries that need a latest pair with growth.
var ErrNoGrowth = errors.New("snapshot has no analysed run pair")

// PairArtifacts are the outputs of one run pair.
type PairArtifacts struct {
	Pair      models.RunPair    `json:"pair"`
	Alignment *alignment.Result `json:"alignment"`
	Matches   *matching.Result  `json:"matches"`
	Growth    *growth.Result    `json:"growth"`
}

// Snapshot is one complete, immutable pipeline output. Readers must not
// modify anything reachable from it.
type Snapshot struct {
	ID         uuid.UUID                 `json:"id"`
	Generation uint64                    `json:"generation"`
	CreatedAt  time.Time                 `json:"created_at"`
	DatasetID  string                    `json:"dataset_id"`
	Years      []int                     `json:"years"`
	Pairs      map[string]*PairArtifacts `json:"-"`
	Latest     string                    `json:"latest_pair,omitempty"`
	Direct     *PairArtifacts            `json:"-"`
	Chains     *chain.Result             `json:"-"`
	Integrity  *integrity.Report         `json:"-"`
	Failures   []PairFailure             `json:"failures"`
	Params     params.Params             `json:"-"`
}

// Pair looks up a consecutive pair or the direct pair by key.
func (s *Snapshot) Pair(key string) (*PairArtifacts, bool) {
	if pa, ok := s.Pairs[key]; ok {
		return pa, true
	}
	if s.Direct != nil && s.Direct.Pair.Key() == key {
		return s.Direct, true
	}
	return nil, false
}

// PairKeys lists the analysed pairs in year order, direct pair last.
func (s *Snapshot) PairKeys() []string {
	keys := make([]string, 0, len(s.Pairs)+1)
	for k := range s.Pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if s.Direct != nil {
		keys = append(keys, s.Direct.Pair.Key())
	}
	return keys
}

// LatestPair returns the artifacts of the most recent consecutive pair.
func (s *Snapshot) LatestPair() (*PairArtifacts, bool) {
	pa, ok := s.Pairs[s.Latest]
	return pa, ok
}

// Forecast extrapolates the latest pair to year.
func (s *Snapshot) Forecast(year int) (*forecast.Forecast, error) {
	pa, ok := s.LatestPair()
	if !ok {
		return nil, ErrNoGrowth
	}
	return forecast.Predict(pa.Growth, s.Chains, year, s.Params)
}

// MatchCounts is the number of matches per pair and confidence label.
func (s *Snapshot) MatchCounts() map[string]map[string]int {
	out := make(map[string]map[string]int, len(s.Pairs)+1)
	for _, key := range s.PairKeys() {
		pa, _ := s.Pair(key)
		byLabel := make(map[string]int, len(pa.Matches.Stats.ByLabel))
		for label, n := range pa.Matches.Stats.ByLabel {
			byLabel[label] = n
		}
		out[key] = byLabel
	}
	return out
}

// TotalMatches sums matches over the consecutive pairs.
func (s *Snapshot) TotalMatches() int {
	var n int
	for _, pa := range s.Pairs {
		n += len(pa.Matches.Matches)
	}
	return n
}
