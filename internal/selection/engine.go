package selection

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/amaslov/equitybot/internal/adapters/config"
	"github.com/amaslov/equitybot/pkg/logger"
	"github.com/amaslov/equitybot/pkg/models"
)

// Strategy names the selection path that produced a result
type Strategy string

const (
	StrategyCappedRanking       Strategy = "capped_ranking"
	StrategyDiversifiedFallback Strategy = "diversified_fallback"
)

const (
	concentrationTopN  = 10
	concentrationLimit = 3
	differentiationN   = 5
)

// MarketData supplies per-symbol snapshots in bulk. Partial results are
// allowed; missing symbols are simply absent from the map.
type MarketData interface {
	GetSnapshots(ctx context.Context, symbols []string) (map[string]*models.MarketSnapshot, error)
}

// SentimentSource scores symbols 0.0 (bearish) to 1.0 (bullish)
type SentimentSource interface {
	GetSentimentScores(ctx context.Context, symbols []string) (map[string]float64, error)
}

// Engine runs the stock selection pipeline: score, gate, rank, diversify.
// Every failure path degrades to a safe default; SelectCandidates never
// returns an empty list.
type Engine struct {
	universe   *Universe
	scorer     *Scorer
	marketData MarketData
	etfData    ETFData
	sentiment  SentimentSource // nil disables the blend stage

	hours     config.MarketHours
	threshold float64
	location  *time.Location
	now       func() time.Time
}

// NewEngine creates new selection engine. sentiment may be nil.
func NewEngine(universe *Universe, marketData MarketData, etfData ETFData, sentiment SentimentSource, cfg config.SelectionConfig) *Engine {
	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Warn("Invalid selection timezone, falling back to UTC",
			zap.String("timezone", cfg.Timezone), zap.Error(err))
		location = time.UTC
	}

	return &Engine{
		universe:   universe,
		scorer:     NewScorer(universe),
		marketData: marketData,
		etfData:    etfData,
		sentiment:  sentiment,
		hours:      cfg.Hours,
		threshold:  cfg.DifferentiationThreshold,
		location:   location,
		now:        time.Now,
	}
}

// Universe returns the engine's candidate universe
func (e *Engine) Universe() *Universe {
	return e.universe
}

// SelectCandidates produces at most maxStocks unique symbols to trade
// this cycle, together with the strategy that produced them. It never
// fails: any upstream problem degrades to the diversified fallback.
func (e *Engine) SelectCandidates(ctx context.Context, maxStocks int) (symbols []string, strategy Strategy) {
	now := e.now().In(e.location)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Selection pipeline panicked, using fallback", zap.Any("panic", r))
			symbols = diversifiedFallback(now, maxStocks)
			strategy = StrategyDiversifiedFallback
		}
	}()

	if maxStocks < 1 {
		maxStocks = 1
	}

	candidates := e.scoreUniverse(ctx, now)
	if len(candidates) == 0 {
		logger.Warn("No scorable candidates, using diversified fallback")
		return diversifiedFallback(now, maxStocks), StrategyDiversifiedFallback
	}

	sortCandidates(candidates)

	if tooUniform(candidates, e.threshold) {
		logger.Info("Score spread too uniform to rank, using diversified fallback")
		return diversifiedFallback(now, maxStocks), StrategyDiversifiedFallback
	}

	if tooConcentrated(candidates) {
		logger.Info("Top candidates concentrated in one sector, using diversified fallback")
		return diversifiedFallback(now, maxStocks), StrategyDiversifiedFallback
	}

	candidates = e.blendSentiment(ctx, candidates, maxStocks)

	selected := cappedRanking(candidates, maxStocks)

	logger.Info("Stock selection complete",
		zap.Strings("symbols", selected),
		zap.String("strategy", string(StrategyCappedRanking)))

	return selected, StrategyCappedRanking
}

// scoreUniverse fetches market data for the whole universe and scores
// every reachable symbol, dropping those with non-positive scores
func (e *Engine) scoreUniverse(ctx context.Context, now time.Time) []ScoredCandidate {
	snapshots, err := e.marketData.GetSnapshots(ctx, e.universe.Symbols())
	if err != nil {
		logger.Warn("Universe market data unavailable", zap.Error(err))
		return nil
	}

	weights := ComputeSectorWeights(ctx, e.etfData)
	timeFactor := TimeFactor(now, e.hours)

	candidates := make([]ScoredCandidate, 0, len(snapshots))

	for _, symbol := range e.universe.Symbols() {
		snap, ok := snapshots[symbol]
		if !ok || snap == nil {
			continue
		}

		sector := e.universe.SectorOf(symbol)
		base := e.scorer.Score(symbol, snap, now)
		weight := weights.Weight(sector)

		adjusted := base * weight * timeFactor
		confirmed := isConfirmed(snap)
		if confirmed {
			adjusted *= confirmedBoost
		}

		if adjusted <= 0 {
			continue
		}

		candidates = append(candidates, ScoredCandidate{
			Symbol:        symbol,
			Sector:        sector,
			BaseScore:     base,
			SectorWeight:  weight,
			TimeFactor:    timeFactor,
			AdjustedScore: adjusted,
			Confirmed:     confirmed,
		})
	}

	return candidates
}

func sortCandidates(candidates []ScoredCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].AdjustedScore != candidates[j].AdjustedScore {
			return candidates[i].AdjustedScore > candidates[j].AdjustedScore
		}
		return candidates[i].Symbol < candidates[j].Symbol
	})
}

// tooUniform reports whether the top-5 score spread is below the
// differentiation threshold. Fewer than 5 candidates never trigger it.
func tooUniform(candidates []ScoredCandidate, threshold float64) bool {
	if len(candidates) < differentiationN {
		return false
	}
	spread := candidates[0].AdjustedScore - candidates[differentiationN-1].AdjustedScore
	return spread < threshold
}

// tooConcentrated reports whether any sector supplies 3 or more of the
// top 10 candidates. It only applies when at least 10 candidates exist.
func tooConcentrated(candidates []ScoredCandidate) bool {
	if len(candidates) < concentrationTopN {
		return false
	}

	counts := make(map[Sector]int)
	for _, c := range candidates[:concentrationTopN] {
		counts[c.Sector]++
		if counts[c.Sector] >= concentrationLimit {
			return true
		}
	}
	return false
}

// blendSentiment recombines the top 2*maxStocks scores with LLM sentiment
// as combined = technical*0.7 + sentiment*technical*0.3. Any failure
// leaves the ranking untouched.
func (e *Engine) blendSentiment(ctx context.Context, candidates []ScoredCandidate, maxStocks int) []ScoredCandidate {
	if e.sentiment == nil {
		return candidates
	}

	topN := 2 * maxStocks
	if topN > len(candidates) {
		topN = len(candidates)
	}

	symbols := make([]string, topN)
	for i := 0; i < topN; i++ {
		symbols[i] = candidates[i].Symbol
	}

	scores, err := e.sentiment.GetSentimentScores(ctx, symbols)
	if err != nil {
		logger.Warn("Sentiment scoring failed, keeping technical ranking", zap.Error(err))
		return candidates
	}

	blended := make([]ScoredCandidate, len(candidates))
	copy(blended, candidates)

	for i := 0; i < topN; i++ {
		sentiment, ok := scores[blended[i].Symbol]
		if !ok || sentiment < 0 || sentiment > 1 {
			sentiment = 0.5
		}
		tech := blended[i].AdjustedScore
		blended[i].AdjustedScore = tech*0.7 + sentiment*tech*0.3
	}

	sortCandidates(blended)
	return blended
}

// cappedRanking picks the best candidate from each distinct sector first,
// then fills remaining slots subject to a per-sector cap
func cappedRanking(candidates []ScoredCandidate, maxStocks int) []string {
	sectorCap := maxStocks / 3
	if sectorCap < 1 {
		sectorCap = 1
	}

	selected := make([]string, 0, maxStocks)
	used := make(map[string]bool)
	sectorCounts := make(map[Sector]int)

	// One best name per sector for baseline diversity
	for _, c := range candidates {
		if len(selected) >= maxStocks {
			break
		}
		if sectorCounts[c.Sector] > 0 {
			continue
		}
		selected = append(selected, c.Symbol)
		used[c.Symbol] = true
		sectorCounts[c.Sector]++
	}

	// Fill the rest by score within the per-sector cap
	for _, c := range candidates {
		if len(selected) >= maxStocks {
			break
		}
		if used[c.Symbol] || sectorCounts[c.Sector] >= sectorCap {
			continue
		}
		selected = append(selected, c.Symbol)
		used[c.Symbol] = true
		sectorCounts[c.Sector]++
	}

	return selected
}

// SectorAnalysis scores up to three symbols per sector and summarizes
// each sector with an average score and a coarse recommendation.
// Best-effort: sectors without data are omitted.
func (e *Engine) SectorAnalysis(ctx context.Context) []models.SectorAnalysis {
	now := e.now().In(e.location)

	bySector := make(map[Sector][]string)
	for _, symbol := range e.universe.Symbols() {
		sector := e.universe.SectorOf(symbol)
		if sector == SectorOther {
			continue
		}
		if len(bySector[sector]) < 3 {
			bySector[sector] = append(bySector[sector], symbol)
		}
	}

	var all []string
	for _, symbols := range bySector {
		all = append(all, symbols...)
	}

	snapshots, err := e.marketData.GetSnapshots(ctx, all)
	if err != nil {
		logger.Warn("Sector analysis market data unavailable", zap.Error(err))
		return nil
	}

	var analyses []models.SectorAnalysis
	for sector, symbols := range bySector {
		var total float64
		analyzed := 0

		for _, symbol := range symbols {
			snap, ok := snapshots[symbol]
			if !ok || snap == nil {
				continue
			}
			total += e.scorer.Score(symbol, snap, now)
			analyzed++
		}

		if analyzed == 0 {
			continue
		}

		avg := total / float64(analyzed)
		analyses = append(analyses, models.SectorAnalysis{
			Sector:         string(sector),
			AvgScore:       avg,
			StocksAnalyzed: analyzed,
			Recommendation: recommendationFor(avg),
		})
	}

	sort.Slice(analyses, func(i, j int) bool {
		return analyses[i].AvgScore > analyses[j].AvgScore
	})

	return analyses
}

func recommendationFor(avgScore float64) string {
	switch {
	case avgScore > 50:
		return "BUY"
	case avgScore > 30:
		return "HOLD"
	default:
		return "AVOID"
	}
}
