package selection

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/amaslov/equitybot/pkg/logger"
)

// Sector identifies a market sector within the universe
type Sector string

const (
	SectorTechnology    Sector = "Technology"
	SectorFinancial     Sector = "Financial"
	SectorHealthcare    Sector = "Healthcare"
	SectorStaples       Sector = "ConsumerStaples"
	SectorDiscretionary Sector = "ConsumerDiscretionary"
	SectorIndustrial    Sector = "Industrial"
	SectorEnergy        Sector = "Energy"
	SectorUtilities     Sector = "Utilities"
	SectorOther         Sector = "OTHER"
)

// sectorETFs maps each sector to its proxy ETF used for measuring recent
// sector performance. OTHER has no proxy and always gets a neutral weight.
var sectorETFs = map[Sector]string{
	SectorTechnology:    "XLK",
	SectorFinancial:     "XLF",
	SectorHealthcare:    "XLV",
	SectorStaples:       "XLP",
	SectorDiscretionary: "XLY",
	SectorIndustrial:    "XLI",
	SectorEnergy:        "XLE",
	SectorUtilities:     "XLU",
}

// sectorPreference is the static desirability bonus per sector. Defensive
// sectors rank highest for this strategy.
var sectorPreference = map[Sector]float64{
	SectorStaples:       10,
	SectorHealthcare:    9,
	SectorUtilities:     8,
	SectorFinancial:     8,
	SectorIndustrial:    7,
	SectorTechnology:    6,
	SectorDiscretionary: 5,
	SectorEnergy:        3,
	SectorOther:         5,
}

var defaultSectorMap = map[string]Sector{
	"AAPL": SectorTechnology, "MSFT": SectorTechnology, "GOOGL": SectorTechnology,
	"META": SectorTechnology, "NVDA": SectorTechnology, "NFLX": SectorTechnology,
	"TSLA": SectorDiscretionary, "AMZN": SectorDiscretionary,
	"JPM": SectorFinancial, "BAC": SectorFinancial, "WFC": SectorFinancial,
	"GS": SectorFinancial, "MS": SectorFinancial, "V": SectorFinancial, "MA": SectorFinancial,
	"JNJ": SectorHealthcare, "PFE": SectorHealthcare, "UNH": SectorHealthcare,
	"ABBV": SectorHealthcare, "MRK": SectorHealthcare,
	"KO": SectorStaples, "PEP": SectorStaples, "WMT": SectorStaples,
	"HD": SectorDiscretionary, "MCD": SectorDiscretionary, "NKE": SectorDiscretionary,
	"BA": SectorIndustrial, "CAT": SectorIndustrial, "GE": SectorIndustrial, "MMM": SectorIndustrial,
	"XOM": SectorEnergy, "CVX": SectorEnergy, "COP": SectorEnergy,
}

var defaultSymbols = []string{
	// Tech giants
	"AAPL", "MSFT", "GOOGL", "AMZN", "META", "TSLA", "NVDA", "NFLX",
	// Finance
	"JPM", "BAC", "WFC", "GS", "MS", "V", "MA",
	// Healthcare
	"JNJ", "PFE", "UNH", "ABBV", "MRK",
	// Consumer
	"KO", "PEP", "WMT", "HD", "MCD", "NKE",
	// Industrial
	"BA", "CAT", "GE", "MMM",
	// Energy
	"XOM", "CVX", "COP",
	// Broad-market ETFs
	"SPY", "QQQ", "IWM", "VTI",
}

// Universe is the mutable set of candidate symbols and their sector
// mapping. Safe for concurrent use.
type Universe struct {
	mu      sync.RWMutex
	symbols []string
	sectors map[string]Sector
}

// NewUniverse creates the default universe of liquid large caps and ETFs
func NewUniverse() *Universe {
	symbols := make([]string, len(defaultSymbols))
	copy(symbols, defaultSymbols)

	sectors := make(map[string]Sector, len(defaultSectorMap))
	for symbol, sector := range defaultSectorMap {
		sectors[symbol] = sector
	}

	return &Universe{
		symbols: symbols,
		sectors: sectors,
	}
}

type universeFile struct {
	Symbols []string          `yaml:"symbols"`
	Sectors map[string]string `yaml:"sectors"`
}

// LoadUniverse reads a universe definition from a YAML file, falling back
// to the default universe if the path is empty
func LoadUniverse(path string) (*Universe, error) {
	if path == "" {
		return NewUniverse(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read universe file: %w", err)
	}

	var file universeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse universe file: %w", err)
	}

	if len(file.Symbols) == 0 {
		return nil, fmt.Errorf("universe file %s contains no symbols", path)
	}

	u := &Universe{
		sectors: make(map[string]Sector),
	}

	seen := make(map[string]bool)
	for _, symbol := range file.Symbols {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if symbol == "" || seen[symbol] {
			continue
		}
		seen[symbol] = true
		u.symbols = append(u.symbols, symbol)
	}

	for symbol, sector := range file.Sectors {
		u.sectors[strings.ToUpper(strings.TrimSpace(symbol))] = Sector(sector)
	}

	logger.Info("Universe loaded from file",
		zap.String("path", path),
		zap.Int("symbols", len(u.symbols)))

	return u, nil
}

// Symbols returns a copy of the current symbol list
func (u *Universe) Symbols() []string {
	u.mu.RLock()
	defer u.mu.RUnlock()

	out := make([]string, len(u.symbols))
	copy(out, u.symbols)
	return out
}

// SectorOf returns the sector for a symbol, OTHER when unmapped
func (u *Universe) SectorOf(symbol string) Sector {
	u.mu.RLock()
	defer u.mu.RUnlock()

	if sector, ok := u.sectors[symbol]; ok {
		return sector
	}
	return SectorOther
}

// Size returns the number of symbols in the universe
func (u *Universe) Size() int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return len(u.symbols)
}

// Update appends validated symbols to the universe. Symbols are
// uppercased, deduplicated, and must be purely alphabetic.
func (u *Universe) Update(newSymbols []string) int {
	u.mu.Lock()
	defer u.mu.Unlock()

	existing := make(map[string]bool, len(u.symbols))
	for _, s := range u.symbols {
		existing[s] = true
	}

	added := 0
	for _, symbol := range newSymbols {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if symbol == "" || !isAlpha(symbol) || existing[symbol] {
			continue
		}
		u.symbols = append(u.symbols, symbol)
		existing[symbol] = true
		added++
	}

	if added > 0 {
		logger.Info("Universe updated", zap.Int("added", added), zap.Int("total", len(u.symbols)))
	} else {
		logger.Warn("No valid symbols provided for universe update")
	}

	return added
}

func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// SectorETF returns the proxy ETF for a sector, empty for OTHER
func SectorETF(sector Sector) string {
	return sectorETFs[sector]
}

// AllSectors returns every sector that has an ETF proxy
func AllSectors() []Sector {
	return []Sector{
		SectorTechnology, SectorFinancial, SectorHealthcare, SectorStaples,
		SectorDiscretionary, SectorIndustrial, SectorEnergy, SectorUtilities,
	}
}
