package ops

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"hftcore/internal/quant"
	"hftcore/internal/risk"
	"hftcore/internal/schema"
	"hftcore/internal/strategy"
)

// FileConfig mirrors the JSON config layout (spec.md 6's configuration
// table): venue/symbol registration, risk limits, per-venue rate limits,
// the strategy instances to run and the loop's own shutdown behavior.
type FileConfig struct {
	Registry   RegistryConfig         `json:"registry"`
	Risk       risk.Config            `json:"risk"`
	RateLimits []RateLimitConfig      `json:"rateLimits"`
	Strategies StrategiesConfig       `json:"strategies"`
	Loop       LoopConfig             `json:"loop"`
	Order      OrderConfig            `json:"order"`
	Features   FeatureFlagsConfig     `json:"features"`
}

// RegistryConfig defines venue and symbol mappings.
type RegistryConfig struct {
	Venues  []VenueConfig  `json:"venues"`
	Symbols []SymbolConfig `json:"symbols"`
}

// VenueConfig describes a venue entry. WSURL is optional: when set, the
// venue is wired to a real internal/venue/example WebSocket adapter;
// when empty, it runs against internal/venue/sim (paper trading).
type VenueConfig struct {
	Name  string `json:"name"`
	WSURL string `json:"wsUrl"`
	Scale int    `json:"scale"`
}

// SymbolConfig describes a symbol entry, plus the base/quote asset
// names the ledger and risk gate need to size fills and reservations.
type SymbolConfig struct {
	Name  string           `json:"name"`
	Venue string           `json:"venue"`
	Base  string           `json:"base"`
	Quote string           `json:"quote"`
	Scale schema.ScaleSpec `json:"scale"`
}

// RateLimitConfig is one venue's token-bucket parameters (per_venue.
// rate_limit.* in spec.md 6).
type RateLimitConfig struct {
	Venue          string  `json:"venue"`
	RequestsPerSec float64 `json:"requestsPerSecond"`
	Burst          float64 `json:"burst"`
}

// StrategiesConfig lists the strategy instances the loop runs.
type StrategiesConfig struct {
	MarketMaking []MarketMakingConfig `json:"marketMaking"`
	Arbitrage    []ArbitrageConfig    `json:"arbitrage"`
}

// MarketMakingConfig mirrors strategy.mm.* (spec.md 6): one quoting
// instance per (venue, symbol).
type MarketMakingConfig struct {
	Venue               string  `json:"venue"`
	Symbol              string  `json:"symbol"`
	TargetSpreadBps     float64 `json:"targetSpreadBps"`
	MinSpreadBps        float64 `json:"minSpreadBps"`
	MaxSpreadBps        float64 `json:"maxSpreadBps"`
	OrderSize           int64   `json:"orderSize"`
	MaxPosition         int64   `json:"maxPosition"`
	InventoryTarget     float64 `json:"inventoryTarget"`
	SkewCoeff           float64 `json:"skewCoeff"`
	Levels              int     `json:"levels"`
	TickSize            int64   `json:"tickSize"`
	RequoteToleranceBps float64 `json:"requoteToleranceBps"`
	CooldownMillis      int64   `json:"cooldownMillis"`
}

// ArbitrageConfig mirrors strategy.arb.* (spec.md 6): one cross-venue
// arbitrage instance per symbol across a fixed venue set.
type ArbitrageConfig struct {
	Symbol         string   `json:"symbol"`
	Venues         []string `json:"venues"`
	MinProfitBps   float64  `json:"minProfitBps"`
	OrderSize      int64    `json:"orderSize"`
	MaxPosition    int64    `json:"maxPosition"`
	MaxBookAgeMs   int64    `json:"maxBookAgeMs"`
	CooldownMillis int64    `json:"cooldownMillis"`
}

// LoopConfig mirrors loop.* (spec.md 6). It is parsed from the
// configuration file, but neither cmd/trader nor the event loop reads it.
type LoopConfig struct {
	GraceShutdown time.Duration `json:"graceShutdownMs"`
}

// OrderConfig describes the dummy order cmd/trader publishes in its
// legacy record-mode path (kept alongside the new strategy-driven loop
// for WAL/replay exercises that don't need live strategies).
type OrderConfig struct {
	OrderID     uint64             `json:"orderId"`
	StrategyID  uint32             `json:"strategyId"`
	Symbol      string             `json:"symbol"`
	Side        schema.OrderSide   `json:"side"`
	Type        schema.OrderType   `json:"type"`
	TimeInForce schema.TimeInForce `json:"timeInForce"`
	Price       schema.Price       `json:"price"`
	Qty         schema.Quantity    `json:"qty"`
}

// FeatureFlagsConfig captures optional runtime flags.
type FeatureFlagsConfig struct {
	EnableOrderFlow *bool `json:"enableOrderFlow"`
	EnableFills     *bool `json:"enableFills"`
}

// FeatureFlags are resolved runtime flags.
type FeatureFlags struct {
	EnableOrderFlow bool
	EnableFills     bool
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	Registry   *schema.Registry
	Risk       risk.Config
	RateLimits []ResolvedRateLimit
	Strategies ResolvedStrategies
	Loop       LoopConfig
	Order      OrderSpec
	Features   FeatureFlags

	// VenueIDs maps a venue's configured name to the quant.VenueID the
	// strategy/loop layer addresses it by.
	VenueIDs map[string]quant.VenueID
	// AssetPairs maps a symbol's quant.Symbol to its base/quote asset
	// names, the form internal/loop.AssetPair needs.
	AssetPairs map[quant.Symbol]AssetPairSpec
	// Venues lists the resolved per-venue adapter wiring (transport
	// choice, symbols to subscribe).
	Venues []ResolvedVenue
}

// ResolvedVenue is one venue's adapter wiring: which symbols trade
// there and, if WSURL is set, the real transport to dial instead of
// the in-memory simulator.
type ResolvedVenue struct {
	ID      quant.VenueID
	Name    string
	WSURL   string
	Scale   int
	Symbols []string
}

// AssetPairSpec names the base/quote assets backing one symbol.
type AssetPairSpec struct {
	Base  string
	Quote string
}

// ResolvedRateLimit is one venue's resolved token-bucket parameters.
type ResolvedRateLimit struct {
	Venue          quant.VenueID
	RequestsPerSec float64
	Burst          float64
}

// ResolvedStrategies holds the strategy configs translated into the
// quant-typed form internal/strategy's constructors take.
type ResolvedStrategies struct {
	MarketMaking []strategy.MarketMakingConfig
	Arbitrage    []strategy.ArbitrageConfig
}

// OrderSpec is the resolved order definition.
type OrderSpec struct {
	OrderID     uint64
	StrategyID  uint32
	SymbolID    schema.SymbolID
	Side        schema.OrderSide
	Type        schema.OrderType
	TimeInForce schema.TimeInForce
	Price       schema.Price
	Qty         schema.Quantity
}

// Load reads a JSON config file and resolves every section against the
// built registry.
func Load(path string) (Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, err
	}
	var cfg FileConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Loaded{}, err
	}

	registry, err := buildRegistry(cfg.Registry)
	if err != nil {
		return Loaded{}, err
	}

	venueIDs, err := venueIDIndex(cfg.Registry.Venues, registry)
	if err != nil {
		return Loaded{}, err
	}
	assetPairs := assetPairIndex(cfg.Registry.Symbols, registry)

	orderSpec, err := resolveOrderSpec(cfg.Order, registry)
	if err != nil {
		return Loaded{}, err
	}
	features := resolveFeatures(cfg.Features)

	rateLimits, err := resolveRateLimits(cfg.RateLimits, venueIDs)
	if err != nil {
		return Loaded{}, err
	}
	strategies, err := resolveStrategies(cfg.Strategies, venueIDs)
	if err != nil {
		return Loaded{}, err
	}
	venues := resolveVenues(cfg.Registry, venueIDs)

	return Loaded{
		Registry:   registry,
		Risk:       cfg.Risk,
		RateLimits: rateLimits,
		Strategies: strategies,
		Loop:       cfg.Loop,
		Order:      orderSpec,
		Features:   features,
		VenueIDs:   venueIDs,
		AssetPairs: assetPairs,
		Venues:     venues,
	}, nil
}

func resolveVenues(cfg RegistryConfig, venueIDs map[string]quant.VenueID) []ResolvedVenue {
	out := make([]ResolvedVenue, 0, len(cfg.Venues))
	for _, v := range cfg.Venues {
		rv := ResolvedVenue{ID: venueIDs[v.Name], Name: v.Name, WSURL: v.WSURL, Scale: v.Scale}
		for _, s := range cfg.Symbols {
			if s.Venue == v.Name {
				rv.Symbols = append(rv.Symbols, s.Name)
			}
		}
		out = append(out, rv)
	}
	return out
}

// Default returns a minimal single-venue, single-symbol configuration for
// tools invoked without a --config flag (the paper-trading and legacy
// record/replay demos). It deliberately configures no strategies: trade
// mode still requires an explicit config file naming at least one.
func Default() (Loaded, error) {
	reg := schema.NewRegistry()
	venueID, err := reg.AddVenue("SIM")
	if err != nil {
		return Loaded{}, err
	}
	scale := schema.ScaleSpec{PriceScale: 8, QuantityScale: 8, NotionalScale: 8, FeeScale: 8}
	symbolID, err := reg.AddSymbol("TEST-USD", venueID, scale)
	if err != nil {
		return Loaded{}, err
	}

	symbol := quant.Symbol("TEST-USD")
	qVenueID := quant.VenueID(venueID)

	return Loaded{
		Registry: reg,
		Risk: risk.Config{
			MaxOrderSize:  map[quant.Symbol]quant.Size{symbol: 1000},
			MaxOrderValue: map[quant.Symbol]quant.Notional{symbol: 1_000_000},
			MaxPosition:   map[quant.Symbol]quant.Size{symbol: 5_000},
		},
		Order: OrderSpec{
			OrderID:     1001,
			StrategyID:  1,
			SymbolID:    symbolID,
			Side:        schema.OrderSideBuy,
			Type:        schema.OrderTypeLimit,
			TimeInForce: schema.TimeInForceGTC,
			Price:       schema.Price(100),
			Qty:         schema.Quantity(10),
		},
		Features: FeatureFlags{EnableOrderFlow: true, EnableFills: true},
		VenueIDs: map[string]quant.VenueID{"SIM": qVenueID},
		AssetPairs: map[quant.Symbol]AssetPairSpec{
			symbol: {Base: "TEST", Quote: "USD"},
		},
		Venues: []ResolvedVenue{
			{ID: qVenueID, Name: "SIM", Symbols: []string{"TEST-USD"}},
		},
	}, nil
}

// LoadRegistry reads a JSON config file and only builds the registry.
func LoadRegistry(path string) (*schema.Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg FileConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return buildRegistry(cfg.Registry)
}

func buildRegistry(cfg RegistryConfig) (*schema.Registry, error) {
	reg := schema.NewRegistry()
	for _, venue := range cfg.Venues {
		if _, err := reg.AddVenue(venue.Name); err != nil {
			return nil, err
		}
	}
	for _, sym := range cfg.Symbols {
		venueID, ok := reg.VenueIDByName(sym.Venue)
		if !ok {
			return nil, fmt.Errorf("venue not found: %s", sym.Venue)
		}
		if err := validateScale(sym.Scale); err != nil {
			return nil, fmt.Errorf("invalid scale for %s: %w", sym.Name, err)
		}
		if _, err := reg.AddSymbol(sym.Name, venueID, sym.Scale); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func validateScale(scale schema.ScaleSpec) error {
	if scale.PriceScale < 0 || scale.QuantityScale < 0 || scale.NotionalScale < 0 || scale.FeeScale < 0 {
		return fmt.Errorf("scale must be >= 0")
	}
	return nil
}

// venueIDIndex resolves every configured venue name to the
// quant.VenueID the strategy/loop/rate-limit layers use, which is the
// same numeric space schema.VenueID occupies (both identify a venue by
// registration order).
func venueIDIndex(venues []VenueConfig, reg *schema.Registry) (map[string]quant.VenueID, error) {
	idx := make(map[string]quant.VenueID, len(venues))
	for _, v := range venues {
		id, ok := reg.VenueIDByName(v.Name)
		if !ok {
			return nil, fmt.Errorf("venue not found: %s", v.Name)
		}
		idx[v.Name] = quant.VenueID(id)
	}
	return idx, nil
}

func assetPairIndex(symbols []SymbolConfig, reg *schema.Registry) map[quant.Symbol]AssetPairSpec {
	idx := make(map[quant.Symbol]AssetPairSpec, len(symbols))
	for _, s := range symbols {
		if _, ok := reg.SymbolIDByName(s.Name); !ok {
			continue
		}
		idx[quant.Symbol(s.Name)] = AssetPairSpec{Base: s.Base, Quote: s.Quote}
	}
	return idx
}

func resolveOrderSpec(cfg OrderConfig, reg *schema.Registry) (OrderSpec, error) {
	if cfg.Symbol == "" {
		return OrderSpec{}, fmt.Errorf("order symbol is empty")
	}
	symbolID, ok := reg.SymbolIDByName(cfg.Symbol)
	if !ok {
		return OrderSpec{}, fmt.Errorf("order symbol not found: %s", cfg.Symbol)
	}
	if cfg.Qty <= 0 {
		return OrderSpec{}, fmt.Errorf("order qty must be > 0")
	}
	if cfg.Side == schema.OrderSideUnknown {
		return OrderSpec{}, fmt.Errorf("order side is unknown")
	}
	if cfg.Type == schema.OrderTypeUnknown {
		return OrderSpec{}, fmt.Errorf("order type is unknown")
	}
	if cfg.TimeInForce == schema.TimeInForceUnknown {
		return OrderSpec{}, fmt.Errorf("order timeInForce is unknown")
	}
	if cfg.Type == schema.OrderTypeLimit && cfg.Price <= 0 {
		return OrderSpec{}, fmt.Errorf("order price must be > 0 for limit orders")
	}
	if cfg.OrderID == 0 {
		cfg.OrderID = 1001
	}
	if cfg.StrategyID == 0 {
		cfg.StrategyID = 1
	}
	return OrderSpec{
		OrderID:     cfg.OrderID,
		StrategyID:  cfg.StrategyID,
		SymbolID:    symbolID,
		Side:        cfg.Side,
		Type:        cfg.Type,
		TimeInForce: cfg.TimeInForce,
		Price:       cfg.Price,
		Qty:         cfg.Qty,
	}, nil
}

func resolveFeatures(cfg FeatureFlagsConfig) FeatureFlags {
	flags := FeatureFlags{
		EnableOrderFlow: true,
		EnableFills:     true,
	}
	if cfg.EnableOrderFlow != nil {
		flags.EnableOrderFlow = *cfg.EnableOrderFlow
	}
	if cfg.EnableFills != nil {
		flags.EnableFills = *cfg.EnableFills
	}
	return flags
}

func resolveRateLimits(cfgs []RateLimitConfig, venues map[string]quant.VenueID) ([]ResolvedRateLimit, error) {
	out := make([]ResolvedRateLimit, 0, len(cfgs))
	for _, c := range cfgs {
		id, ok := venues[c.Venue]
		if !ok {
			return nil, fmt.Errorf("rate limit references unknown venue: %s", c.Venue)
		}
		if c.RequestsPerSec <= 0 {
			return nil, fmt.Errorf("rate limit for %s requires requestsPerSecond > 0", c.Venue)
		}
		out = append(out, ResolvedRateLimit{Venue: id, RequestsPerSec: c.RequestsPerSec, Burst: c.Burst})
	}
	return out, nil
}

func resolveStrategies(cfg StrategiesConfig, venues map[string]quant.VenueID) (ResolvedStrategies, error) {
	var out ResolvedStrategies
	for _, mm := range cfg.MarketMaking {
		venueID, ok := venues[mm.Venue]
		if !ok {
			return ResolvedStrategies{}, fmt.Errorf("market making config references unknown venue: %s", mm.Venue)
		}
		out.MarketMaking = append(out.MarketMaking, strategy.MarketMakingConfig{
			Venue:               venueID,
			Symbol:              quant.Symbol(mm.Symbol),
			TargetSpreadBps:     mm.TargetSpreadBps,
			MinSpreadBps:        mm.MinSpreadBps,
			MaxSpreadBps:        mm.MaxSpreadBps,
			OrderSize:           quant.Size(mm.OrderSize),
			MaxPosition:         quant.Size(mm.MaxPosition),
			InventoryTarget:     mm.InventoryTarget,
			SkewCoeff:           mm.SkewCoeff,
			Levels:              mm.Levels,
			TickSize:            quant.Price(mm.TickSize),
			RequoteToleranceBps: mm.RequoteToleranceBps,
			CooldownMillis:      quant.Timestamp(mm.CooldownMillis * int64(time.Millisecond)),
		})
	}
	for _, arb := range cfg.Arbitrage {
		venueIDs := make([]quant.VenueID, 0, len(arb.Venues))
		for _, name := range arb.Venues {
			id, ok := venues[name]
			if !ok {
				return ResolvedStrategies{}, fmt.Errorf("arbitrage config references unknown venue: %s", name)
			}
			venueIDs = append(venueIDs, id)
		}
		out.Arbitrage = append(out.Arbitrage, strategy.ArbitrageConfig{
			Symbol:         quant.Symbol(arb.Symbol),
			Venues:         venueIDs,
			MinProfitBps:   arb.MinProfitBps,
			OrderSize:      quant.Size(arb.OrderSize),
			MaxPosition:    quant.Size(arb.MaxPosition),
			MaxBookAge:     quant.Timestamp(arb.MaxBookAgeMs * int64(time.Millisecond)),
			CooldownMillis: quant.Timestamp(arb.CooldownMillis * int64(time.Millisecond)),
		})
	}
	return out, nil
}
