package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	pyroscope "github.com/grafana/pyroscope-go"

	"hftcore/internal/bus"
	"hftcore/internal/codec"
	"hftcore/internal/core"
	"hftcore/internal/ledger"
	"hftcore/internal/loop"
	"hftcore/internal/market"
	"hftcore/internal/obs"
	"hftcore/internal/oms"
	"hftcore/internal/ops"
	"hftcore/internal/persist"
	"hftcore/internal/quant"
	"hftcore/internal/ratelimit"
	"hftcore/internal/recorder"
	"hftcore/internal/risk"
	"hftcore/internal/schema"
	"hftcore/internal/state"
	"hftcore/internal/strategy"
	"hftcore/internal/venue"
	"hftcore/internal/venue/example"
	"hftcore/internal/venue/sim"
	"hftcore/pkg/conn"
)

// emptyLogger discards pyroscope's internal diagnostic logging; the
// profiler's own failures surface through pyroscope.Start's error return
// instead.
type emptyLogger struct{}

func (emptyLogger) Infof(_ string, _ ...interface{})  {}
func (emptyLogger) Debugf(_ string, _ ...interface{}) {}
func (emptyLogger) Errorf(_ string, _ ...interface{}) {}

// startProfiler optionally launches a continuous pyroscope profiler for
// the trade-mode process. Returns a no-op stop func when addr is empty.
func startProfiler(addr string) (func(), error) {
	if addr == "" {
		return func() {}, nil
	}
	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: "hftcore.trader",
		ServerAddress:   addr,
		Logger:          emptyLogger{},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
		},
	})
	if err != nil {
		return nil, err
	}
	return func() { _ = profiler.Stop() }, nil
}

type runtimeConfig struct {
	v atomic.Value
}

func newRuntimeConfig(loaded ops.Loaded) *runtimeConfig {
	var rc runtimeConfig
	rc.v.Store(loaded)
	return &rc
}

func (r *runtimeConfig) Load() ops.Loaded {
	return r.v.Load().(ops.Loaded)
}

func (r *runtimeConfig) Update(loaded ops.Loaded) {
	r.v.Store(loaded)
}

func main() {
	tradeMode := flag.Bool("trade", false, "Run the strategy-driven event loop instead of the legacy record/replay paths")
	walDir := flag.String("wal-dir", "testdata/wal", "WAL directory for recording")
	configPath := flag.String("config", "", "Path to JSON config")
	configReload := flag.Duration("config-reload-interval", 2*time.Second, "Config reload interval (0=disable)")
	orderCount := flag.Int("order-count", 1, "Number of orders to publish in record mode")
	orderInterval := flag.Duration("order-interval", 0, "Delay between orders in record mode")
	snapshotPath := flag.String("snapshot-path", "", "Position snapshot output (default: <wal-dir>/positions.json)")
	recoverEnabled := flag.Bool("recover", false, "Recover positions from snapshot + WAL")
	recoverSnapshot := flag.String("recover-snapshot", "", "Snapshot path for recovery (default: <wal-dir>/positions.json)")
	recoverPrefix := flag.String("recover-prefix", "", "WAL file prefix for recovery (default: wal)")
	recoverNoChecksum := flag.Bool("recover-no-checksum", false, "Disable checksum validation for recovery")
	recoverMaxPayload := flag.Int("recover-max-payload", 0, "Max payload size in bytes for recovery (0=unlimited)")

	replayDir := flag.String("replay-dir", "", "WAL directory for replay mode")
	replayPrefix := flag.String("replay-prefix", "", "WAL file prefix (default: wal)")
	replaySpeed := flag.Float64("replay-speed", 0, "Playback speed (1=real-time, 0=no pacing)")
	replayUseRecv := flag.Bool("replay-use-recv-time", false, "Use receive timestamp for pacing")
	replayNoChecksum := flag.Bool("replay-no-checksum", false, "Disable checksum validation")
	replayMaxPayload := flag.Int("replay-max-payload", 0, "Max payload size in bytes (0=unlimited)")
	replaySnapshot := flag.String("replay-snapshot", "", "Snapshot path for replay verification (default: <replay-dir>/positions.json)")
	replayVerifySnapshot := flag.Bool("replay-verify-snapshot", true, "Verify positions against snapshot after replay")
	profileAddr := flag.String("profile-server", "", "Pyroscope server address to send continuous profiles to (empty disables profiling)")
	persistDSN := flag.String("persist-dsn", "", "Postgres connection string for periodic position persistence (empty disables persistence)")
	persistInterval := flag.Duration("persist-interval", 30*time.Second, "Interval between position persistence snapshots")
	flag.Parse()

	ops.LoadEnv()
	stopProfiler, err := startProfiler(*profileAddr)
	if err != nil {
		log.Fatalf("profiler start failed: %v", err)
	}
	defer stopProfiler()

	ctx := context.Background()
	if *replayDir != "" {
		cfg := recorder.PlaybackConfig{
			Dir:             *replayDir,
			FilePrefix:      *replayPrefix,
			Speed:           *replaySpeed,
			UseRecvTime:     *replayUseRecv,
			DisableChecksum: *replayNoChecksum,
			MaxPayloadSize:  *replayMaxPayload,
		}
		snapshotIn := resolveSnapshotPath(*replayDir, *replaySnapshot)
		if err := runReplay(ctx, cfg, snapshotIn, *replayVerifySnapshot); err != nil {
			log.Fatalf("replay failed: %v", err)
		}
		return
	}

	loaded, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	runtime := newRuntimeConfig(loaded)
	if *configPath != "" && *configReload > 0 {
		go watchConfig(ctx, *configPath, *configReload, runtime.Update)
	}

	if *tradeMode {
		tradeCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := runTrade(tradeCtx, loaded, *persistDSN, *persistInterval); err != nil {
			log.Fatalf("trade failed: %v", err)
		}
		return
	}

	snapshotOut := resolveSnapshotPath(*walDir, *snapshotPath)
	var recoverCfg *state.RecoverConfig
	if *recoverEnabled {
		recoverPath := resolveSnapshotPath(*walDir, *recoverSnapshot)
		recoverCfg = &state.RecoverConfig{
			WALDir:          *walDir,
			SnapshotPath:    recoverPath,
			FilePrefix:      *recoverPrefix,
			DisableChecksum: *recoverNoChecksum,
			MaxPayloadSize:  *recoverMaxPayload,
		}
	}
	if err := runRecord(ctx, *walDir, runtime, *orderCount, *orderInterval, snapshotOut, recoverCfg); err != nil {
		log.Fatalf("record failed: %v", err)
	}
}

// runRecord publishes a handful of synthetic orders through a risk.Gate
// backed by an in-memory ledger, recording every WAL event it generates.
// It is a WAL-exercise harness, not a trading path: runTrade is where the
// live strategy/risk/loop stack actually runs.
func runRecord(ctx context.Context, dir string, runtime *runtimeConfig, orderCount int, orderInterval time.Duration, snapshotPath string, recoverCfg *state.RecoverConfig) error {
	if orderCount <= 0 {
		return fmt.Errorf("order-count must be > 0")
	}
	cfg := recorder.DefaultConfig(dir)
	w, err := recorder.NewWriter(cfg)
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}

	queue := bus.NewQueue(1024)
	errCh := make(chan error, 1)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		queue.Run(ctx, func(e bus.Event) {
			if err := w.TryAppend(e.Header, e.Payload); err != nil {
				select {
				case errCh <- err:
				default:
				}
			}
		})
	}()

	seq := uint64(0)
	var lastEventTs int64
	positions := state.NewPositionReducer()
	metrics := obs.NewMetrics()
	traceGen := obs.NewTraceGenerator(0)
	if recoverCfg != nil {
		recovered, err := state.RecoverPositions(ctx, *recoverCfg)
		if err != nil {
			return err
		}
		positions = recovered.Positions
		seq = recovered.LastSeq
		lastEventTs = recovered.LastEventTs
		log.Printf("recovered positions=%d last_seq=%d", positions.Count(), seq)
	}

	now := time.Now().UTC().UnixNano()
	traceID := traceGen.Next()
	if err := publishEvent(queue, schema.EventStrategyDecision, &seq, now, []byte("dummy event"), traceID, &lastEventTs, metrics); err != nil {
		return err
	}

	led := ledger.New()
	var orderCounter uint64

	for i := 0; i < orderCount; i++ {
		loaded := runtime.Load()
		gate := risk.NewGate(loaded.Risk, led)
		if loaded.Features.EnableOrderFlow {
			orderID := loaded.Order.OrderID + orderCounter
			orderCounter++
			if err := publishOrderFlow(queue, gate, led, positions, loaded, orderID, &seq, &lastEventTs, traceGen, metrics); err != nil {
				return err
			}
		}
		if orderInterval > 0 && i < orderCount-1 {
			time.Sleep(orderInterval)
		}
	}

	queue.Close()
	wg.Wait()

	var appendErr error
	select {
	case appendErr = <-errCh:
	default:
	}

	if err := w.Close(); err != nil {
		return err
	}
	if appendErr != nil {
		return appendErr
	}
	if snapshotPath != "" {
		snapshot := positions.SnapshotWithMeta(seq, lastEventTs)
		if err := state.WriteSnapshot(snapshotPath, snapshot); err != nil {
			return err
		}
	}
	snapshot := metrics.Snapshot()
	log.Printf("metrics: events=%v risk_reasons=%v drops=%d closed=%d order_flow=%+v risk_eval=%+v event_latency=%+v",
		snapshot.EventCounts, snapshot.RiskReasonCounts, snapshot.QueueDrops, snapshot.QueueClosed,
		snapshot.OrderFlowLatency, snapshot.RiskEvalLatency, snapshot.EventLatency)
	return nil
}

// runTrade wires the strategy-driven core (C1-C10) and runs the event
// loop until ctx is cancelled (Ctrl-C or a fatal adapter error), then
// logs a final metrics snapshot. This is the §6 "normal operation" path;
// runRecord/runReplay remain for WAL-based exercises that don't need a
// live strategy.
func runTrade(ctx context.Context, loaded ops.Loaded, persistDSN string, persistInterval time.Duration) error {
	if len(loaded.Venues) == 0 {
		return fmt.Errorf("trade mode requires at least one configured venue")
	}

	led := ledger.New()
	gate := risk.NewGate(loaded.Risk, led)
	manager := oms.New()
	limiter := ratelimit.New()
	monitor := obs.NewMetrics()

	if persistDSN != "" {
		client, err := conn.New(conn.Option{ConnString: persistDSN})
		if err != nil {
			return fmt.Errorf("persist: connect: %w", err)
		}
		sink, err := persist.NewSink(client)
		if err != nil {
			return fmt.Errorf("persist: migrate: %w", err)
		}
		defer sink.Close()

		venues := make([]quant.VenueID, 0, len(loaded.Venues))
		for _, rv := range loaded.Venues {
			venues = append(venues, rv.ID)
		}
		symbols := make([]quant.Symbol, 0, len(loaded.AssetPairs))
		for sym := range loaded.AssetPairs {
			symbols = append(symbols, sym)
		}
		keys := persist.AssetPairKeys(venues, symbols)
		go persist.RunPeriodic(ctx, sink, led, keys, persistInterval, func(err error) {
			log.Printf("persist: snapshot failed: %v", err)
		})
	}

	adapters := make(map[quant.VenueID]venue.Adapter, len(loaded.Venues))
	for _, rv := range loaded.Venues {
		adapter, err := dialVenue(ctx, rv)
		if err != nil {
			return fmt.Errorf("venue %s: %w", rv.Name, err)
		}
		adapters[rv.ID] = adapter

		now := time.Now()
		rps, burst := 20.0, 20.0
		limiter.Configure(rv.ID, rps, burst, now)

		balances, err := adapter.Balances(ctx)
		if err != nil {
			log.Printf("trade: balances query failed venue=%s: %v", rv.Name, err)
			continue
		}
		for _, bal := range balances {
			led.SetBalance(ledger.AssetKey{Asset: bal.Name, Venue: rv.ID}, bal.Total)
		}
	}
	for _, rl := range loaded.RateLimits {
		limiter.Configure(rl.Venue, rl.RequestsPerSec, rl.Burst, time.Now())
	}

	var strategies []strategy.Strategy
	for _, mm := range loaded.Strategies.MarketMaking {
		strategies = append(strategies, strategy.NewMarketMaking(mm))
	}
	for _, arb := range loaded.Strategies.Arbitrage {
		strategies = append(strategies, strategy.NewArbitrage(arb))
	}
	if len(strategies) == 0 {
		return fmt.Errorf("trade mode requires at least one configured strategy")
	}

	assets := make(map[quant.Symbol]loop.AssetPair, len(loaded.AssetPairs))
	for sym, pair := range loaded.AssetPairs {
		assets[sym] = loop.AssetPair{Base: pair.Base, Quote: pair.Quote}
	}

	l := loop.New(market.New(), strategies, led, gate, manager, limiter, adapters, assets, monitor)

	runErr := l.Run(ctx)
	snap := monitor.Snapshot()
	local := l.MetricsSnapshot()
	log.Printf("trade stopped: market_events=%d exec_reports=%d approved=%d rejected=%d fills=%d unknown=%d crossed_book=%d stale_deltas=%d cancels=%d tick_to_trade=%+v",
		local.MarketEventsProcessed, local.ExecutionReports, local.SignalsApproved, local.SignalsRejected,
		snap.Fills, snap.UnknownReports, snap.CrossedBookEvents, snap.StaleDeltas, snap.Cancels, snap.TickToTrade)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

// dialVenue builds the adapter for one configured venue: a real
// WebSocket transport when a URL is configured, otherwise the in-memory
// simulator for paper trading.
func dialVenue(ctx context.Context, rv ops.ResolvedVenue) (venue.Adapter, error) {
	if rv.WSURL == "" {
		return sim.New(rv.ID, nil), nil
	}
	scale := rv.Scale
	if scale == 0 {
		scale = 8
	}
	adapter := example.New(rv.ID, rv.WSURL, scale)
	if err := adapter.Connect(ctx, rv.Symbols); err != nil {
		return nil, err
	}
	return adapter, nil
}

// runReplay re-reads a recorded WAL and tallies fills into a
// PositionReducer, optionally checking the result against a recorded
// snapshot. Order intents/acks pass through only as event counts: once
// internal/state.PositionReducer already reconstructs position truth from
// fills alone, a separate order-lifecycle state machine adds nothing this
// harness needs.
func runReplay(ctx context.Context, cfg recorder.PlaybackConfig, snapshotPath string, verifySnapshot bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	queue := bus.NewQueue(1024)
	errCh := make(chan error, 1)
	var wg sync.WaitGroup
	counts := make(map[schema.EventType]int)
	total := 0
	positions := state.NewPositionReducer()

	wg.Add(1)
	go func() {
		defer wg.Done()
		queue.Run(ctx, func(e bus.Event) {
			total++
			counts[e.Header.Type]++
			if err := applyReplayEvent(positions, e); err != nil {
				select {
				case errCh <- err:
				default:
				}
				cancel()
			}
		})
	}()

	pb, err := recorder.NewPlayback(cfg)
	if err != nil {
		return err
	}
	err = pb.Run(ctx, func(header schema.EventHeader, payload []byte) error {
		var copied []byte
		if len(payload) > 0 {
			copied = make([]byte, len(payload))
			copy(copied, payload)
		}
		return queue.TryPublish(bus.Event{Header: header, Payload: copied})
	})

	queue.Close()
	wg.Wait()

	if err != nil {
		return err
	}
	var applyErr error
	select {
	case applyErr = <-errCh:
	default:
	}
	if applyErr != nil {
		return applyErr
	}
	if verifySnapshot {
		if snapshotPath == "" {
			return fmt.Errorf("snapshot path is empty")
		}
		expected, err := state.ReadSnapshot(snapshotPath)
		if err != nil {
			return err
		}
		actual := positions.Snapshot()
		if err := state.CompareSnapshots(expected, actual); err != nil {
			return err
		}
		log.Printf("snapshot verified: positions=%d", len(actual.Positions))
	}
	log.Printf("replay completed: total=%d counts=%v positions=%d", total, counts, positions.Count())
	return nil
}

func loadConfig(path string) (ops.Loaded, error) {
	if path == "" {
		return ops.Default()
	}
	return ops.Load(path)
}

func resolveSnapshotPath(dir string, path string) string {
	if path != "" {
		return path
	}
	return filepath.Join(dir, "positions.json")
}

func watchConfig(ctx context.Context, path string, interval time.Duration, update func(ops.Loaded)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastMod time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			info, err := os.Stat(path)
			if err != nil {
				log.Printf("config stat failed: %v", err)
				continue
			}
			if !info.ModTime().After(lastMod) {
				continue
			}
			loaded, err := ops.Load(path)
			if err != nil {
				log.Printf("config reload failed: %v", err)
				continue
			}
			update(loaded)
			lastMod = info.ModTime()
			log.Printf("config reloaded: %s", path)
		}
	}
}

// publishOrderFlow evaluates one synthetic order against gate and
// publishes the resulting intent/decision/ack/fill events onto queue,
// translating between the WAL schema types and the core/quant types for
// the record-mode harness.
func publishOrderFlow(queue *bus.Queue, gate *risk.Gate, led *ledger.Ledger, positions *state.PositionReducer, loaded ops.Loaded, orderID uint64, seq *uint64, lastEventTs *int64, traceGen *obs.TraceGenerator, metrics *obs.Metrics) error {
	flowStart := time.Now()
	spec := loaded.Order
	traceID := orderID
	if traceGen != nil {
		traceID = traceGen.Next()
	}
	intent := schema.OrderIntent{
		OrderID:     orderID,
		StrategyID:  spec.StrategyID,
		SymbolID:    uint32(spec.SymbolID),
		Side:        spec.Side,
		Type:        spec.Type,
		TimeInForce: spec.TimeInForce,
		Price:       spec.Price,
		Qty:         spec.Qty,
	}

	intentTs := time.Now().UTC().UnixNano()
	intentPayload := codec.EncodeOrderIntent(nil, intent)
	if err := publishEvent(queue, schema.EventOrderIntent, seq, intentTs, intentPayload, traceID, lastEventTs, metrics); err != nil {
		return err
	}

	symbolInfo, ok := loaded.Registry.Symbol(spec.SymbolID)
	if !ok {
		return fmt.Errorf("order references unknown symbol id %d", spec.SymbolID)
	}
	venueInfo, ok := loaded.Registry.Venue(symbolInfo.VenueID)
	if !ok {
		return fmt.Errorf("order references unknown venue id %d", symbolInfo.VenueID)
	}
	assets, ok := loaded.AssetPairs[quant.Symbol(symbolInfo.Name)]
	if !ok {
		return fmt.Errorf("no base/quote asset pair configured for symbol %s", symbolInfo.Name)
	}
	venueID, ok := loaded.VenueIDs[venueInfo.Name]
	if !ok {
		return fmt.Errorf("no venue id resolved for venue %s", venueInfo.Name)
	}

	refPrice := spec.Price
	if refPrice == 0 {
		refPrice = intent.Price
	}

	evalStart := time.Now()
	candidate := risk.Candidate{
		Order: core.NewOrder{
			Symbol:        quant.Symbol(symbolInfo.Name),
			Venue:         venueID,
			Side:          translateSide(intent.Side),
			Type:          translateOrderType(intent.Type),
			TIF:           translateTIF(intent.TimeInForce),
			Price:         quant.Price(intent.Price),
			HasPrice:      intent.Type == schema.OrderTypeLimit,
			Size:          quant.Size(intent.Qty),
			ClientOrderID: quant.ClientOrderID(intent.OrderID),
		},
		BaseAsset:      assets.Base,
		QuoteAsset:     assets.Quote,
		ReferencePrice: quant.Price(refPrice),
		Now:            quant.Timestamp(intentTs),
	}
	verdict := gate.Evaluate(candidate)
	if metrics != nil {
		metrics.ObserveRiskEval(time.Since(evalStart))
		metrics.IncRiskReason(translateRiskReason(verdict.Reason))
	}

	decision := schema.RiskDecision{
		OrderID:       intent.OrderID,
		StrategyID:    intent.StrategyID,
		SymbolID:      intent.SymbolID,
		Action:        schema.RiskActionDeny,
		Reason:        translateRiskReason(verdict.Reason),
		ProposedQty:   intent.Qty,
		ProposedPrice: intent.Price,
		CurrentPos:    positions.Position(intent.SymbolID),
		MaxPos:        schema.Quantity(loaded.Risk.MaxPosition[candidate.Order.Symbol]),
		MaxNotional:   schema.Notional(loaded.Risk.MaxOrderValue[candidate.Order.Symbol]),
	}
	if verdict.Allowed {
		decision.Action = schema.RiskActionAllow
	}
	decisionTs := time.Now().UTC().UnixNano()
	decisionPayload := codec.EncodeRiskDecision(nil, decision)
	if err := publishEvent(queue, schema.EventRiskDecision, seq, decisionTs, decisionPayload, traceID, lastEventTs, metrics); err != nil {
		return err
	}

	ack := schema.OrderAck{
		OrderID:   intent.OrderID,
		SymbolID:  intent.SymbolID,
		Status:    schema.OrderAckStatusAcked,
		Reason:    schema.OrderAckReasonNone,
		Price:     intent.Price,
		Qty:       intent.Qty,
		LeavesQty: intent.Qty,
	}
	if !verdict.Allowed {
		ack.Status = schema.OrderAckStatusRejected
		ack.Reason = schema.OrderAckReasonRiskReject
		ack.LeavesQty = 0
	}
	ackTs := time.Now().UTC().UnixNano()
	ackPayload := codec.EncodeOrderAck(nil, ack)
	if err := publishEvent(queue, schema.EventOrderAck, seq, ackTs, ackPayload, traceID, lastEventTs, metrics); err != nil {
		return err
	}

	if verdict.Allowed && loaded.Features.EnableFills {
		ledgerFill := ledger.Fill{
			Symbol:         candidate.Order.Symbol,
			Venue:          venueID,
			BaseAsset:      assets.Base,
			QuoteAsset:     assets.Quote,
			Side:           candidate.Order.Side,
			Size:           candidate.Order.Size,
			Price:          candidate.Order.Price,
			Reservation:    verdict.Reservation,
			HasReservation: verdict.HasReserve,
		}
		if err := led.ApplyFill(ledgerFill); err != nil {
			return err
		}

		fill := schema.Fill{
			OrderID:  intent.OrderID,
			SymbolID: intent.SymbolID,
			Side:     intent.Side,
			Price:    intent.Price,
			Qty:      intent.Qty,
			Fee:      0,
		}
		positions.ApplyFill(fill)
		fillTs := time.Now().UTC().UnixNano()
		fillPayload := codec.EncodeFill(nil, fill)
		if err := publishEvent(queue, schema.EventFill, seq, fillTs, fillPayload, traceID, lastEventTs, metrics); err != nil {
			return err
		}
	}

	if metrics != nil {
		metrics.ObserveOrderFlow(time.Since(flowStart))
	}
	return nil
}

func translateSide(side schema.OrderSide) core.Side {
	if side == schema.OrderSideSell {
		return core.Sell
	}
	return core.Buy
}

func translateOrderType(t schema.OrderType) core.OrderType {
	if t == schema.OrderTypeMarket {
		return core.Market
	}
	return core.Limit
}

func translateTIF(tif schema.TimeInForce) core.TimeInForce {
	switch tif {
	case schema.TimeInForceIOC:
		return core.IOC
	case schema.TimeInForceFOK:
		return core.FOK
	default:
		return core.GTC
	}
}

// translateRiskReason maps the risk gate's rule-level reason onto the
// WAL's coarser schema.RiskReason enum; a gate rule without a direct wire
// counterpart falls back to the closest-fitting reason code.
func translateRiskReason(reason risk.Reason) schema.RiskReason {
	switch reason {
	case risk.ReasonKillSwitch:
		return schema.RiskReasonKillSwitch
	case risk.ReasonMaxOrderSize:
		return schema.RiskReasonMaxQty
	case risk.ReasonMaxOrderValue:
		return schema.RiskReasonMaxNotional
	case risk.ReasonMaxPosition:
		return schema.RiskReasonPositionLimit
	case risk.ReasonMinBalance:
		return schema.RiskReasonMaxNotional
	case risk.ReasonDailyLoss:
		return schema.RiskReasonMaxNotional
	case risk.ReasonRateOfChange:
		return schema.RiskReasonPriceBand
	default:
		return schema.RiskReasonNone
	}
}

func publishEvent(queue *bus.Queue, eventType schema.EventType, seq *uint64, ts int64, payload []byte, traceID uint64, lastEventTs *int64, metrics *obs.Metrics) error {
	next := nextSeq(seq)
	if lastEventTs != nil {
		*lastEventTs = ts
	}
	header := schema.NewHeader(eventType, 1, next, ts, ts)
	if traceID == 0 {
		traceID = next
	}
	header.TraceID = traceID
	err := queue.TryPublish(bus.Event{Header: header, Payload: payload})
	if metrics != nil {
		if err != nil {
			if errors.Is(err, bus.ErrQueueFull) {
				metrics.IncQueueDrop()
			} else if errors.Is(err, bus.ErrQueueClosed) {
				metrics.IncQueueClosed()
			}
		} else {
			metrics.ObserveEvent(header)
		}
	}
	return err
}

func nextSeq(seq *uint64) uint64 {
	*seq += 1
	return *seq
}

// applyReplayEvent folds EventFill payloads into positions; other event
// types are only counted by the caller, not replayed into any state
// machine.
func applyReplayEvent(positions *state.PositionReducer, e bus.Event) error {
	if e.Header.Type != schema.EventFill {
		return nil
	}
	fill, ok := codec.DecodeFill(e.Payload)
	if !ok {
		return fmt.Errorf("decode fill failed")
	}
	positions.ApplyFill(fill)
	return nil
}
