package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"hftcore/internal/codec"
	"hftcore/internal/core"
	"hftcore/internal/ledger"
	"hftcore/internal/obs"
	"hftcore/internal/ops"
	"hftcore/internal/quant"
	"hftcore/internal/recorder"
	"hftcore/internal/risk"
	"hftcore/internal/schema"
	"hftcore/internal/state"
)

func main() {
	inputDir := flag.String("input-dir", "testdata/wal", "Input WAL directory")
	inputPrefix := flag.String("input-prefix", "", "Input WAL file prefix (default: wal)")
	outputDir := flag.String("output-dir", "testdata/wal_paper", "Output WAL directory")
	outputPrefix := flag.String("output-prefix", "paper", "Output WAL file prefix")
	configPath := flag.String("config", "", "Path to JSON config")
	orderEvery := flag.Int("order-every", 10, "Generate one order every N market data events (0=disable)")
	maxOrders := flag.Int("max-orders", 0, "Maximum orders to generate (0=unlimited)")
	includeMD := flag.Bool("include-md", true, "Pass through market data events to output WAL")
	includeNonMD := flag.Bool("include-non-md", false, "Pass through non-market data events")
	noChecksum := flag.Bool("no-checksum", false, "Disable checksum validation")
	maxPayload := flag.Int("max-payload", 0, "Max payload size in bytes (0=unlimited)")
	flag.Parse()

	if *orderEvery < 0 {
		log.Fatalf("order-every must be >= 0")
	}
	if *maxOrders < 0 {
		log.Fatalf("max-orders must be >= 0")
	}

	loaded, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	symbolInfo, ok := loaded.Registry.Symbol(loaded.Order.SymbolID)
	if !ok {
		log.Fatalf("order references unknown symbol id %d", loaded.Order.SymbolID)
	}
	venueInfo, ok := loaded.Registry.Venue(symbolInfo.VenueID)
	if !ok {
		log.Fatalf("order references unknown venue id %d", symbolInfo.VenueID)
	}
	assets, ok := loaded.AssetPairs[quant.Symbol(symbolInfo.Name)]
	if !ok {
		log.Fatalf("no base/quote asset pair configured for symbol %s", symbolInfo.Name)
	}
	venueID, ok := loaded.VenueIDs[venueInfo.Name]
	if !ok {
		log.Fatalf("no venue id resolved for venue %s", venueInfo.Name)
	}

	playback, err := recorder.NewPlayback(recorder.PlaybackConfig{
		Dir:             *inputDir,
		FilePrefix:      *inputPrefix,
		DisableChecksum: *noChecksum,
		MaxPayloadSize:  *maxPayload,
	})
	if err != nil {
		log.Fatalf("playback init failed: %v", err)
	}

	outCfg := recorder.DefaultConfig(*outputDir)
	outCfg.FilePrefix = *outputPrefix
	outCfg.CopyPayload = true
	writer, err := recorder.NewWriter(outCfg)
	if err != nil {
		log.Fatalf("writer init failed: %v", err)
	}
	ctx := context.Background()
	if err := writer.Start(ctx); err != nil {
		log.Fatalf("writer start failed: %v", err)
	}

	led := ledger.New()
	led.SetBalance(ledger.AssetKey{Asset: assets.Quote, Venue: venueID}, loaded.Risk.MaxOrderValue[quant.Symbol(symbolInfo.Name)]*1000)
	led.SetBalance(ledger.AssetKey{Asset: assets.Base, Venue: venueID}, quant.Notional(loaded.Risk.MaxPosition[quant.Symbol(symbolInfo.Name)])*1000)
	gate := risk.NewGate(loaded.Risk, led)
	positions := state.NewPositionReducer()
	traceGen := obs.NewTraceGenerator(0)

	var seq uint64
	var mdCount int
	var orderCount int
	var refPrice schema.Price

	err = playback.Run(ctx, func(header schema.EventHeader, payload []byte) error {
		if header.Type != schema.EventMarketData {
			if *includeNonMD {
				return appendPassthrough(writer, &seq, header, payload)
			}
			return nil
		}
		mdCount++
		md, ok := codec.DecodeMarketData(payload)
		if !ok {
			return fmt.Errorf("decode market data failed")
		}
		if price := referencePrice(md); price > 0 {
			refPrice = price
		}
		if *includeMD {
			if err := appendPassthrough(writer, &seq, header, payload); err != nil {
				return err
			}
		}
		if !loaded.Features.EnableOrderFlow || *orderEvery == 0 {
			return nil
		}
		if *orderEvery > 0 && mdCount%*orderEvery != 0 {
			return nil
		}
		if *maxOrders > 0 && orderCount >= *maxOrders {
			return nil
		}
		orderID := loaded.Order.OrderID + uint64(orderCount)
		orderCount++
		now := header.TsEvent
		if now == 0 {
			now = header.TsRecv
		}
		if now == 0 {
			now = time.Now().UTC().UnixNano()
		}
		traceID := traceGen.Next()
		if err := publishPaperOrder(writer, gate, led, positions, loaded, venueID, assets, orderID, refPrice, now, traceID, &seq); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		log.Fatalf("playback failed: %v", err)
	}
	if err := writer.Close(); err != nil {
		log.Fatalf("writer close failed: %v", err)
	}

	log.Printf("paper completed: md=%d orders=%d positions=%d", mdCount, orderCount, positions.Count())
}

// publishPaperOrder evaluates one synthetic order against the risk gate
// and, if allowed and Features.EnableFills is set, applies an immediate
// full fill to the ledger, mirroring
// each step to the output WAL as OrderIntent/RiskDecision/OrderAck/Fill
// events. The risk gate and ledger speak core/quant types; the WAL speaks
// schema types, so this function is the seam that translates between the
// two representations.
func publishPaperOrder(writer *recorder.Writer, gate *risk.Gate, led *ledger.Ledger, positions *state.PositionReducer, loaded ops.Loaded, venueID quant.VenueID, assets ops.AssetPairSpec, orderID uint64, refPrice schema.Price, now int64, traceID uint64, seq *uint64) error {
	spec := loaded.Order
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
	intentPayload := codec.EncodeOrderIntent(nil, intent)
	if err := appendEvent(writer, seq, schema.EventOrderIntent, now, traceID, intentPayload); err != nil {
		return err
	}

	ref := refPrice
	if ref == 0 {
		ref = intent.Price
	}

	symbolInfo, _ := loaded.Registry.Symbol(spec.SymbolID)
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
		ReferencePrice: quant.Price(ref),
		Now:            quant.Timestamp(now),
	}
	verdict := gate.Evaluate(candidate)

	decision := schema.RiskDecision{
		OrderID:       intent.OrderID,
		StrategyID:    intent.StrategyID,
		SymbolID:      intent.SymbolID,
		Action:        schema.RiskActionDeny,
		Reason:        translateRiskReason(verdict.Reason),
		ProposedQty:   intent.Qty,
		ProposedPrice: intent.Price,
		CurrentPos:    schema.Quantity(led.Position(ledger.PositionKey{Symbol: candidate.Order.Symbol, Venue: venueID}).Size),
		MaxPos:        schema.Quantity(loaded.Risk.MaxPosition[candidate.Order.Symbol]),
		MaxNotional:   schema.Notional(loaded.Risk.MaxOrderValue[candidate.Order.Symbol]),
	}
	if verdict.Allowed {
		decision.Action = schema.RiskActionAllow
	}
	decisionPayload := codec.EncodeRiskDecision(nil, decision)
	if err := appendEvent(writer, seq, schema.EventRiskDecision, now, traceID, decisionPayload); err != nil {
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
	ackPayload := codec.EncodeOrderAck(nil, ack)
	if err := appendEvent(writer, seq, schema.EventOrderAck, now, traceID, ackPayload); err != nil {
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
		fillPayload := codec.EncodeFill(nil, fill)
		if err := appendEvent(writer, seq, schema.EventFill, now, traceID, fillPayload); err != nil {
			return err
		}
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

func appendEvent(writer *recorder.Writer, seq *uint64, eventType schema.EventType, ts int64, traceID uint64, payload []byte) error {
	header := schema.NewHeader(eventType, 1, nextSeq(seq), ts, ts)
	if traceID == 0 {
		traceID = header.Seq
	}
	header.TraceID = traceID
	return writer.TryAppend(header, payload)
}

func appendPassthrough(writer *recorder.Writer, seq *uint64, header schema.EventHeader, payload []byte) error {
	header.Seq = nextSeq(seq)
	if header.Version == 0 {
		header.Version = schema.SchemaVersion
	}
	if header.TraceID == 0 {
		header.TraceID = header.Seq
	}
	return writer.TryAppend(header, payload)
}

func nextSeq(seq *uint64) uint64 {
	*seq += 1
	return *seq
}

func referencePrice(md schema.MarketData) schema.Price {
	if md.Kind == schema.MarketDataTrade && md.Price > 0 {
		return md.Price
	}
	if md.BidPrice > 0 && md.AskPrice > 0 {
		return schema.Price((int64(md.BidPrice) + int64(md.AskPrice)) / 2)
	}
	if md.BidPrice > 0 {
		return md.BidPrice
	}
	if md.AskPrice > 0 {
		return md.AskPrice
	}
	return md.Price
}

func loadConfig(path string) (ops.Loaded, error) {
	if path == "" {
		return ops.Default()
	}
	return ops.Load(path)
}
