package broker

import (
	"context"
	"fmt"
	"strings"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"tradesync/internal/alert"
)

// 中文说明：
// Alpaca 适配器：把 SDK 的账户/持仓/订单/期权合约类型在边界处归一化成
// 本地类型。SDK 版本差异（字段指针化等）只在这一层处理。

// AlpacaConfig Alpaca 接入配置
type AlpacaConfig struct {
	APIKey    string
	APISecret string
	BaseURL   string
}

// AlpacaBroker 基于 alpaca-trade-api-go/v3 的 Broker 实现
type AlpacaBroker struct {
	trading *alpaca.Client
	data    *marketdata.Client
}

var _ Broker = (*AlpacaBroker)(nil)

func NewAlpacaBroker(cfg AlpacaConfig) (*AlpacaBroker, error) {
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("alpaca: api key/secret required")
	}
	trading := alpaca.NewClient(alpaca.ClientOpts{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
		BaseURL:   cfg.BaseURL,
	})
	data := marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
	})
	return &AlpacaBroker{trading: trading, data: data}, nil
}

func (b *AlpacaBroker) GetAccount(ctx context.Context) (Account, error) {
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}
	acct, err := b.trading.GetAccount()
	if err != nil {
		return Account{}, fmt.Errorf("alpaca get account: %w", err)
	}
	return Account{
		Cash:        acct.Cash,
		Equity:      acct.PortfolioValue,
		BuyingPower: acct.BuyingPower,
		Currency:    acct.Currency,
	}, nil
}

func (b *AlpacaBroker) ListPositions(ctx context.Context) ([]Position, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := b.trading.GetPositions()
	if err != nil {
		return nil, fmt.Errorf("alpaca list positions: %w", err)
	}
	positions := make([]Position, 0, len(raw))
	for _, p := range raw {
		pos := Position{
			Symbol:        p.Symbol,
			Qty:           p.Qty,
			AvgEntryPrice: p.AvgEntryPrice,
		}
		if p.MarketValue != nil {
			pos.MarketValue = *p.MarketValue
		}
		if p.UnrealizedPL != nil {
			pos.UnrealizedPL = *p.UnrealizedPL
		}
		positions = append(positions, pos)
	}
	return positions, nil
}

func (b *AlpacaBroker) SubmitOrder(ctx context.Context, req OrderRequest) (OrderAck, error) {
	if err := ctx.Err(); err != nil {
		return OrderAck{}, err
	}
	side := alpaca.Buy
	if req.Side == alert.ActionSell {
		side = alpaca.Sell
	}
	orderType := alpaca.Market
	if req.Type == OrderTypeLimit {
		orderType = alpaca.Limit
	}
	qty := req.Qty
	placeReq := alpaca.PlaceOrderRequest{
		Symbol:      req.Symbol,
		Qty:         &qty,
		Side:        side,
		Type:        orderType,
		TimeInForce: alpaca.GTC,
	}
	if req.LimitPrice != nil {
		limit := *req.LimitPrice
		placeReq.LimitPrice = &limit
	}
	order, err := b.trading.PlaceOrder(placeReq)
	if err != nil {
		return OrderAck{}, fmt.Errorf("alpaca place order: %w", err)
	}
	return OrderAck{
		ID:        order.ID,
		Symbol:    order.Symbol,
		Side:      string(order.Side),
		Type:      string(order.Type),
		Status:    order.Status,
		CreatedAt: order.CreatedAt,
	}, nil
}

func (b *AlpacaBroker) ListOptionContracts(ctx context.Context, underlying string) ([]OptionContract, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := b.trading.GetOptionContracts(alpaca.GetOptionContractsRequest{
		UnderlyingSymbols: underlying,
	})
	if err != nil {
		return nil, fmt.Errorf("alpaca list option contracts: %w", err)
	}
	contracts := make([]OptionContract, 0, len(raw))
	for _, c := range raw {
		optType := alert.OptionCall
		if strings.EqualFold(string(c.Type), "put") {
			optType = alert.OptionPut
		}
		contracts = append(contracts, OptionContract{
			Symbol:     c.Symbol,
			Underlying: c.UnderlyingSymbol,
			Strike:     c.StrikePrice,
			Expiration: c.ExpirationDate.String(),
			Type:       optType,
			Tradable:   c.Tradable,
		})
	}
	return contracts, nil
}

func (b *AlpacaBroker) GetLatestQuote(ctx context.Context, symbol string) (Quote, error) {
	if err := ctx.Err(); err != nil {
		return Quote{}, err
	}
	quote, err := b.data.GetLatestQuote(symbol, marketdata.GetLatestQuoteRequest{})
	if err != nil {
		return Quote{}, fmt.Errorf("alpaca latest quote: %w", err)
	}
	return Quote{
		Symbol:    symbol,
		BidPrice:  quote.BidPrice,
		AskPrice:  quote.AskPrice,
		Timestamp: quote.Timestamp,
	}, nil
}
