package broker

import "context"

// Broker 券商能力接口。具体 SDK 在适配器内归一化成本地类型，
// 调用方不感知底层实现（进程启动时注入一次，不用全局单例）。
type Broker interface {
	GetAccount(ctx context.Context) (Account, error)
	ListPositions(ctx context.Context) ([]Position, error)
	SubmitOrder(ctx context.Context, req OrderRequest) (OrderAck, error)
	ListOptionContracts(ctx context.Context, underlying string) ([]OptionContract, error)
	GetLatestQuote(ctx context.Context, symbol string) (Quote, error)
}
