package biz

import "github.com/google/wire"

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(
	NewSettlementConfig,
	NewStatusCache,
	NewDetailUseCase,
	NewDailyUseCase,
	NewWeeklyUseCase,
	NewMonthlyUseCase,
	NewSettlementQueryUseCase,
	NewJobHistoryUseCase,
)
