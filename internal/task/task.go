package task

import (
	"settlement-service/internal/biz"

	"github.com/google/wire"
)

// ProviderSet is task providers.
var ProviderSet = wire.NewSet(
	NewRunner,
	NewJobs,
	NewScheduler,
	wire.Bind(new(DetailExtractor), new(*biz.DetailUseCase)),
	wire.Bind(new(DailyAggregator), new(*biz.DailyUseCase)),
	wire.Bind(new(WeeklyAggregator), new(*biz.WeeklyUseCase)),
	wire.Bind(new(MonthlyAggregator), new(*biz.MonthlyUseCase)),
)
