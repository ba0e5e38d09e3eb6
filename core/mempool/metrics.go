package mempool

import (
	"go.opentelemetry.io/otel"

	"github.com/dominant-strategies/go-quai-l2/metrics_config"
)

var tracer = otel.Tracer("github.com/dominant-strategies/go-quai-l2/core/mempool")

var (
	memPoolMetrics = metrics_config.NewGaugeVec("MemPoolGauges", "Mem-pool gauges")

	pendingAccountsGauge    = memPoolMetrics.WithLabelValues("pending:accounts")
	pendingTxsGauge         = memPoolMetrics.WithLabelValues("pending:txs")
	pendingWithdrawalsGauge = memPoolMetrics.WithLabelValues("pending:withdrawals")

	memBlockTxsGauge         = memPoolMetrics.WithLabelValues("memblock:txs")
	memBlockWithdrawalsGauge = memPoolMetrics.WithLabelValues("memblock:withdrawals")
	memBlockDepositsGauge    = memPoolMetrics.WithLabelValues("memblock:deposits")
	memBlockCyclesGauge      = memPoolMetrics.WithLabelValues("memblock:cycles")

	validTxMeter           = memPoolMetrics.WithLabelValues("tx:valid")
	invalidTxMeter         = memPoolMetrics.WithLabelValues("tx:invalid")
	validWithdrawalMeter   = memPoolMetrics.WithLabelValues("withdrawal:valid")
	invalidWithdrawalMeter = memPoolMetrics.WithLabelValues("withdrawal:invalid")

	reinjectedTxMeter         = memPoolMetrics.WithLabelValues("reinject:txs")
	reinjectedWithdrawalMeter = memPoolMetrics.WithLabelValues("reinject:withdrawals")
	reorgDepthGauge           = memPoolMetrics.WithLabelValues("reorg:depth")

	reorgTooDeepCounter = metrics_config.NewCounter("MemPoolDeepReorgs", "Reorgs whose backlog was dropped")
	resetHistogram      = metrics_config.NewHistogram("MemPoolReset", "Mem-pool reset duration in seconds")
)
