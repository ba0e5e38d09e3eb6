// Package mempool stages layer 2 transactions and withdrawals ahead of
// block production. It keeps a candidate next block, the mem block, that is
// executed against the state of the chain tip and rebuilt whenever the tip
// changes.
package mempool

import (
	"context"
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/dominant-strategies/go-quai-l2/common"
	"github.com/dominant-strategies/go-quai-l2/config"
	"github.com/dominant-strategies/go-quai-l2/core/generator"
	"github.com/dominant-strategies/go-quai-l2/core/rawdb"
	"github.com/dominant-strategies/go-quai-l2/core/state"
	"github.com/dominant-strategies/go-quai-l2/core/types"
	"github.com/dominant-strategies/go-quai-l2/ethdb"
	"github.com/dominant-strategies/go-quai-l2/log"
)

var unrestricted = config.NewDynamicConfig(&config.DynamicConfigFile{})

// Shared is a published generation of the pool. It holds private copies
// of the writer's state and mem block and only hands out read access, so it
// never changes after publication.
type Shared struct {
	tipHash  common.Hash
	tip      types.RawL2Block
	state    state.Reader
	memBlock *MemBlockView
}

func (s *Shared) TipHash() common.Hash { return s.tipHash }

// TipHeader returns a copy of the header the mem block builds on.
func (s *Shared) TipHeader() types.RawL2Block {
	header := s.tip
	header.StateCheckpoints = slices.Clone(s.tip.StateCheckpoints)
	return header
}

func (s *Shared) State() state.Reader { return s.state }

func (s *Shared) MemBlock() *MemBlockView { return s.memBlock }

// generation is the working set of the writer. Resets build a new one off
// to the side and swap it in when done.
type generation struct {
	tip      *types.L2Block
	state    State
	memBlock *MemBlock
	pending  *PendingQueue
	cycles   *generator.CyclesPool
	deposits []*types.DepositInfo
}

// MemPool admits transactions and withdrawals and keeps the mem block.
//
// One writer at a time pushes items or resets the pool; readers use State,
// which never blocks.
type MemPool struct {
	config         Config
	store          ChainStore
	db             ethdb.Database
	generator      ExecutionEngine
	provider       Provider
	accountCreator *generator.AccountCreator
	syncPublisher  SyncPublisher
	dynamicConfig  *config.DynamicConfigManager
	reorg          *ReorgResolver
	restore        *RestoreManager
	logger         *log.Logger

	resetMu sync.Mutex // serializes tip changes, held while inputs are collected
	mu      sync.Mutex // guards the fields below
	gen     *generation

	// pendingRestoredTxHashes are saved transactions waiting to be replayed.
	pendingRestoredTxHashes []common.Hash

	shared atomic.Pointer[Shared]
}

// New creates a pool on top of the tip of the chain store, recovering the
// mem block saved by a previous run.
func New(ctx context.Context, cfg Config, backend Backend) (*MemPool, error) {
	logger := backend.Logger
	if logger == nil {
		logger = log.Global
	}
	cfg = (&cfg).sanitize(logger)
	restoreDB := backend.RestoreDB
	if restoreDB == nil {
		restoreDB = backend.Store.Database()
	}
	p := &MemPool{
		config:         cfg,
		store:          backend.Store,
		db:             backend.Store.Database(),
		generator:      backend.Generator,
		provider:       backend.Provider,
		accountCreator: backend.AccountCreator,
		syncPublisher:  backend.SyncPublisher,
		dynamicConfig:  backend.DynamicConfig,
		reorg:          NewReorgResolver(backend.Store, logger),
		restore:        NewRestoreManager(restoreDB, cfg.RestoreMaxAge, logger),
		logger:         logger,
	}

	tip := p.store.GetTipBlock()
	if tip == nil {
		return nil, errors.New("chain store has no tip block")
	}
	st, err := p.store.StateAt(tip.Hash())
	if err != nil {
		return nil, errors.Wrap(err, "load tip state")
	}
	memBlock := NewMemBlock(types.BlockInfo{
		BlockProducer: cfg.BlockProducer,
		Number:        tip.NumberU64() + 1,
		Timestamp:     tip.Timestamp(),
	}, tip.Raw.PostAccount)
	memBlock.SetFinalizedCustodian(p.collectFinalizedCustodianCapacity(tip))
	p.gen = &generation{
		tip:      tip,
		state:    st,
		memBlock: memBlock,
		pending:  NewPendingQueue(),
		cycles:   generator.NewCyclesPool(cfg.MaxCyclesLimit, cfg.SyscallCycles),
	}

	restored, err := p.restore.Latest()
	if err != nil {
		logger.WithField("err", err).Error("Ignoring unreadable saved mem block")
	}
	if restored != nil {
		memBlock.ForceReinjectWithdrawalHashes(restored.Withdrawals)
		memBlock.AppendNewAddresses(restored.NewAddresses)
		p.pendingRestoredTxHashes = restored.Txs
		p.gen.deposits = restored.Deposits
	}
	p.restorePendingWithdrawals()
	p.removeReinjectedFailedTxs()

	if cfg.NodeMode == ReadOnlyNode {
		p.resetReadOnly(tip)
	} else {
		if err := p.reset(ctx, nil, tip); err != nil {
			return nil, err
		}
		p.reinjectRestoredTransactions()
	}
	p.restore.Prune(time.Now())

	logger.WithFields(log.Fields{
		"tip":    tip.Hash(),
		"number": tip.NumberU64(),
		"mode":   cfg.NodeMode,
	}).Info("Mem-pool started")
	return p, nil
}

// Close saves the mem block for the next run.
func (p *MemPool) Close() error {
	p.resetMu.Lock()
	defer p.resetMu.Unlock()
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.save(p.gen); err != nil {
		return err
	}
	p.restore.Prune(time.Now())
	p.logger.Info("Mem-pool stopped")
	return nil
}

// State returns the last published generation.
func (p *MemPool) State() *Shared {
	return p.shared.Load()
}

// CurrentTip returns the hash of the block the mem block builds on.
func (p *MemPool) CurrentTip() common.Hash {
	return p.shared.Load().tipHash
}

// PendingRestoredTxHashes returns the saved transactions not replayed yet.
func (p *MemPool) PendingRestoredTxHashes() []common.Hash {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.pendingRestoredTxHashes)
}

// IsMemTxsFull reports whether expect more transactions would overflow the
// mem block.
func (p *MemPool) IsMemTxsFull(expect int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.gen.memBlock.Txs())+expect > p.config.MaxTxs
}

// GetTransaction returns an admitted transaction.
func (p *MemPool) GetTransaction(hash common.Hash) *types.L2Transaction {
	return rawdb.ReadMemPoolTransaction(p.db, hash)
}

// GetTransactionReceipt returns the receipt of an admitted transaction.
func (p *MemPool) GetTransactionReceipt(hash common.Hash) *types.TxReceipt {
	return rawdb.ReadMemPoolTransactionReceipt(p.db, hash)
}

// GetWithdrawal returns an admitted withdrawal.
func (p *MemPool) GetWithdrawal(hash common.Hash) *types.WithdrawalRequestExtra {
	return rawdb.ReadMemPoolWithdrawal(p.db, hash)
}

// OutputMemBlock packages the published mem block for submission after
// retry failed attempts.
func (p *MemPool) OutputMemBlock(retry uint) (*MemBlock, types.AccountMerkleState) {
	return p.shared.Load().memBlock.Package(retry)
}

// PushTransaction executes tx on top of the mem block and admits it. A
// rejected transaction leaves the pool unchanged.
func (p *MemPool) PushTransaction(ctx context.Context, tx *types.L2Transaction) error {
	hash := tx.Hash()
	_, span := tracer.Start(ctx, "MemPool.PushTransaction", trace.WithAttributes(attribute.String("tx", hash.Hex())))
	defer span.End()

	p.mu.Lock()
	defer p.mu.Unlock()

	batch := p.db.NewBatch()
	if err := p.pushTransaction(p.gen, batch, tx); err != nil {
		invalidTxMeter.Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, ClassOf(err).String())
		p.logger.WithFields(log.Fields{
			"tx":    hash,
			"class": ClassOf(err),
			"err":   err,
		}).Debug("Rejected transaction")
		return err
	}
	p.commit(batch)
	validTxMeter.Inc()
	p.publish(p.gen)
	if err := p.save(p.gen); err != nil {
		p.logger.WithField("err", err).Error("Failed to save mem block")
	}
	return nil
}

// PushWithdrawalRequest verifies w and adds it to the backlog. It is
// applied to the state when the next mem block is built.
func (p *MemPool) PushWithdrawalRequest(ctx context.Context, w *types.WithdrawalRequestExtra) error {
	hash := w.Hash()
	_, span := tracer.Start(ctx, "MemPool.PushWithdrawalRequest", trace.WithAttributes(attribute.String("withdrawal", hash.Hex())))
	defer span.End()

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.pushWithdrawalRequest(p.gen, w); err != nil {
		invalidWithdrawalMeter.Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, ClassOf(err).String())
		p.logger.WithFields(log.Fields{
			"withdrawal": hash,
			"class":      ClassOf(err),
			"err":        err,
		}).Debug("Rejected withdrawal")
		return err
	}
	validWithdrawalMeter.Inc()
	p.updateMetrics(p.gen)
	return nil
}

// NotifyNewTip rebuilds the mem block on top of the block hash.
func (p *MemPool) NotifyNewTip(ctx context.Context, hash common.Hash) error {
	p.resetMu.Lock()
	defer p.resetMu.Unlock()

	oldTip := p.tip()
	if oldTip.Hash() == hash {
		return nil
	}
	newTip := p.store.GetBlock(hash)
	if newTip == nil {
		invariant(errors.Wrapf(ErrStorageInvariant, "new tip %s not found", hash.TerminalString()))
	}
	if p.config.NodeMode == ReadOnlyNode {
		p.resetReadOnly(newTip)
		return nil
	}
	return p.reset(ctx, oldTip, newTip)
}

// ResetMemBlock rebuilds the mem block on the current tip, picking up new
// deposits and pending withdrawals.
func (p *MemPool) ResetMemBlock(ctx context.Context) error {
	p.resetMu.Lock()
	defer p.resetMu.Unlock()

	tip := p.tip()
	if p.config.NodeMode == ReadOnlyNode {
		p.resetReadOnly(tip)
		return nil
	}
	return p.reset(ctx, tip, tip)
}

// RefreshMemBlock rebuilds the mem block of a read-only node from the next
// mem block announced by a full node. Announcements for past blocks are
// ignored.
func (p *MemPool) RefreshMemBlock(ctx context.Context, next *types.NextMemBlock) error {
	_, span := tracer.Start(ctx, "MemPool.RefreshMemBlock")
	defer span.End()

	p.resetMu.Lock()
	defer p.resetMu.Unlock()
	p.mu.Lock()
	defer p.mu.Unlock()

	tip := p.gen.tip
	number := next.BlockInfo.Number
	if number <= tip.NumberU64() {
		p.logger.WithFields(log.Fields{
			"next": number,
			"tip":  tip.NumberU64(),
		}).Debug("Ignoring announcement of a past mem block")
		return nil
	}
	if number != tip.NumberU64()+1 {
		return errors.Wrapf(ErrNotSynced, "next %d, tip %d", number, tip.NumberU64())
	}

	txs := p.loadTxs(p.gen.memBlock.Txs())
	st := p.stateAt(tip)
	pending := p.gen.pending.Clone()
	pending.ClearTransactions()
	batch := p.db.NewBatch()
	p.removeUnexecutables(st, pending, batch)

	gen := &generation{
		tip:      tip,
		state:    st,
		memBlock: NewMemBlock(next.BlockInfo, tip.Raw.PostAccount),
		pending:  pending,
		cycles:   generator.NewCyclesPool(math.MaxUint64, p.config.SyscallCycles),
		deposits: next.Deposits,
	}
	withdrawals := p.tryPackageMoreWithdrawals(st, pending, next.Withdrawals)
	p.prepareNextMemBlock(gen, batch, withdrawals, txs)
	p.rearmCycles(gen)

	p.commit(batch)
	p.gen = gen
	p.publish(gen)
	if err := p.save(gen); err != nil {
		p.logger.WithField("err", err).Error("Failed to save mem block")
	}
	return nil
}

func (p *MemPool) tip() *types.L2Block {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gen.tip
}

// reset rebuilds the mem block on newTip. A nil oldTip means the pool is
// recovering and the reorg walk and deposit refresh are skipped. The
// previous generation stays published if reset fails.
func (p *MemPool) reset(ctx context.Context, oldTip, newTip *types.L2Block) error {
	ctx, span := tracer.Start(ctx, "MemPool.reset", trace.WithAttributes(
		attribute.Int64("number", int64(newTip.NumberU64())),
	))
	defer span.End()
	start := time.Now()
	recovering := oldTip == nil

	plan := new(ReorgPlan)
	if !recovering && oldTip.Hash() != newTip.Hash() && oldTip.Hash() != newTip.ParentHash() {
		var err error
		if plan, err = p.reorg.Plan(oldTip, newTip); err != nil {
			invariant(err)
		}
		reorgDepthGauge.Set(float64(plan.Depth))
	}

	// Base chain inputs are collected before taking the writer lock.
	var (
		deposits  []*types.DepositInfo
		timestamp uint64
	)
	g, gctx := errgroup.WithContext(ctx)
	if !recovering {
		g.Go(func() error {
			var err error
			deposits, err = p.collectDeposits(gctx)
			return err
		})
	}
	g.Go(func() error {
		timestamp = p.estimateTimestamp(gctx, newTip)
		return nil
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "collect inputs")
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if recovering {
		deposits = p.gen.deposits
	}

	next, prev := p.gen.memBlock.Reset(newTip, timestamp)
	next.AppendNewAddresses(prev.NewAddresses)
	st := p.stateAt(newTip)
	pending := p.gen.pending.Clone()
	pending.ClearTransactions()
	batch := p.db.NewBatch()
	p.removeUnexecutables(st, pending, batch)

	// Content of dropped blocks is older than the content of the old mem
	// block, so it goes first.
	txs := p.reinjectTxs(plan.Txs, prev.Txs)
	withdrawals := plan.Withdrawals
	if recovering {
		withdrawals = append(withdrawals, p.loadWithdrawals(prev.Withdrawals)...)
	} else {
		withdrawals = p.tryPackageMoreWithdrawals(st, pending, withdrawals)
	}

	gen := &generation{
		tip:      newTip,
		state:    st,
		memBlock: next,
		pending:  pending,
		cycles:   generator.NewCyclesPool(math.MaxUint64, p.config.SyscallCycles),
		deposits: deposits,
	}
	p.prepareNextMemBlock(gen, batch, withdrawals, txs)
	p.createNewAccounts(gen, batch)
	p.rearmCycles(gen)

	p.commit(batch)
	p.gen = gen
	p.publish(gen)
	if err := p.save(gen); err != nil {
		p.logger.WithField("err", err).Error("Failed to save mem block")
	}
	resetHistogram.Observe(time.Since(start).Seconds())

	p.logger.WithFields(log.Fields{
		"number":      next.Info().Number,
		"tip":         newTip.Hash(),
		"withdrawals": len(next.Withdrawals()),
		"deposits":    len(next.Deposits()),
		"txs":         len(next.Txs()),
		"reorgDepth":  plan.Depth,
		"elapsed":     common.PrettyDuration(time.Since(start)),
	}).Info("Reset mem block")
	return nil
}

// resetReadOnly follows newTip without replaying anything. Backlog items
// the new state can no longer execute are dropped.
func (p *MemPool) resetReadOnly(newTip *types.L2Block) {
	p.mu.Lock()
	defer p.mu.Unlock()

	memBlock := NewMemBlock(types.BlockInfo{
		BlockProducer: p.config.BlockProducer,
		Number:        newTip.NumberU64() + 1,
	}, newTip.Raw.PostAccount)
	memBlock.SetFinalizedCustodian(p.collectFinalizedCustodianCapacity(newTip))
	st := p.stateAt(newTip)
	pending := p.gen.pending.Clone()
	batch := p.db.NewBatch()
	p.removeUnexecutables(st, pending, batch)
	p.commit(batch)

	p.gen = &generation{
		tip:      newTip,
		state:    st,
		memBlock: memBlock,
		pending:  pending,
		cycles:   generator.NewCyclesPool(p.config.MaxCyclesLimit, p.config.SyscallCycles),
	}
	p.publish(p.gen)
}

// prepareNextMemBlock fills the empty mem block of gen: withdrawals, then
// deposits, then the replayed transactions.
func (p *MemPool) prepareNextMemBlock(gen *generation, batch ethdb.Batch, withdrawals []*types.WithdrawalRequestExtra, txs []*types.L2Transaction) {
	st := gen.state
	last := make(map[uint32]uint32)
	replay := make([]*types.L2Transaction, 0, len(txs))
	for _, tx := range txs {
		nonce, err := st.GetNonce(tx.From())
		if err != nil || tx.Nonce() < nonce {
			rawdb.DeleteMemPoolTransaction(batch, tx.Hash())
			continue
		}
		if prev, ok := last[tx.From()]; ok && tx.Nonce() <= prev {
			invariant(errors.Errorf("replayed nonces of account %d out of order: %d after %d", tx.From(), tx.Nonce(), prev))
		}
		last[tx.From()] = tx.Nonce()
		replay = append(replay, tx)
	}

	included := p.finalizeWithdrawals(gen, batch, withdrawals)
	p.finalizeDeposits(gen)

	if p.syncPublisher != nil {
		p.syncPublisher.PublishNextMemBlock(&types.NextMemBlock{
			BlockInfo:   gen.memBlock.Info(),
			Withdrawals: included,
			Deposits:    gen.memBlock.Deposits(),
		})
	}

	for _, tx := range replay {
		if err := p.pushTransaction(gen, batch, tx); err != nil {
			p.logger.WithFields(log.Fields{
				"tx":    tx.Hash(),
				"class": ClassOf(err),
				"err":   err,
			}).Info("Dropping transaction that failed to replay")
			rawdb.DeleteMemPoolTransaction(batch, tx.Hash())
		}
	}
}

// finalizeWithdrawals applies withdrawals to the empty mem block of gen and
// returns the ones included. Withdrawals that fail a check are skipped
// without touching the state.
func (p *MemPool) finalizeWithdrawals(gen *generation, batch ethdb.Batch, withdrawals []*types.WithdrawalRequestExtra) []*types.WithdrawalRequestExtra {
	mb, st := gen.memBlock, gen.state
	if mb.Len() != 0 {
		panic("finalizing withdrawals of a non-empty mem block")
	}
	wg := NewWithdrawalGenerator(p.collectFinalizedCustodianCapacity(gen.tip))
	producer := mb.Info().BlockProducer

	for _, w := range withdrawals {
		if len(mb.Withdrawals()) >= p.config.MaxWithdrawals {
			break
		}
		hash := w.Hash()
		if mb.HasWithdrawal(hash) {
			continue
		}
		logger := p.logger.WithField("withdrawal", hash)
		if err := p.generator.CheckWithdrawalSignature(st, &w.Request); err != nil {
			logger.WithField("err", err).Info("Skipping withdrawal with invalid signature")
			continue
		}
		if err := p.verifyWithdrawal(st, w, true); err != nil {
			logger.WithField("err", err).Info("Skipping unverifiable withdrawal")
			continue
		}
		if err := wg.VerifyRemainingAmount(w.Raw()); err != nil {
			logger.WithField("err", err).Info("Skipping withdrawal without finalized custodian")
			continue
		}

		var (
			post    types.AccountMerkleState
			touched []common.Hash
		)
		err := withSnapshot(st, func() error {
			if err := st.ApplyWithdrawalRequest(producer, w.Raw()); err != nil {
				return err
			}
			if err := wg.IncludeAndVerify(w); err != nil {
				return err
			}
			post, touched = st.CalculateMerkleState(), st.TouchedKeys()
			return nil
		})
		if err != nil {
			logger.WithField("err", err).Info("Skipping withdrawal that failed to apply")
			continue
		}
		mb.PushWithdrawal(hash, post, touched)

		if !gen.pending.Contains(hash) {
			if id, ok := st.GetAccountIDByScriptHash(w.Raw().AccountScriptHash); ok {
				if err := gen.pending.AdmitWithdrawal(id, w, w.Raw().Nonce); err != nil {
					logger.WithField("err", err).Debug("Withdrawal not added to backlog")
				}
			}
			rawdb.WriteMemPoolWithdrawal(batch, w)
		}
	}
	mb.SetFinalizedCustodian(wg.RemainingCapacity())
	return wg.Included()
}

// finalizeDeposits applies the deposits of gen and seals the state the
// transactions build on.
func (p *MemPool) finalizeDeposits(gen *generation) {
	st := gen.state
	for _, d := range gen.deposits {
		var (
			post    types.AccountMerkleState
			touched []common.Hash
		)
		err := withSnapshot(st, func() error {
			if err := st.ApplyDepositRequest(&d.Request); err != nil {
				return err
			}
			post, touched = st.CalculateMerkleState(), st.TouchedKeys()
			return nil
		})
		if err != nil {
			p.logger.WithFields(log.Fields{
				"deposit": d.Hash(),
				"err":     err,
			}).Error("Skipping deposit that failed to apply")
			continue
		}
		gen.memBlock.PushDeposit(d, post, touched)
	}
	gen.memBlock.SetTxsPrevStateCheckpoint(st.CalculateStateCheckpoint())
}

// pushTransaction runs tx on gen and records it in batch.
func (p *MemPool) pushTransaction(gen *generation, batch ethdb.Batch, tx *types.L2Transaction) error {
	hash := tx.Hash()
	if gen.memBlock.HasTx(hash) {
		return classify(ClassValidation, errors.Wrapf(ErrDuplicateTx, "%s", hash.TerminalString()))
	}
	if len(gen.memBlock.Txs()) >= p.config.MaxTxs {
		return classify(ClassResourceExhausted, errors.Wrapf(ErrMemBlockFull, "%d txs", p.config.MaxTxs))
	}
	st := gen.state
	if err := p.verifyTransaction(st, tx); err != nil {
		return classify(ClassValidation, err)
	}
	if err := p.generator.CheckTransactionSignature(st, tx); err != nil {
		return classify(ClassValidation, err)
	}
	sender, err := st.GetScriptHash(tx.From())
	if err != nil {
		return classify(ClassValidation, errors.Wrapf(ErrUnknownAccount, "sender %d", tx.From()))
	}
	dynamic := p.dynamic()
	if generator.IsContractCreation(&tx.Raw) && !dynamic.ContractCreatorAllowed(sender) {
		return classify(ClassValidation, errors.Wrapf(ErrContractCreatorDenied, "%s", sender.TerminalString()))
	}

	info := gen.memBlock.Info()
	var receipt *types.TxReceipt
	err = withSnapshot(st, func() error {
		result, err := p.generator.ExecuteTransaction(st, &info, &tx.Raw, gen.cycles)
		if err != nil {
			return classifyExecution(err)
		}
		for _, l := range result.Logs {
			if l.ServiceFlag == types.LogFlagSudtProxy && !dynamic.SudtProxyCreatorAllowed(sender) {
				return classify(ClassValidation, errors.Wrapf(ErrSudtProxyCreatorDenied, "%s", sender.TerminalString()))
			}
		}
		receipt = types.NewTxReceipt(tx, result, st.CalculateMerkleState())
		return nil
	})
	if err != nil {
		return err
	}

	if p.syncPublisher != nil {
		p.syncPublisher.PublishTransaction(tx)
	}
	if p.accountCreator != nil {
		gen.memBlock.AppendNewAddresses(receipt.NewAddresses())
	}
	gen.memBlock.PushTx(hash, receipt.PostState)
	if err := gen.pending.AdmitTransaction(tx.From(), tx, tx.Nonce()); err != nil {
		p.logger.WithFields(log.Fields{
			"tx":  hash,
			"err": err,
		}).Debug("Transaction not added to backlog")
	}
	rawdb.WriteMemPoolTransaction(batch, tx)
	rawdb.WriteMemPoolTransactionReceipt(batch, receipt)
	return nil
}

// pushWithdrawalRequest verifies w against gen without applying it.
func (p *MemPool) pushWithdrawalRequest(gen *generation, w *types.WithdrawalRequestExtra) error {
	if p.config.NodeMode == ReadOnlyNode {
		return classify(ClassValidation, ErrReadOnlyNode)
	}
	hash := w.Hash()
	if gen.memBlock.HasWithdrawal(hash) || gen.pending.Contains(hash) {
		return classify(ClassValidation, errors.Wrapf(ErrDuplicateWithdrawal, "%s", hash.TerminalString()))
	}
	st := gen.state
	if err := p.generator.CheckWithdrawalSignature(st, &w.Request); err != nil {
		return classify(ClassValidation, err)
	}
	if err := NewWithdrawalGenerator(gen.memBlock.FinalizedCustodian()).VerifyRemainingAmount(w.Raw()); err != nil {
		return classify(ClassValidation, err)
	}
	if err := p.verifyWithdrawal(st, w, false); err != nil {
		return classify(ClassValidation, err)
	}
	id, _ := st.GetAccountIDByScriptHash(w.Raw().AccountScriptHash)
	nonce, err := st.GetNonce(id)
	if err != nil {
		return classify(ClassValidation, errors.Wrapf(ErrUnknownAccount, "account %d", id))
	}
	if err := gen.pending.AdmitWithdrawal(id, w, nonce); err != nil {
		return err
	}
	rawdb.WriteMemPoolWithdrawal(p.db, w)
	return nil
}

// tryPackageMoreWithdrawals returns the re-injected withdrawals that are
// still applicable followed by pending ones, at most MaxWithdrawals.
func (p *MemPool) tryPackageMoreWithdrawals(st State, pending *PendingQueue, reinjected []*types.WithdrawalRequestExtra) []*types.WithdrawalRequestExtra {
	var (
		out  = make([]*types.WithdrawalRequestExtra, 0, p.config.MaxWithdrawals)
		seen = mapset.NewThreadUnsafeSet[common.Hash]()
	)
	for _, w := range reinjected {
		if len(out) >= p.config.MaxWithdrawals {
			break
		}
		id, ok := st.GetAccountIDByScriptHash(w.Raw().AccountScriptHash)
		if !ok {
			continue
		}
		if nonce, err := st.GetNonce(id); err != nil || w.Raw().Nonce < nonce {
			continue
		}
		if seen.Add(w.Hash()) {
			out = append(out, w)
		}
	}
	for _, w := range pending.Withdrawals(p.config.MaxWithdrawals + len(out)) {
		if len(out) >= p.config.MaxWithdrawals {
			break
		}
		if seen.Add(w.Hash()) {
			out = append(out, w)
		}
	}
	reinjectedWithdrawalMeter.Add(float64(len(reinjected)))
	return out
}

// removeUnexecutables prunes the backlog against st and deletes the pruned
// items from the mem-pool tables.
func (p *MemPool) removeUnexecutables(st State, pending *PendingQueue, batch ethdb.Batch) {
	for _, id := range pending.Accounts() {
		var removed []common.Hash
		nonce, errNonce := st.GetNonce(id)
		owner, errOwner := st.GetScriptHash(id)
		if errNonce != nil || errOwner != nil {
			removed = pending.RemoveAccount(id)
		} else {
			removed = pending.RemoveStale(id, nonce, st.GetBalance(state.CKBSudtID, owner))
		}
		for _, h := range removed {
			rawdb.DeleteMemPoolWithdrawal(batch, h)
			rawdb.DeleteMemPoolTransaction(batch, h)
		}
		if len(removed) > 0 {
			p.logger.WithFields(log.Fields{
				"account": id,
				"removed": len(removed),
			}).Debug("Pruned stale backlog")
		}
	}
}

// createNewAccounts registers the addresses that received funds in the mem
// block, one batch per reset.
func (p *MemPool) createNewAccounts(gen *generation, batch ethdb.Batch) {
	if p.accountCreator == nil {
		return
	}
	addrs := gen.memBlock.TakeNewAddresses()
	if len(addrs) == 0 {
		return
	}
	tx, next, err := p.accountCreator.BuildBatchCreateTx(gen.state, addrs)
	if err != nil {
		p.logger.WithField("err", err).Error("Failed to build account creation transaction")
		gen.memBlock.AppendNewAddresses(addrs)
		return
	}
	gen.memBlock.AppendNewAddresses(next)
	if tx == nil {
		return
	}
	if err := p.pushTransaction(gen, batch, tx); err != nil {
		p.logger.WithFields(log.Fields{
			"tx":  tx.Hash(),
			"err": err,
		}).Error("Failed to push account creation transaction")
	}
}

// reinjectTxs resolves the transactions to replay, in order and without
// duplicates.
func (p *MemPool) reinjectTxs(dropped []*types.L2Transaction, memBlockTxs []common.Hash) []*types.L2Transaction {
	var (
		out  = make([]*types.L2Transaction, 0, len(dropped)+len(memBlockTxs))
		seen = mapset.NewThreadUnsafeSet[common.Hash]()
	)
	for _, tx := range dropped {
		if seen.Add(tx.Hash()) {
			out = append(out, tx)
		}
	}
	for _, tx := range p.loadTxs(memBlockTxs) {
		if seen.Add(tx.Hash()) {
			out = append(out, tx)
		}
	}
	reinjectedTxMeter.Add(float64(len(out)))
	return out
}

func (p *MemPool) loadTxs(hashes []common.Hash) []*types.L2Transaction {
	txs := make([]*types.L2Transaction, 0, len(hashes))
	for _, h := range hashes {
		tx := rawdb.ReadMemPoolTransaction(p.db, h)
		if tx == nil {
			p.logger.WithField("tx", h).Warn("Mem block transaction missing from the mem-pool tables")
			continue
		}
		txs = append(txs, tx)
	}
	return txs
}

func (p *MemPool) loadWithdrawals(hashes []common.Hash) []*types.WithdrawalRequestExtra {
	ws := make([]*types.WithdrawalRequestExtra, 0, len(hashes))
	for _, h := range hashes {
		w := rawdb.ReadMemPoolWithdrawal(p.db, h)
		if w == nil {
			w = p.store.GetWithdrawal(h)
		}
		if w == nil {
			p.logger.WithField("withdrawal", h).Warn("Mem block withdrawal missing from the mem-pool tables")
			continue
		}
		ws = append(ws, w)
	}
	return ws
}

// restorePendingWithdrawals re-admits the saved withdrawals that are not in
// the mem block, deleting the ones that no longer verify.
func (p *MemPool) restorePendingWithdrawals() {
	for _, w := range rawdb.ReadMemPoolWithdrawals(p.db) {
		hash := w.Hash()
		if p.gen.memBlock.HasWithdrawal(hash) {
			continue
		}
		if err := p.pushWithdrawalRequest(p.gen, w); err != nil {
			p.logger.WithFields(log.Fields{
				"withdrawal": hash,
				"err":        err,
			}).Info("Dropping saved withdrawal")
			rawdb.DeleteMemPoolWithdrawal(p.db, hash)
		}
	}
}

// removeReinjectedFailedTxs deletes saved transactions that will not be
// replayed.
func (p *MemPool) removeReinjectedFailedTxs() {
	keep := mapset.NewThreadUnsafeSet(p.gen.memBlock.Txs()...)
	keep.Append(p.pendingRestoredTxHashes...)
	batch := p.db.NewBatch()
	removed := 0
	for _, h := range rawdb.ReadMemPoolTransactionHashes(p.db) {
		if !keep.ContainsOne(h) {
			rawdb.DeleteMemPoolTransaction(batch, h)
			removed++
		}
	}
	p.commit(batch)
	if removed > 0 {
		p.logger.WithField("removed", removed).Info("Removed saved transactions that failed to replay")
	}
}

// reinjectRestoredTransactions replays the saved transactions on top of the
// recovered mem block.
func (p *MemPool) reinjectRestoredTransactions() {
	p.mu.Lock()
	defer p.mu.Unlock()

	hashes := p.pendingRestoredTxHashes
	p.pendingRestoredTxHashes = nil
	if len(hashes) == 0 {
		return
	}
	batch := p.db.NewBatch()
	replayed := 0
	for _, tx := range p.loadTxs(hashes) {
		if p.gen.memBlock.HasTx(tx.Hash()) {
			continue
		}
		if err := p.pushTransaction(p.gen, batch, tx); err != nil {
			p.logger.WithFields(log.Fields{
				"tx":  tx.Hash(),
				"err": err,
			}).Info("Dropping saved transaction")
			rawdb.DeleteMemPoolTransaction(batch, tx.Hash())
			continue
		}
		replayed++
	}
	p.commit(batch)
	p.publish(p.gen)
	if err := p.save(p.gen); err != nil {
		p.logger.WithField("err", err).Error("Failed to save mem block")
	}
	p.logger.WithFields(log.Fields{
		"saved":    len(hashes),
		"replayed": replayed,
	}).Info("Replayed saved transactions")
}

// estimateTimestamp returns the timestamp of the next block in
// milliseconds, at least MinBlockInterval after tip.
func (p *MemPool) estimateTimestamp(ctx context.Context, tip *types.L2Block) uint64 {
	earliest := tip.Timestamp() + uint64(p.config.MinBlockInterval.Milliseconds())
	estimate, err := p.provider.EstimateNextBlocktime(ctx)
	if err != nil {
		p.logger.WithField("err", err).Debug("Failed to estimate next block time")
		return earliest
	}
	if estimate <= 0 || uint64(estimate.Milliseconds()) < earliest {
		return earliest
	}
	return uint64(estimate.Milliseconds())
}

func (p *MemPool) rearmCycles(gen *generation) {
	used := gen.cycles.Consumed()
	gen.cycles.Reset(p.config.MaxCyclesLimit, p.config.SyscallCycles)
	gen.cycles.Consume(used)
}

func (p *MemPool) stateAt(block *types.L2Block) State {
	st, err := p.store.StateAt(block.Hash())
	if err != nil {
		invariant(err)
	}
	return st
}

func (p *MemPool) dynamic() *config.DynamicConfig {
	if p.dynamicConfig == nil {
		return unrestricted
	}
	return p.dynamicConfig.Get()
}

// commit writes batch. The mem-pool tables must follow the mem block, so a
// failed write is unrecoverable.
func (p *MemPool) commit(batch ethdb.Batch) {
	if err := batch.Write(); err != nil {
		invariant(errors.Wrap(err, "write mem-pool tables"))
	}
}

func (p *MemPool) save(gen *generation) error {
	return p.restore.Save(gen.memBlock, gen.deposits, p.pendingRestoredTxHashes)
}

// publish makes gen visible to readers.
func (p *MemPool) publish(gen *generation) {
	tip := gen.tip.Raw
	tip.StateCheckpoints = slices.Clone(tip.StateCheckpoints)
	p.shared.Store(&Shared{
		tipHash:  gen.tip.Hash(),
		tip:      tip,
		state:    state.ReadOnly(gen.state.Copy()),
		memBlock: newMemBlockView(gen.memBlock),
	})
	p.updateMetrics(gen)
}

func (p *MemPool) updateMetrics(gen *generation) {
	txs, withdrawals := gen.pending.Stats()
	pendingAccountsGauge.Set(float64(gen.pending.Len()))
	pendingTxsGauge.Set(float64(txs))
	pendingWithdrawalsGauge.Set(float64(withdrawals))
	memBlockTxsGauge.Set(float64(len(gen.memBlock.Txs())))
	memBlockWithdrawalsGauge.Set(float64(len(gen.memBlock.Withdrawals())))
	memBlockDepositsGauge.Set(float64(len(gen.memBlock.Deposits())))
	memBlockCyclesGauge.Set(float64(gen.cycles.Consumed()))
}
