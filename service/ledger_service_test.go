package service

import (
	"context"
	"sync"
	"testing"

	"huay/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLedgerService_Apply_Add(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockAccountRepo := new(MockAccountRepository)
	mockCreditRepo := new(MockCreditTransactionRepository)
	mockUoW.SetRepositories(mockAccountRepo, nil, nil, mockCreditRepo)

	ledger := NewLedgerService(mockFactory, 0)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockAccountRepo.On("GetByID", ctx, int64(1)).Return(&models.Account{ID: 1, Credit: 1000}, nil)
	mockAccountRepo.On("UpdateCreditIf", ctx, int64(1), int64(1000), int64(1500)).Return(true, nil)

	mockCreditRepo.On("Record", ctx, mock.MatchedBy(func(txn *models.CreditTransaction) bool {
		return txn.AccountID == 1 &&
			txn.Action == models.CreditActionAdd &&
			txn.Amount == 500 &&
			txn.CreditBefore == 1000 &&
			txn.CreditAfter == 1500 &&
			txn.Reference != "" &&
			txn.Validate() == nil
	})).Return(nil)

	txn, err := ledger.Apply(ctx, 1, models.CreditActionAdd, 500, map[string]any{"reason": "test"})

	require.NoError(t, err)
	require.NotNil(t, txn)
	assert.Equal(t, int64(1000), txn.CreditBefore)
	assert.Equal(t, int64(1500), txn.CreditAfter)

	mockFactory.AssertExpectations(t)
	mockUoW.AssertExpectations(t)
	mockAccountRepo.AssertExpectations(t)
	mockCreditRepo.AssertExpectations(t)
}

func TestLedgerService_Apply_DeductInsufficient(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockAccountRepo := new(MockAccountRepository)
	mockCreditRepo := new(MockCreditTransactionRepository)
	mockUoW.SetRepositories(mockAccountRepo, nil, nil, mockCreditRepo)

	ledger := NewLedgerService(mockFactory, 0)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockAccountRepo.On("GetByID", ctx, int64(1)).Return(&models.Account{ID: 1, Credit: 100}, nil)

	txn, err := ledger.Apply(ctx, 1, models.CreditActionDeduct, 500, nil)

	assert.Nil(t, txn)
	assert.ErrorIs(t, err, ErrInsufficientCredit)

	// The credit must be left untouched and no transaction appended.
	mockAccountRepo.AssertNotCalled(t, "UpdateCreditIf", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	mockCreditRepo.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	mockUoW.AssertNotCalled(t, "Commit")
}

func TestLedgerService_Apply_NonPositiveAmount(t *testing.T) {
	ctx := context.Background()

	mockFactory := new(MockUnitOfWorkFactory)
	ledger := NewLedgerService(mockFactory, 0)

	for _, amount := range []int64{0, -25} {
		txn, err := ledger.Apply(ctx, 1, models.CreditActionAdd, amount, nil)
		assert.Nil(t, txn)
		assert.Error(t, err)
	}

	mockFactory.AssertNotCalled(t, "Create")
}

func TestLedgerService_Apply_RetryThenSuccess(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockAccountRepo := new(MockAccountRepository)
	mockCreditRepo := new(MockCreditTransactionRepository)
	mockUoW.SetRepositories(mockAccountRepo, nil, nil, mockCreditRepo)

	ledger := NewLedgerService(mockFactory, 3)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	// First read sees 1000 but loses the swap; second read sees 1200 and wins.
	mockAccountRepo.On("GetByID", ctx, int64(1)).Return(&models.Account{ID: 1, Credit: 1000}, nil).Once()
	mockAccountRepo.On("UpdateCreditIf", ctx, int64(1), int64(1000), int64(1100)).Return(false, nil).Once()
	mockAccountRepo.On("GetByID", ctx, int64(1)).Return(&models.Account{ID: 1, Credit: 1200}, nil).Once()
	mockAccountRepo.On("UpdateCreditIf", ctx, int64(1), int64(1200), int64(1300)).Return(true, nil).Once()

	mockCreditRepo.On("Record", ctx, mock.MatchedBy(func(txn *models.CreditTransaction) bool {
		return txn.CreditBefore == 1200 && txn.CreditAfter == 1300
	})).Return(nil)

	txn, err := ledger.Apply(ctx, 1, models.CreditActionAdd, 100, nil)

	require.NoError(t, err)
	assert.Equal(t, int64(1300), txn.CreditAfter)
	mockAccountRepo.AssertExpectations(t)
}

func TestLedgerService_Apply_ConflictExhaustsRetries(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockAccountRepo := new(MockAccountRepository)
	mockCreditRepo := new(MockCreditTransactionRepository)
	mockUoW.SetRepositories(mockAccountRepo, nil, nil, mockCreditRepo)

	ledger := NewLedgerService(mockFactory, 3)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockAccountRepo.On("GetByID", ctx, int64(1)).Return(&models.Account{ID: 1, Credit: 1000}, nil)
	mockAccountRepo.On("UpdateCreditIf", ctx, int64(1), int64(1000), int64(1100)).Return(false, nil)

	txn, err := ledger.Apply(ctx, 1, models.CreditActionAdd, 100, nil)

	assert.Nil(t, txn)
	assert.ErrorIs(t, err, ErrConcurrencyConflict)
	mockAccountRepo.AssertNumberOfCalls(t, "GetByID", 3)
	mockCreditRepo.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
}

func TestLedgerService_Apply_AccountMissing(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockAccountRepo := new(MockAccountRepository)
	mockUoW.SetRepositories(mockAccountRepo, nil, nil, new(MockCreditTransactionRepository))

	ledger := NewLedgerService(mockFactory, 0)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockAccountRepo.On("GetByID", ctx, int64(9)).Return(nil, nil)

	_, err := ledger.Apply(ctx, 9, models.CreditActionAdd, 100, nil)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestLedgerService_VerifyChain(t *testing.T) {
	ctx := context.Background()

	chain := func(txns []*models.CreditTransaction, credit int64) (LedgerService, *MockUnitOfWork) {
		mockUoW := new(MockUnitOfWork)
		mockFactory := new(MockUnitOfWorkFactory)
		mockAccountRepo := new(MockAccountRepository)
		mockCreditRepo := new(MockCreditTransactionRepository)
		mockUoW.SetRepositories(mockAccountRepo, nil, nil, mockCreditRepo)

		mockFactory.On("Create").Return(mockUoW)
		mockUoW.On("Begin", ctx).Return(nil)
		mockUoW.On("Rollback").Return(nil)
		mockAccountRepo.On("GetByID", ctx, int64(1)).Return(&models.Account{ID: 1, Credit: credit}, nil)
		mockCreditRepo.On("GetByAccount", ctx, int64(1), 0).Return(txns, nil)

		return NewLedgerService(mockFactory, 0), mockUoW
	}

	consistent := []*models.CreditTransaction{
		{ID: 1, Action: models.CreditActionAdd, Amount: 500, CreditBefore: 1000, CreditAfter: 1500},
		{ID: 2, Action: models.CreditActionDeduct, Amount: 200, CreditBefore: 1500, CreditAfter: 1300},
		{ID: 3, Action: models.CreditActionAdd, Amount: 100, CreditBefore: 1300, CreditAfter: 1400},
	}

	t.Run("consistent chain passes", func(t *testing.T) {
		ledger, _ := chain(consistent, 1400)
		assert.NoError(t, ledger.VerifyChain(ctx, 1))
	})

	t.Run("gap in chain fails", func(t *testing.T) {
		gapped := []*models.CreditTransaction{
			{ID: 1, Action: models.CreditActionAdd, Amount: 500, CreditBefore: 1000, CreditAfter: 1500},
			{ID: 2, Action: models.CreditActionDeduct, Amount: 200, CreditBefore: 1600, CreditAfter: 1400},
		}
		ledger, _ := chain(gapped, 1400)
		err := ledger.VerifyChain(ctx, 1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "chain gap")
	})

	t.Run("cached credit drift fails", func(t *testing.T) {
		ledger, _ := chain(consistent, 9999)
		err := ledger.VerifyChain(ctx, 1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not match cached credit")
	})

	t.Run("empty ledger passes", func(t *testing.T) {
		ledger, _ := chain(nil, 500)
		assert.NoError(t, ledger.VerifyChain(ctx, 1))
	})
}

// fakeLedgerStore is a minimal in-memory UnitOfWork used to exercise the
// apply loop against real compare-and-swap semantics under concurrency.
type fakeLedgerStore struct {
	mu       sync.Mutex
	accounts map[int64]*models.Account
	txns     map[int64][]*models.CreditTransaction
	nextID   int64
}

func newFakeLedgerStore(accounts ...*models.Account) *fakeLedgerStore {
	s := &fakeLedgerStore{
		accounts: make(map[int64]*models.Account),
		txns:     make(map[int64][]*models.CreditTransaction),
	}
	for _, a := range accounts {
		s.accounts[a.ID] = a
	}
	return s
}

func (s *fakeLedgerStore) Create() UnitOfWork { return &fakeLedgerUoW{store: s} }

type fakeLedgerUoW struct{ store *fakeLedgerStore }

func (u *fakeLedgerUoW) Begin(context.Context) error { return nil }
func (u *fakeLedgerUoW) Commit() error               { return nil }
func (u *fakeLedgerUoW) Rollback() error             { return nil }

func (u *fakeLedgerUoW) AccountRepository() AccountRepository { return &fakeAccountRepo{u.store} }
func (u *fakeLedgerUoW) BetRepository() BetRepository         { return nil }
func (u *fakeLedgerUoW) DrawResultRepository() DrawResultRepository {
	return nil
}
func (u *fakeLedgerUoW) CreditTransactionRepository() CreditTransactionRepository {
	return &fakeCreditRepo{u.store}
}
func (u *fakeLedgerUoW) EventBus() EventPublisher { return noopPublisher{} }

type fakeAccountRepo struct{ store *fakeLedgerStore }

func (r *fakeAccountRepo) GetByID(_ context.Context, id int64) (*models.Account, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	a, ok := r.store.accounts[id]
	if !ok {
		return nil, nil
	}
	copied := *a
	return &copied, nil
}

func (r *fakeAccountRepo) Create(_ context.Context, a *models.Account) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.accounts[a.ID] = a
	return nil
}

func (r *fakeAccountRepo) GetAll(context.Context) ([]*models.Account, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var all []*models.Account
	for _, a := range r.store.accounts {
		copied := *a
		all = append(all, &copied)
	}
	return all, nil
}

func (r *fakeAccountRepo) UpdateCreditIf(_ context.Context, id, expected, newCredit int64) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	a, ok := r.store.accounts[id]
	if !ok || a.Credit != expected {
		return false, nil
	}
	a.Credit = newCredit
	return true, nil
}

type fakeCreditRepo struct{ store *fakeLedgerStore }

func (r *fakeCreditRepo) Record(_ context.Context, txn *models.CreditTransaction) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.nextID++
	txn.ID = r.store.nextID
	r.store.txns[txn.AccountID] = append(r.store.txns[txn.AccountID], txn)
	return nil
}

func (r *fakeCreditRepo) GetByAccount(_ context.Context, accountID int64, limit int) ([]*models.CreditTransaction, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	txns := r.store.txns[accountID]
	if limit > 0 && len(txns) > limit {
		txns = txns[len(txns)-limit:]
	}
	out := make([]*models.CreditTransaction, len(txns))
	copy(out, txns)
	return out, nil
}

func (r *fakeCreditRepo) SumByAccount(_ context.Context, accountID int64) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var sum int64
	for _, txn := range r.store.txns[accountID] {
		sum += txn.SignedAmount()
	}
	return sum, nil
}

func TestLedgerService_ConcurrentAppliesKeepChainConsistent(t *testing.T) {
	ctx := context.Background()

	store := newFakeLedgerStore(&models.Account{ID: 1, Credit: 1000})
	ledger := NewLedgerService(store, 200)

	const adds, deducts = 60, 40

	var wg sync.WaitGroup
	for i := 0; i < adds; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.Apply(ctx, 1, models.CreditActionAdd, 10, nil)
			assert.NoError(t, err)
		}()
	}
	for i := 0; i < deducts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.Apply(ctx, 1, models.CreditActionDeduct, 5, nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Final credit is the initial credit plus adds minus deducts.
	account, err := (&fakeAccountRepo{store}).GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1000+adds*10-deducts*5), account.Credit)

	// The recorded chain is gapless and folds to the cached credit.
	assert.NoError(t, ledger.VerifyChain(ctx, 1))

	sum, err := (&fakeCreditRepo{store}).SumByAccount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, account.Credit-1000, sum)
}
