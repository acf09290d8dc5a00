package service

import (
	"context"
	"testing"

	"huay/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// commissionFixture wires a commission service over fresh mocks
type commissionFixture struct {
	factory  *MockUnitOfWorkFactory
	uow      *MockUnitOfWork
	accounts *MockAccountRepository
	ledger   *MockLedgerService
	service  CommissionService
}

func newCommissionFixture() *commissionFixture {
	f := &commissionFixture{
		factory:  new(MockUnitOfWorkFactory),
		uow:      new(MockUnitOfWork),
		accounts: new(MockAccountRepository),
		ledger:   new(MockLedgerService),
	}
	f.uow.SetRepositories(f.accounts, nil, nil, nil)
	f.factory.On("Create").Return(f.uow)
	f.uow.On("Begin", mock.Anything).Return(nil)
	f.uow.On("Rollback").Return(nil)
	f.service = NewCommissionService(f.factory, f.ledger, nil)
	return f
}

func int64Ptr(v int64) *int64 { return &v }

func commissionBet(status models.BetStatus) *models.Bet {
	return &models.Bet{
		ID:        42,
		AccountID: 1,
		Category:  "government",
		PeriodID:  "2026-08-16",
		Status:    status,
		Lines: []*models.BetLine{
			{ID: 1, BetID: 42, BetType: models.BetTypeTwoTop, Number: "23", Stake: 100, PayoutRate: 90, PotentialWin: 9000},
		},
	}
}

func threeTierHierarchy() (member, agent, master *models.Account) {
	master = &models.Account{
		ID:          3,
		AccountType: models.AccountTypeMaster,
		CommissionRates: models.CommissionRates{
			"government": {models.BetTypeTwoTop: 5},
		},
	}
	agent = &models.Account{
		ID:          2,
		AccountType: models.AccountTypeAgent,
		ParentID:    int64Ptr(3),
		CommissionRates: models.CommissionRates{
			"government": {models.BetTypeTwoTop: 30},
		},
	}
	member = &models.Account{
		ID:          1,
		AccountType: models.AccountTypeMember,
		ParentID:    int64Ptr(2),
	}
	return member, agent, master
}

func TestCommissionService_Distribute_CascadesNearestParentFirst(t *testing.T) {
	for _, status := range []models.BetStatus{models.BetStatusWon, models.BetStatusLost} {
		t.Run(string(status), func(t *testing.T) {
			ctx := context.Background()
			f := newCommissionFixture()
			member, agent, master := threeTierHierarchy()

			f.accounts.On("GetByID", ctx, int64(1)).Return(member, nil)
			f.accounts.On("GetByID", ctx, int64(2)).Return(agent, nil)
			f.accounts.On("GetByID", ctx, int64(3)).Return(master, nil)

			// Stake 100 at 30% for the agent, 5% for the master. The placing
			// member itself earns nothing.
			agentTxn := &models.CreditTransaction{AccountID: 2, Action: models.CreditActionAdd, Amount: 30}
			masterTxn := &models.CreditTransaction{AccountID: 3, Action: models.CreditActionAdd, Amount: 5}
			f.ledger.On("Apply", ctx, int64(2), models.CreditActionAdd, int64(30), mock.MatchedBy(func(meta map[string]any) bool {
				return meta["bet_id"] == int64(42) && meta["commission"] == true
			})).Return(agentTxn, nil)
			f.ledger.On("Apply", ctx, int64(3), models.CreditActionAdd, int64(5), mock.Anything).Return(masterTxn, nil)

			recorded, err := f.service.Distribute(ctx, commissionBet(status))

			require.NoError(t, err)
			require.Equal(t, []*models.CreditTransaction{agentTxn, masterTxn}, recorded)
			f.ledger.AssertExpectations(t)
			f.ledger.AssertNotCalled(t, "Apply", ctx, int64(1), mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestCommissionService_Distribute_SkipsZeroRateTier(t *testing.T) {
	ctx := context.Background()
	f := newCommissionFixture()
	member, agent, master := threeTierHierarchy()
	master.CommissionRates = nil

	f.accounts.On("GetByID", ctx, int64(1)).Return(member, nil)
	f.accounts.On("GetByID", ctx, int64(2)).Return(agent, nil)
	f.accounts.On("GetByID", ctx, int64(3)).Return(master, nil)

	agentTxn := &models.CreditTransaction{AccountID: 2, Amount: 30}
	f.ledger.On("Apply", ctx, int64(2), models.CreditActionAdd, int64(30), mock.Anything).Return(agentTxn, nil)

	recorded, err := f.service.Distribute(ctx, commissionBet(models.BetStatusLost))

	require.NoError(t, err)
	assert.Equal(t, []*models.CreditTransaction{agentTxn}, recorded)
	f.ledger.AssertNumberOfCalls(t, "Apply", 1)
}

func TestCommissionService_Distribute_PartialFailure(t *testing.T) {
	ctx := context.Background()
	f := newCommissionFixture()
	member, agent, master := threeTierHierarchy()

	f.accounts.On("GetByID", ctx, int64(1)).Return(member, nil)
	f.accounts.On("GetByID", ctx, int64(2)).Return(agent, nil)
	f.accounts.On("GetByID", ctx, int64(3)).Return(master, nil)

	agentTxn := &models.CreditTransaction{AccountID: 2, Amount: 30}
	f.ledger.On("Apply", ctx, int64(2), models.CreditActionAdd, int64(30), mock.Anything).Return(agentTxn, nil)
	f.ledger.On("Apply", ctx, int64(3), models.CreditActionAdd, int64(5), mock.Anything).Return(nil, assert.AnError)

	recorded, err := f.service.Distribute(ctx, commissionBet(models.BetStatusWon))

	// The agent's tier stays committed even though the master's failed.
	assert.Equal(t, []*models.CreditTransaction{agentTxn}, recorded)

	var partial *PartialCascadeError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, int64(42), partial.BetID)
	assert.Equal(t, []int64{2}, partial.Succeeded)
	assert.ErrorIs(t, partial.Failed[3], assert.AnError)
}

func TestCommissionService_Distribute_RootAccountHasNoUpline(t *testing.T) {
	ctx := context.Background()
	f := newCommissionFixture()

	root := &models.Account{ID: 3, AccountType: models.AccountTypeMaster}
	f.accounts.On("GetByID", ctx, int64(3)).Return(root, nil)

	bet := commissionBet(models.BetStatusWon)
	bet.AccountID = 3

	recorded, err := f.service.Distribute(ctx, bet)

	require.NoError(t, err)
	assert.Empty(t, recorded)
	f.ledger.AssertNotCalled(t, "Apply", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCommissionService_Distribute_DetectsCycle(t *testing.T) {
	ctx := context.Background()
	f := newCommissionFixture()

	a := &models.Account{ID: 1, AccountType: models.AccountTypeMember, ParentID: int64Ptr(2)}
	b := &models.Account{ID: 2, AccountType: models.AccountTypeAgent, ParentID: int64Ptr(1)}
	f.accounts.On("GetByID", ctx, int64(1)).Return(a, nil)
	f.accounts.On("GetByID", ctx, int64(2)).Return(b, nil)

	recorded, err := f.service.Distribute(ctx, commissionBet(models.BetStatusWon))

	assert.Nil(t, recorded)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestCommissionService_Distribute_MissingAccount(t *testing.T) {
	ctx := context.Background()
	f := newCommissionFixture()

	f.accounts.On("GetByID", ctx, int64(1)).Return(nil, nil)

	recorded, err := f.service.Distribute(ctx, commissionBet(models.BetStatusWon))

	assert.Nil(t, recorded)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestTierCommission(t *testing.T) {
	t.Parallel()

	agent := &models.Account{
		ID: 2,
		CommissionRates: models.CommissionRates{
			"government": {
				models.BetTypeTwoTop:   30,
				models.BetTypeThreeTop: 12,
			},
		},
	}

	tests := []struct {
		name string
		bet  *models.Bet
		want int64
	}{
		{
			name: "single line",
			bet: &models.Bet{
				Category: "government",
				Lines:    []*models.BetLine{{BetType: models.BetTypeTwoTop, Stake: 100}},
			},
			want: 30,
		},
		{
			name: "mixed lines sum per line rate",
			bet: &models.Bet{
				Category: "government",
				Lines: []*models.BetLine{
					{BetType: models.BetTypeTwoTop, Stake: 100},
					{BetType: models.BetTypeThreeTop, Stake: 200},
				},
			},
			want: 30 + 24,
		},
		{
			name: "integer division truncates",
			bet: &models.Bet{
				Category: "government",
				Lines:    []*models.BetLine{{BetType: models.BetTypeTwoTop, Stake: 55}},
			},
			want: 16,
		},
		{
			name: "unknown category pays nothing",
			bet: &models.Bet{
				Category: "stock",
				Lines:    []*models.BetLine{{BetType: models.BetTypeTwoTop, Stake: 100}},
			},
			want: 0,
		},
		{
			name: "unknown bet type pays nothing",
			bet: &models.Bet{
				Category: "government",
				Lines:    []*models.BetLine{{BetType: models.BetTypeRunTop, Stake: 100}},
			},
			want: 0,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tierCommission(agent, tt.bet))
		})
	}
}
