package funds

import (
	"context"
	"testing"

	"beacon-backend/internal/domain"
	"beacon-backend/internal/pkg/ledgererr"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupFundTest(t *testing.T) (*Service, *gorm.DB, uuid.UUID) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.Organization{}, &domain.Program{}, &domain.Fund{},
		&domain.Donation{}, &domain.Allocation{},
	))
	org := domain.Organization{LegalName: "Beacon Relief", EIN: "12-3456789"}
	require.NoError(t, db.Create(&org).Error)
	return &Service{DB: db}, db, org.ID
}

func TestCreateFund(t *testing.T) {
	svc, _, orgID := setupFundTest(t)

	fund, err := svc.CreateFund(context.Background(), orgID, CreateFundInput{
		Name:        "General Operating",
		Code:        "GEN",
		Restriction: domain.RestrictionUnrestricted,
	})
	require.NoError(t, err)
	assert.Equal(t, "GEN", fund.Code)
	assert.Equal(t, domain.RestrictionUnrestricted, fund.Restriction)
	assert.NotEqual(t, uuid.Nil, fund.ID)
}

func TestCreateFund_DuplicateCode(t *testing.T) {
	svc, _, orgID := setupFundTest(t)

	_, err := svc.CreateFund(context.Background(), orgID, CreateFundInput{
		Name: "General", Code: "GEN", Restriction: domain.RestrictionUnrestricted,
	})
	require.NoError(t, err)

	_, err = svc.CreateFund(context.Background(), orgID, CreateFundInput{
		Name: "General Again", Code: "GEN", Restriction: domain.RestrictionUnrestricted,
	})
	require.Error(t, err)
	assert.True(t, ledgererr.IsKind(err, ledgererr.Validation))
}

func TestCreateFund_InvalidRestriction(t *testing.T) {
	svc, _, orgID := setupFundTest(t)

	_, err := svc.CreateFund(context.Background(), orgID, CreateFundInput{
		Name: "General", Code: "GEN", Restriction: "restricted-ish",
	})
	require.Error(t, err)
	assert.True(t, ledgererr.IsKind(err, ledgererr.Validation))
}

func TestUpdateFund_RestrictionMutableWhileUnreferenced(t *testing.T) {
	svc, _, orgID := setupFundTest(t)

	fund, err := svc.CreateFund(context.Background(), orgID, CreateFundInput{
		Name: "Scholarships", Code: "SCH", Restriction: domain.RestrictionUnrestricted,
	})
	require.NoError(t, err)

	newRestriction := domain.RestrictionTemporary
	updated, err := svc.UpdateFund(context.Background(), orgID, fund.ID, UpdateFundInput{
		Restriction: &newRestriction,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RestrictionTemporary, updated.Restriction)
}

func TestUpdateFund_RestrictionFrozenOnceAllocated(t *testing.T) {
	svc, db, orgID := setupFundTest(t)

	fund, err := svc.CreateFund(context.Background(), orgID, CreateFundInput{
		Name: "Scholarships", Code: "SCH", Restriction: domain.RestrictionTemporary,
	})
	require.NoError(t, err)

	donation := domain.Donation{
		OrganizationID: orgID, PartyID: uuid.New(),
		IntentAmount: decimal.NewFromInt(100), Currency: "USD", ReceivedVia: domain.ChannelCheck,
	}
	require.NoError(t, db.Create(&donation).Error)
	require.NoError(t, db.Create(&domain.Allocation{
		OrganizationID: orgID, DonationID: donation.ID, FundID: fund.ID,
		Amount: decimal.NewFromInt(100),
	}).Error)

	newRestriction := domain.RestrictionUnrestricted
	_, err = svc.UpdateFund(context.Background(), orgID, fund.ID, UpdateFundInput{
		Restriction: &newRestriction,
	})
	require.Error(t, err)
	assert.True(t, ledgererr.IsCode(err, ledgererr.CodeRestrictionFrozen))

	// Renaming stays allowed.
	name := "Scholarship Endowment"
	updated, err := svc.UpdateFund(context.Background(), orgID, fund.ID, UpdateFundInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Scholarship Endowment", updated.Name)
	assert.Equal(t, domain.RestrictionTemporary, updated.Restriction)
}

func TestListFunds_ScopedToOrg(t *testing.T) {
	svc, db, orgID := setupFundTest(t)

	otherOrg := domain.Organization{LegalName: "Other Org", EIN: "98-7654321"}
	require.NoError(t, db.Create(&otherOrg).Error)

	_, err := svc.CreateFund(context.Background(), orgID, CreateFundInput{
		Name: "General", Code: "GEN", Restriction: domain.RestrictionUnrestricted,
	})
	require.NoError(t, err)
	_, err = svc.CreateFund(context.Background(), otherOrg.ID, CreateFundInput{
		Name: "Other General", Code: "OGEN", Restriction: domain.RestrictionUnrestricted,
	})
	require.NoError(t, err)

	funds, err := svc.ListFunds(context.Background(), orgID)
	require.NoError(t, err)
	require.Len(t, funds, 1)
	assert.Equal(t, "GEN", funds[0].Code)
}
