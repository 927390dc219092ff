package services

import (
	"testing"

	"github.com/siteflow/siteflow/internal/models"
	"github.com/siteflow/siteflow/internal/testutil"
	"github.com/siteflow/siteflow/pkg/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDerivePaymentStatus(t *testing.T) {
	tests := []struct {
		amount, paid string
		want         models.PaymentStatus
	}{
		{"100", "0", models.PaymentPending},
		{"100", "0.01", models.PaymentPartial},
		{"100", "99.99", models.PaymentPartial},
		{"100", "100", models.PaymentPaid},
		{"100.10", "100.1", models.PaymentPaid},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DerivePaymentStatus(dec(tt.amount), dec(tt.paid)), "amount=%s paid=%s", tt.amount, tt.paid)
	}
}

func TestTransactionService_Create(t *testing.T) {
	db := testutil.NewDB(t)
	tn := testutil.SeedTenant(t, db, "acme")
	svc := NewTransactionService(db)
	project := seedProject(t, db, tn, "Tower A", "1000")

	tx, err := svc.Create(ctx, principal(tn, models.RoleAccountant), &CreateTransactionRequest{
		ProjectID: project.ID,
		Type:      models.TransactionExpense,
		Amount:    dec("1250.50"),
		CostType:  "material",
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, tx.PaymentStatus)
	assert.True(t, tx.PaidAmount.IsZero())
	assert.Nil(t, tx.CategoryID)

	_, err = svc.Create(ctx, principal(tn, models.RoleEngineer), &CreateTransactionRequest{ProjectID: project.ID, Type: models.TransactionExpense, Amount: dec("1")})
	assert.True(t, response.IsKind(err, response.KindForbidden))

	_, err = svc.Create(ctx, principal(tn, models.RolePM), &CreateTransactionRequest{ProjectID: project.ID, Type: models.TransactionExpense, Amount: dec("0")})
	assert.True(t, response.IsKind(err, response.KindValidation))

	_, err = svc.Create(ctx, principal(tn, models.RolePM), &CreateTransactionRequest{ProjectID: project.ID, Type: models.TransactionExpense, Amount: dec("0.001")})
	assert.True(t, response.IsKind(err, response.KindValidation), "sub-cent amounts would round to zero in the column")

	tx, err = svc.Create(ctx, principal(tn, models.RolePM), &CreateTransactionRequest{ProjectID: project.ID, Type: models.TransactionExpense, Amount: dec("12.500")})
	require.NoError(t, err, "trailing zeros are still cents")
	assert.True(t, tx.Amount.Equal(dec("12.5")))
}

func TestTransactionService_UpdatePayment(t *testing.T) {
	db := testutil.NewDB(t)
	tn := testutil.SeedTenant(t, db, "acme")
	svc := NewTransactionService(db)
	project := seedProject(t, db, tn, "Tower A", "1000")
	accountant := principal(tn, models.RoleAccountant)

	tx := seedExpense(t, db, project, nil, "500", "0")

	_, err := svc.UpdatePayment(ctx, principal(tn, models.RolePM), tx.ID, &UpdatePaymentRequest{PaidAmount: ptr(dec("10"))})
	assert.True(t, response.IsKind(err, response.KindForbidden), "PMs book transactions but do not pay them")

	updated, err := svc.UpdatePayment(ctx, accountant, tx.ID, &UpdatePaymentRequest{PaidAmount: ptr(dec("200"))})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPartial, updated.PaymentStatus)
	assert.NotNil(t, updated.PaymentDate, "a payment date defaults to now")

	_, err = svc.UpdatePayment(ctx, accountant, tx.ID, &UpdatePaymentRequest{PaidAmount: ptr(dec("500.01"))})
	assert.True(t, response.IsKind(err, response.KindValidation))

	_, err = svc.UpdatePayment(ctx, accountant, tx.ID, &UpdatePaymentRequest{PaidAmount: ptr(dec("499.999"))})
	assert.True(t, response.IsKind(err, response.KindValidation), "sub-cent payments are rejected, not stored rounded")

	_, err = svc.UpdatePayment(ctx, accountant, tx.ID, &UpdatePaymentRequest{PaidAmount: ptr(dec("-1"))})
	assert.True(t, response.IsKind(err, response.KindValidation))

	_, err = svc.UpdatePayment(ctx, accountant, tx.ID, &UpdatePaymentRequest{PaidAmount: ptr(dec("100")), PaymentStatus: ptr(models.PaymentPaid)})
	assert.True(t, response.IsKind(err, response.KindValidation), "status must agree with the amount")

	_, err = svc.UpdatePayment(ctx, accountant, tx.ID, &UpdatePaymentRequest{PaymentStatus: ptr(models.PaymentPartial)})
	assert.True(t, response.IsKind(err, response.KindValidation))

	updated, err = svc.UpdatePayment(ctx, accountant, tx.ID, &UpdatePaymentRequest{PaymentStatus: ptr(models.PaymentPaid)})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, updated.PaymentStatus)
	assert.True(t, updated.PaidAmount.Equal(dec("500")), "PAID alone settles the full amount")

	updated, err = svc.UpdatePayment(ctx, accountant, tx.ID, &UpdatePaymentRequest{PaymentStatus: ptr(models.PaymentPending)})
	require.NoError(t, err)
	assert.True(t, updated.PaidAmount.IsZero())
	assert.Nil(t, updated.PaymentDate)
}

func TestTransactionService_ListFilters(t *testing.T) {
	db := testutil.NewDB(t)
	tn := testutil.SeedTenant(t, db, "acme")
	svc := NewTransactionService(db)
	project := seedProject(t, db, tn, "Tower A", "1000")
	seedExpense(t, db, project, nil, "100", "100")
	seedExpense(t, db, project, nil, "100", "0")

	items, total, err := svc.List(ctx, principal(tn, models.RoleAccountant), &TransactionListRequest{ProjectID: project.ID, PaymentStatus: "PAID"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, models.PaymentPaid, items[0].PaymentStatus)
}
