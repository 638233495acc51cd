package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/farandiarsa/hematku/internal/gateway"
	"github.com/farandiarsa/hematku/internal/logger"
	"github.com/farandiarsa/hematku/internal/models"
)

type fakeGateway struct {
	createCalls int
	expireCalls []string
	failCreate  bool
	lastRequest gateway.ChargeRequest
}

func (g *fakeGateway) CreateInvoice(ctx context.Context, req gateway.ChargeRequest) (*gateway.Invoice, error) {
	g.createCalls++
	g.lastRequest = req
	if g.failCreate {
		return nil, errors.New("gateway unavailable")
	}
	expiry := time.Now().Add(24 * time.Hour)
	return &gateway.Invoice{
		GatewayID:  "inv_" + req.ExternalID,
		PaymentURL: "https://checkout.example.com/" + req.ExternalID,
		ExpiresAt:  &expiry,
	}, nil
}

func (g *fakeGateway) ExpireInvoice(ctx context.Context, gatewayID string) error {
	g.expireCalls = append(g.expireCalls, gatewayID)
	return nil
}

type PaymentServiceTestSuite struct {
	suite.Suite
	db        *gorm.DB
	gateway   *fakeGateway
	svc       *PaymentService
	household *models.Household
	plan      *models.Plan
}

func TestPaymentService(t *testing.T) {
	suite.Run(t, new(PaymentServiceTestSuite))
}

func (s *PaymentServiceTestSuite) SetupTest() {
	s.db = newTestDB(s.T())
	s.gateway = &fakeGateway{}
	s.svc = NewPaymentService(s.db, s.gateway, logger.NewNop())

	s.household = &models.Household{Name: "Keluarga Tester", OwnerID: uuid.New()}
	s.Require().NoError(s.db.Create(s.household).Error)

	s.plan = &models.Plan{
		Code:         "basic",
		Name:         "Basic",
		PriceMonthly: 100000,
		PriceYearly:  990000,
		IsActive:     true,
	}
	s.Require().NoError(s.db.Create(s.plan).Error)
}

func (s *PaymentServiceTestSuite) newSubscription(cycle models.BillingCycle) *models.Subscription {
	subscription := &models.Subscription{
		HouseholdID:  s.household.ID,
		PlanID:       s.plan.ID,
		BillingCycle: cycle,
		Status:       models.SubStatusPending,
	}
	s.Require().NoError(s.db.Create(subscription).Error)
	return subscription
}

func (s *PaymentServiceTestSuite) newVoucher(mutate func(*models.Voucher)) *models.Voucher {
	voucher := &models.Voucher{
		Code:                "TEST10",
		Name:                "Ten percent off",
		DiscountType:        models.DiscountPercentage,
		Value:               10,
		MaxUsesPerHousehold: 1,
		ValidFrom:           time.Now().Add(-time.Hour),
		IsActive:            true,
	}
	if mutate != nil {
		mutate(voucher)
	}
	s.Require().NoError(s.db.Create(voucher).Error)
	return voucher
}

func (s *PaymentServiceTestSuite) TestCreateWithPercentageVoucher() {
	subscription := s.newSubscription(models.CycleMonthly)
	s.newVoucher(nil)

	payment, err := s.svc.Create(context.Background(), CreatePaymentInput{
		SubscriptionID: subscription.ID,
		HouseholdID:    s.household.ID,
		Method:         models.MethodInvoice,
		VoucherCode:    "TEST10",
	})
	s.Require().NoError(err)

	assert.Equal(s.T(), models.PaymentPending, payment.Status)
	assert.Equal(s.T(), 100000, payment.OriginalAmount)
	assert.Equal(s.T(), 10000, payment.DiscountAmount)
	assert.Equal(s.T(), 90000, payment.Amount)
	assert.Equal(s.T(), 1, s.gateway.createCalls)
	assert.Equal(s.T(), 90000, s.gateway.lastRequest.Amount)
	assert.NotEmpty(s.T(), payment.PaymentURL)

	var voucher models.Voucher
	s.Require().NoError(s.db.First(&voucher, "code = ?", "TEST10").Error)
	assert.Equal(s.T(), 1, voucher.UsedCount)

	var usageCount int64
	s.db.Model(&models.VoucherUsage{}).Where("payment_id = ?", payment.ID).Count(&usageCount)
	assert.Equal(s.T(), int64(1), usageCount)
}

func (s *PaymentServiceTestSuite) TestZeroTotalSkipsGatewayAndActivates() {
	subscription := s.newSubscription(models.CycleMonthly)
	s.newVoucher(func(v *models.Voucher) {
		v.Code = "FREE100"
		v.Value = 100
	})

	payment, err := s.svc.Create(context.Background(), CreatePaymentInput{
		SubscriptionID: subscription.ID,
		HouseholdID:    s.household.ID,
		Method:         models.MethodInvoice,
		VoucherCode:    "FREE100",
	})
	s.Require().NoError(err)

	assert.Equal(s.T(), models.PaymentPaid, payment.Status)
	assert.Equal(s.T(), 0, payment.Amount)
	assert.Equal(s.T(), 0, s.gateway.createCalls)
	assert.NotNil(s.T(), payment.PaidAt)

	var reloadedSub models.Subscription
	s.Require().NoError(s.db.First(&reloadedSub, "id = ?", subscription.ID).Error)
	assert.Equal(s.T(), models.SubStatusActive, reloadedSub.Status)
	s.Require().NotNil(reloadedSub.ExpiresAt)
	assert.WithinDuration(s.T(), time.Now().AddDate(0, 1, 0), *reloadedSub.ExpiresAt, 5*time.Second)

	var reloadedHousehold models.Household
	s.Require().NoError(s.db.First(&reloadedHousehold, "id = ?", s.household.ID).Error)
	s.Require().NotNil(reloadedHousehold.CurrentSubscriptionID)
	assert.Equal(s.T(), subscription.ID, *reloadedHousehold.CurrentSubscriptionID)
}

func (s *PaymentServiceTestSuite) TestFixedVoucherCapsAtBase() {
	subscription := s.newSubscription(models.CycleMonthly)
	s.newVoucher(func(v *models.Voucher) {
		v.Code = "BIGFIX"
		v.DiscountType = models.DiscountFixed
		v.Value = 200000
	})

	payment, err := s.svc.Create(context.Background(), CreatePaymentInput{
		SubscriptionID: subscription.ID,
		HouseholdID:    s.household.ID,
		Method:         models.MethodInvoice,
		VoucherCode:    "BIGFIX",
	})
	s.Require().NoError(err)

	assert.Equal(s.T(), 100000, payment.DiscountAmount)
	assert.Equal(s.T(), 0, payment.Amount)
	assert.Equal(s.T(), models.PaymentPaid, payment.Status)
	assert.Equal(s.T(), 0, s.gateway.createCalls)
}

func (s *PaymentServiceTestSuite) TestLifetimeActivationNeverExpires() {
	lifetimePrice := 1499000
	s.Require().NoError(s.db.Model(s.plan).Update("price_lifetime", lifetimePrice).Error)
	s.plan.PriceLifetime = &lifetimePrice
	subscription := s.newSubscription(models.CycleLifetime)

	payment, err := s.svc.Create(context.Background(), CreatePaymentInput{
		SubscriptionID: subscription.ID,
		HouseholdID:    s.household.ID,
		Method:         models.MethodInvoice,
	})
	s.Require().NoError(err)
	s.Require().NoError(s.svc.HandleSucceeded(context.Background(), payment.ID, nil))

	var reloadedSub models.Subscription
	s.Require().NoError(s.db.First(&reloadedSub, "id = ?", subscription.ID).Error)
	assert.Equal(s.T(), models.SubStatusActive, reloadedSub.Status)
	assert.Nil(s.T(), reloadedSub.ExpiresAt)
}

func (s *PaymentServiceTestSuite) TestGatewayFailureLeavesNoPartialState() {
	subscription := s.newSubscription(models.CycleMonthly)
	s.newVoucher(nil)
	s.gateway.failCreate = true

	_, err := s.svc.Create(context.Background(), CreatePaymentInput{
		SubscriptionID: subscription.ID,
		HouseholdID:    s.household.ID,
		Method:         models.MethodInvoice,
		VoucherCode:    "TEST10",
	})
	s.Require().Error(err)
	assert.True(s.T(), errors.Is(err, ErrGateway))

	var paymentCount int64
	s.db.Model(&models.Payment{}).Count(&paymentCount)
	assert.Equal(s.T(), int64(0), paymentCount)

	var voucher models.Voucher
	s.Require().NoError(s.db.First(&voucher, "code = ?", "TEST10").Error)
	assert.Equal(s.T(), 0, voucher.UsedCount)

	var usageCount int64
	s.db.Model(&models.VoucherUsage{}).Count(&usageCount)
	assert.Equal(s.T(), int64(0), usageCount)
}

func (s *PaymentServiceTestSuite) TestHandleSucceededIsIdempotent() {
	subscription := s.newSubscription(models.CycleMonthly)

	payment, err := s.svc.Create(context.Background(), CreatePaymentInput{
		SubscriptionID: subscription.ID,
		HouseholdID:    s.household.ID,
		Method:         models.MethodInvoice,
	})
	s.Require().NoError(err)

	meta := map[string]interface{}{"gateway_status": "PAID"}
	s.Require().NoError(s.svc.HandleSucceeded(context.Background(), payment.ID, meta))

	var afterFirst models.Payment
	s.Require().NoError(s.db.First(&afterFirst, "id = ?", payment.ID).Error)
	s.Require().NotNil(afterFirst.PaidAt)
	firstPaidAt := *afterFirst.PaidAt

	s.Require().NoError(s.svc.HandleSucceeded(context.Background(), payment.ID, meta))

	var afterSecond models.Payment
	s.Require().NoError(s.db.First(&afterSecond, "id = ?", payment.ID).Error)
	assert.Equal(s.T(), models.PaymentPaid, afterSecond.Status)
	assert.Equal(s.T(), firstPaidAt.Unix(), afterSecond.PaidAt.Unix())

	var reloadedSub models.Subscription
	s.Require().NoError(s.db.First(&reloadedSub, "id = ?", subscription.ID).Error)
	assert.Equal(s.T(), models.SubStatusActive, reloadedSub.Status)
}

func (s *PaymentServiceTestSuite) TestHandleFailedExpiresSubscription() {
	subscription := s.newSubscription(models.CycleMonthly)

	payment, err := s.svc.Create(context.Background(), CreatePaymentInput{
		SubscriptionID: subscription.ID,
		HouseholdID:    s.household.ID,
		Method:         models.MethodInvoice,
	})
	s.Require().NoError(err)

	s.Require().NoError(s.svc.HandleFailed(context.Background(), payment.ID, map[string]interface{}{"gateway_status": "EXPIRED"}))

	var reloadedPayment models.Payment
	s.Require().NoError(s.db.First(&reloadedPayment, "id = ?", payment.ID).Error)
	assert.Equal(s.T(), models.PaymentFailed, reloadedPayment.Status)

	var reloadedSub models.Subscription
	s.Require().NoError(s.db.First(&reloadedSub, "id = ?", subscription.ID).Error)
	assert.Equal(s.T(), models.SubStatusExpired, reloadedSub.Status)

	// A paid payment ignores late failure deliveries.
	s.Require().NoError(s.svc.HandleFailed(context.Background(), payment.ID, nil))
	s.Require().NoError(s.db.First(&reloadedPayment, "id = ?", payment.ID).Error)
	assert.Equal(s.T(), models.PaymentFailed, reloadedPayment.Status)
}

func (s *PaymentServiceTestSuite) TestCancelReversesVoucher() {
	subscription := s.newSubscription(models.CycleMonthly)
	s.newVoucher(nil)

	payment, err := s.svc.Create(context.Background(), CreatePaymentInput{
		SubscriptionID: subscription.ID,
		HouseholdID:    s.household.ID,
		Method:         models.MethodInvoice,
		VoucherCode:    "TEST10",
	})
	s.Require().NoError(err)

	canceled, err := s.svc.Cancel(context.Background(), payment.ID, s.household.ID)
	s.Require().NoError(err)
	assert.Equal(s.T(), models.PaymentExpired, canceled.Status)

	var voucher models.Voucher
	s.Require().NoError(s.db.First(&voucher, "code = ?", "TEST10").Error)
	assert.Equal(s.T(), 0, voucher.UsedCount)

	var usageCount int64
	s.db.Model(&models.VoucherUsage{}).Where("payment_id = ?", payment.ID).Count(&usageCount)
	assert.Equal(s.T(), int64(0), usageCount)

	s.Require().Len(s.gateway.expireCalls, 1)
	assert.Equal(s.T(), payment.GatewayID, s.gateway.expireCalls[0])
}

func (s *PaymentServiceTestSuite) TestCancelRejectsSettledPayment() {
	subscription := s.newSubscription(models.CycleMonthly)

	payment, err := s.svc.Create(context.Background(), CreatePaymentInput{
		SubscriptionID: subscription.ID,
		HouseholdID:    s.household.ID,
		Method:         models.MethodInvoice,
	})
	s.Require().NoError(err)
	s.Require().NoError(s.svc.HandleSucceeded(context.Background(), payment.ID, nil))

	_, err = s.svc.Cancel(context.Background(), payment.ID, s.household.ID)
	assert.True(s.T(), errors.Is(err, ErrPaymentNotPending))
}

func (s *PaymentServiceTestSuite) TestCancelAfterSettlementKeepsPaidState() {
	subscription := s.newSubscription(models.CycleMonthly)
	s.newVoucher(nil)

	payment, err := s.svc.Create(context.Background(), CreatePaymentInput{
		SubscriptionID: subscription.ID,
		HouseholdID:    s.household.ID,
		Method:         models.MethodInvoice,
		VoucherCode:    "TEST10",
	})
	s.Require().NoError(err)
	s.Require().NoError(s.svc.HandleSucceeded(context.Background(), payment.ID, nil))

	_, err = s.svc.Cancel(context.Background(), payment.ID, s.household.ID)
	assert.True(s.T(), errors.Is(err, ErrPaymentNotPending))

	var reloaded models.Payment
	s.Require().NoError(s.db.First(&reloaded, "id = ?", payment.ID).Error)
	assert.Equal(s.T(), models.PaymentPaid, reloaded.Status)

	var voucher models.Voucher
	s.Require().NoError(s.db.First(&voucher, "code = ?", "TEST10").Error)
	assert.Equal(s.T(), 1, voucher.UsedCount)

	var usageCount int64
	s.db.Model(&models.VoucherUsage{}).Where("payment_id = ?", payment.ID).Count(&usageCount)
	assert.Equal(s.T(), int64(1), usageCount)

	assert.Empty(s.T(), s.gateway.expireCalls)
}

func (s *PaymentServiceTestSuite) TestCreateRejectsForeignSubscription() {
	otherHousehold := &models.Household{Name: "Orang Lain", OwnerID: uuid.New()}
	s.Require().NoError(s.db.Create(otherHousehold).Error)
	subscription := s.newSubscription(models.CycleMonthly)

	_, err := s.svc.Create(context.Background(), CreatePaymentInput{
		SubscriptionID: subscription.ID,
		HouseholdID:    otherHousehold.ID,
		Method:         models.MethodInvoice,
	})
	assert.True(s.T(), errors.Is(err, ErrSubscriptionNotFound))
}
