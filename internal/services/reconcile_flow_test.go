// internal/services/reconcile_flow_test.go
package services

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/chainmart/chainmart-backend/internal/apperrors"
	"github.com/chainmart/chainmart-backend/internal/blockchain"
	"github.com/chainmart/chainmart-backend/internal/database"
	"github.com/chainmart/chainmart-backend/internal/models"
)

// These tests run the reconcilers end to end against a real database with
// stubbed chain clients. Set TEST_DATABASE_DSN to a throwaway Postgres
// instance to enable them.

type stubChainReader struct {
	results map[string][]blockchain.TransactionResult
}

func (r *stubChainReader) GetTransactions(_ context.Context, contractAddress string, _ []string) ([]blockchain.TransactionResult, error) {
	return r.results[contractAddress], nil
}

type stubStateClient struct {
	marketplaceAddress string
	orders             map[uuid.UUID]*blockchain.OnchainOrder
}

func (s *stubStateClient) GetSellerMarketplaceAddress(context.Context, string, uuid.UUID, uuid.UUID) (string, error) {
	return s.marketplaceAddress, nil
}

func (s *stubStateClient) GetOrder(_ context.Context, _ string, orderID uuid.UUID) (*blockchain.OnchainOrder, error) {
	return s.orders[orderID], nil
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(db))
	return db
}

func uniqueHash() string {
	return "0x" + strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
}

func uniqueAddress() string {
	return "0x" + strings.ReplaceAll(uuid.NewString(), "-", "")[:40]
}

func seedUser(t *testing.T, db *gorm.DB) models.User {
	t.Helper()
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	user := models.User{
		BaseModel:    models.BaseModel{ID: uuid.New()},
		Username:     "u" + suffix,
		Email:        "u" + suffix + "@example.com",
		PasswordHash: "x",
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

type orderFixture struct {
	chainID     int64
	contract    string
	commission  int
	order       models.ProductOrder
	transaction models.ProductOrderTransaction
	sender      string
}

func seedOrderFixture(t *testing.T, db *gorm.DB) orderFixture {
	t.Helper()
	now := time.Now().UTC()
	chainID := time.Now().UnixNano()

	seller := seedUser(t, db)
	buyer := seedUser(t, db)

	network := models.Network{
		BaseModel:      models.BaseModel{ID: uuid.New()},
		ChainID:        chainID,
		Name:           "testnet",
		NativeSymbol:   "ETH",
		NativeDecimals: 18,
	}
	require.NoError(t, db.Create(&network).Error)

	networkMarketplace := models.NetworkMarketplace{
		BaseModel:             models.BaseModel{ID: uuid.New()},
		NetworkID:             network.ID,
		SmartContractAddress:  uniqueAddress(),
		CommissionRatePercent: 3,
	}
	require.NoError(t, db.Create(&networkMarketplace).Error)

	sender := uniqueAddress()
	marketplace := models.SellerMarketplace{
		BaseModel:            models.BaseModel{ID: uuid.New()},
		SellerID:             seller.ID,
		NetworkID:            network.ID,
		NetworkMarketplaceID: networkMarketplace.ID,
		PendingAt:            &now,
		ConfirmedAt:          &now,
		SmartContractAddress: uniqueAddress(),
		OwnerWalletAddress:   sender,
	}
	require.NoError(t, db.Create(&marketplace).Error)

	token := models.Token{
		BaseModel: models.BaseModel{ID: uuid.New()},
		NetworkID: network.ID,
		Symbol:    "ETH",
		Decimals:  0,
	}
	require.NoError(t, db.Create(&token).Error)

	product := models.Product{
		BaseModel:           models.BaseModel{ID: uuid.New()},
		SellerMarketplaceID: marketplace.ID,
		TokenID:             token.ID,
		Name:                "widget",
		Price:               decimal.NewFromInt(100),
		PriceDecimals:       0,
		PriceFormatted:      "100 ETH",
	}
	require.NoError(t, db.Create(&product).Error)

	order := models.ProductOrder{
		BaseModel:           models.BaseModel{ID: uuid.New()},
		BuyerID:             buyer.ID,
		ProductID:           product.ID,
		SellerMarketplaceID: marketplace.ID,
		TokenID:             token.ID,
		Price:               decimal.NewFromInt(100),
		PriceDecimals:       0,
		PriceFormatted:      "100 ETH",
		PendingAt:           &now,
	}
	require.NoError(t, db.Create(&order).Error)

	transaction := models.ProductOrderTransaction{
		BaseModel:             models.BaseModel{ID: uuid.New()},
		BlockchainTransaction: models.BlockchainTransaction{Hash: uniqueHash()},
		ProductOrderID:        order.ID,
		NetworkID:             network.ID,
	}
	require.NoError(t, db.Create(&transaction).Error)

	return orderFixture{
		chainID:     chainID,
		contract:    marketplace.SmartContractAddress,
		commission:  networkMarketplace.CommissionRatePercent,
		order:       order,
		transaction: transaction,
		sender:      sender,
	}
}

func successResult(hash, sender string) blockchain.TransactionResult {
	return blockchain.TransactionResult{
		Hash:          hash,
		SenderAddress: sender,
		Success:       true,
		Timestamp:     time.Now().UTC(),
		Gas:           21000,
		GasValue:      decimal.RequireFromString("0.000021"),
	}
}

func orderReconciler(db *gorm.DB, fixture orderFixture, state *stubStateClient) *ReconcileService {
	reader := &stubChainReader{results: map[string][]blockchain.TransactionResult{
		fixture.contract: {successResult(fixture.transaction.Hash, fixture.sender)},
	}}
	registry := blockchain.NewRegistry()
	registry.Register(fixture.chainID, blockchain.Clients{Reader: reader, State: state})
	return &ReconcileService{db: db, registry: registry}
}

func TestReconcileProductOrdersCreatesSingleSaleAcrossRuns(t *testing.T) {
	db := openTestDB(t)
	fixture := seedOrderFixture(t, db)

	state := &stubStateClient{orders: map[uuid.UUID]*blockchain.OnchainOrder{
		fixture.order.ID: {
			BuyerAddress:    fixture.sender,
			Price:           decimal.NewFromInt(100),
			PaymentContract: "",
		},
	}}
	svc := orderReconciler(db, fixture, state)
	ctx := context.Background()

	require.NoError(t, svc.reconcileProductOrders(ctx, fixture.chainID))

	var order models.ProductOrder
	require.NoError(t, db.First(&order, "id = ?", fixture.order.ID).Error)
	assert.NotNil(t, order.ConfirmedAt)

	var transaction models.ProductOrderTransaction
	require.NoError(t, db.First(&transaction, "id = ?", fixture.transaction.ID).Error)
	assert.True(t, transaction.Confirmed())
	assert.Equal(t, fixture.sender, transaction.SenderAddress)

	var sales []models.ProductSale
	require.NoError(t, db.Where("product_order_id = ?", fixture.order.ID).Find(&sales).Error)
	require.Len(t, sales, 1)
	assert.Equal(t, fixture.commission, sales[0].CommissionRatePercent)
	assert.True(t, sales[0].PlatformIncome.Equal(decimal.NewFromInt(3)), "platform income %s", sales[0].PlatformIncome)
	assert.True(t, sales[0].SellerIncome.Equal(decimal.NewFromInt(97)), "seller income %s", sales[0].SellerIncome)

	// A second run must find nothing to do: the confirmed order is excluded
	// from candidate selection, so no second sale can appear.
	require.NoError(t, svc.reconcileProductOrders(ctx, fixture.chainID))

	require.NoError(t, db.Where("product_order_id = ?", fixture.order.ID).Find(&sales).Error)
	assert.Len(t, sales, 1)
}

func TestReconcileProductOrdersAbortsOnPaymentContractMismatch(t *testing.T) {
	db := openTestDB(t)
	fixture := seedOrderFixture(t, db)

	// The order is priced in native coin but the contract reports an ERC20
	// payment. The run must abort without touching the order or its
	// transaction.
	state := &stubStateClient{orders: map[uuid.UUID]*blockchain.OnchainOrder{
		fixture.order.ID: {
			BuyerAddress:    fixture.sender,
			Price:           decimal.NewFromInt(100),
			PaymentContract: uniqueAddress(),
		},
	}}
	svc := orderReconciler(db, fixture, state)

	err := svc.reconcileProductOrders(context.Background(), fixture.chainID)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindInternal))

	var order models.ProductOrder
	require.NoError(t, db.First(&order, "id = ?", fixture.order.ID).Error)
	assert.Nil(t, order.ConfirmedAt)

	var transaction models.ProductOrderTransaction
	require.NoError(t, db.First(&transaction, "id = ?", fixture.transaction.ID).Error)
	assert.True(t, transaction.Unresolved())

	var sales int64
	require.NoError(t, db.Model(&models.ProductSale{}).Where("product_order_id = ?", fixture.order.ID).Count(&sales).Error)
	assert.Zero(t, sales)
}

func TestReconcileSellerMarketplaceRejectsClaimedAddress(t *testing.T) {
	db := openTestDB(t)
	now := time.Now().UTC()
	chainID := time.Now().UnixNano()

	seller := seedUser(t, db)

	network := models.Network{
		BaseModel:      models.BaseModel{ID: uuid.New()},
		ChainID:        chainID,
		Name:           "testnet",
		NativeSymbol:   "ETH",
		NativeDecimals: 18,
	}
	require.NoError(t, db.Create(&network).Error)

	networkMarketplace := models.NetworkMarketplace{
		BaseModel:             models.BaseModel{ID: uuid.New()},
		NetworkID:             network.ID,
		SmartContractAddress:  uniqueAddress(),
		CommissionRatePercent: 3,
	}
	require.NoError(t, db.Create(&networkMarketplace).Error)

	// An already-confirmed marketplace holds the deployed address the
	// contract is about to report for the second one.
	claimedAddress := uniqueAddress()
	first := models.SellerMarketplace{
		BaseModel:            models.BaseModel{ID: uuid.New()},
		SellerID:             seller.ID,
		NetworkID:            network.ID,
		NetworkMarketplaceID: networkMarketplace.ID,
		PendingAt:            &now,
		ConfirmedAt:          &now,
		SmartContractAddress: claimedAddress,
		OwnerWalletAddress:   uniqueAddress(),
	}
	require.NoError(t, db.Create(&first).Error)

	second := models.SellerMarketplace{
		BaseModel:            models.BaseModel{ID: uuid.New()},
		SellerID:             seller.ID,
		NetworkID:            network.ID,
		NetworkMarketplaceID: networkMarketplace.ID,
		PendingAt:            &now,
	}
	require.NoError(t, db.Create(&second).Error)

	transaction := models.SellerMarketplaceTransaction{
		BaseModel:             models.BaseModel{ID: uuid.New()},
		BlockchainTransaction: models.BlockchainTransaction{Hash: uniqueHash()},
		SellerMarketplaceID:   second.ID,
		NetworkID:             network.ID,
	}
	require.NoError(t, db.Create(&transaction).Error)

	reader := &stubChainReader{results: map[string][]blockchain.TransactionResult{
		networkMarketplace.SmartContractAddress: {successResult(transaction.Hash, uniqueAddress())},
	}}
	state := &stubStateClient{marketplaceAddress: claimedAddress}
	registry := blockchain.NewRegistry()
	registry.Register(chainID, blockchain.Clients{Reader: reader, State: state})
	svc := &ReconcileService{db: db, registry: registry}

	err := svc.reconcileSellerMarketplace(context.Background(), second.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindInternal))

	var reloaded models.SellerMarketplace
	require.NoError(t, db.First(&reloaded, "id = ?", second.ID).Error)
	assert.Nil(t, reloaded.ConfirmedAt)
	assert.Empty(t, reloaded.SmartContractAddress)
}
