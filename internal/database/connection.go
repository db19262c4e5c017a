// internal/database/connection.go
package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/chainmart/chainmart-backend/internal/config"
	"github.com/chainmart/chainmart-backend/internal/models"
)

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var gormConfig *gorm.Config

	// Configure GORM logger
	if cfg.LogLevel == "silent" {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		}
	} else {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Info),
		}
	}

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	// Test connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Database connection established successfully")
	return db, nil
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("Error getting underlying sql.DB: %v", err)
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Printf("Error closing database connection: %v", err)
	} else {
		log.Println("Database connection closed successfully")
	}
}

func RunMigrations(db *gorm.DB) error {
	log.Println("Running database migrations...")

	// Enable UUID extension
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error; err != nil {
		return fmt.Errorf("failed to create UUID extension: %w", err)
	}

	// Run auto-migrations
	err := db.AutoMigrate(
		&models.User{},
		&models.Network{},
		&models.NetworkMarketplace{},
		&models.Token{},
		&models.SellerMarketplace{},
		&models.SellerMarketplaceTransaction{},
		&models.Product{},
		&models.ProductOrder{},
		&models.ProductOrderTransaction{},
		&models.SellerPayout{},
		&models.SellerPayoutTransaction{},
		&models.ProductSale{},
	)

	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// A deployed contract address may belong to at most one live seller
	// marketplace; empty addresses (not yet confirmed) are exempt. This
	// backs the duplicate-address check in the marketplace reconciler, so
	// failing to create it is fatal.
	uniqueAddress := "CREATE UNIQUE INDEX IF NOT EXISTS uidx_seller_marketplaces_contract_address ON seller_marketplaces(smart_contract_address) WHERE smart_contract_address <> '' AND deleted_at IS NULL"
	if err := db.Exec(uniqueAddress).Error; err != nil {
		return fmt.Errorf("failed to create unique marketplace address index: %w", err)
	}

	// Create indexes
	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	log.Println("Database migrations completed successfully")
	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []string{
		// User indexes
		"CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)",
		"CREATE INDEX IF NOT EXISTS idx_users_username ON users(username)",

		// Marketplace indexes
		"CREATE INDEX IF NOT EXISTS idx_seller_marketplaces_seller ON seller_marketplaces(seller_id)",
		"CREATE INDEX IF NOT EXISTS idx_seller_marketplaces_network ON seller_marketplaces(network_id)",
		"CREATE INDEX IF NOT EXISTS idx_seller_marketplace_transactions_owner ON seller_marketplace_transactions(seller_marketplace_id)",
		"CREATE INDEX IF NOT EXISTS idx_seller_marketplace_transactions_unresolved ON seller_marketplace_transactions(seller_marketplace_id) WHERE confirmed_at IS NULL AND failed_at IS NULL",

		// Product indexes
		"CREATE INDEX IF NOT EXISTS idx_products_marketplace ON products(seller_marketplace_id)",
		"CREATE INDEX IF NOT EXISTS idx_products_created_at ON products(created_at DESC)",

		// Order indexes
		"CREATE INDEX IF NOT EXISTS idx_product_orders_buyer ON product_orders(buyer_id)",
		"CREATE INDEX IF NOT EXISTS idx_product_orders_marketplace ON product_orders(seller_marketplace_id)",
		"CREATE INDEX IF NOT EXISTS idx_product_order_transactions_owner ON product_order_transactions(product_order_id)",
		"CREATE INDEX IF NOT EXISTS idx_product_order_transactions_network ON product_order_transactions(network_id)",
		"CREATE INDEX IF NOT EXISTS idx_product_order_transactions_unresolved ON product_order_transactions(network_id) WHERE confirmed_at IS NULL AND failed_at IS NULL",

		// Payout indexes
		"CREATE INDEX IF NOT EXISTS idx_seller_payouts_seller ON seller_payouts(seller_id)",
		"CREATE INDEX IF NOT EXISTS idx_seller_payouts_marketplace ON seller_payouts(seller_marketplace_id)",
		"CREATE INDEX IF NOT EXISTS idx_seller_payout_transactions_owner ON seller_payout_transactions(seller_payout_id)",
		"CREATE INDEX IF NOT EXISTS idx_seller_payout_transactions_network ON seller_payout_transactions(network_id)",
		"CREATE INDEX IF NOT EXISTS idx_seller_payout_transactions_unresolved ON seller_payout_transactions(network_id) WHERE confirmed_at IS NULL AND failed_at IS NULL",

		// Sale indexes
		"CREATE INDEX IF NOT EXISTS idx_product_sales_marketplace ON product_sales(seller_marketplace_id)",
		"CREATE INDEX IF NOT EXISTS idx_product_sales_order ON product_sales(product_order_id)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			log.Printf("Warning: Failed to create index: %s, Error: %v", index, err)
			// Continue with other indexes instead of failing completely
		}
	}

	return nil
}

// SeedInitialData upserts the configured networks, their marketplace
// contracts, and native tokens so a fresh database is immediately usable.
func SeedInitialData(db *gorm.DB, networks []config.NetworkConfig) error {
	log.Println("Seeding initial data...")

	for _, nc := range networks {
		var network models.Network
		err := db.Where("chain_id = ?", nc.ChainID).First(&network).Error
		if err == gorm.ErrRecordNotFound {
			network = models.Network{
				ChainID:        nc.ChainID,
				Name:           nc.Name,
				NativeSymbol:   nc.NativeTokenSymbol,
				NativeDecimals: int32(nc.NativeTokenDecimals),
			}
			if err := db.Create(&network).Error; err != nil {
				return fmt.Errorf("failed to create network %d: %w", nc.ChainID, err)
			}
			log.Printf("Network %s (chain %d) created", nc.Name, nc.ChainID)
		} else if err != nil {
			return fmt.Errorf("failed to look up network %d: %w", nc.ChainID, err)
		}

		if nc.MarketplaceContract != "" {
			var count int64
			db.Model(&models.NetworkMarketplace{}).
				Where("network_id = ? AND smart_contract_address = ?", network.ID, nc.MarketplaceContract).
				Count(&count)
			if count == 0 {
				marketplace := models.NetworkMarketplace{
					NetworkID:             network.ID,
					SmartContractAddress:  nc.MarketplaceContract,
					CommissionRatePercent: nc.CommissionPercent,
				}
				if err := db.Create(&marketplace).Error; err != nil {
					return fmt.Errorf("failed to create network marketplace for chain %d: %w", nc.ChainID, err)
				}
			}
		}

		if nc.NativeTokenSymbol != "" {
			var count int64
			db.Model(&models.Token{}).
				Where("network_id = ? AND smart_contract_address = ''", network.ID).
				Count(&count)
			if count == 0 {
				token := models.Token{
					NetworkID: network.ID,
					Symbol:    nc.NativeTokenSymbol,
					Decimals:  int32(nc.NativeTokenDecimals),
				}
				if err := db.Create(&token).Error; err != nil {
					return fmt.Errorf("failed to create native token for chain %d: %w", nc.ChainID, err)
				}
			}
		}
	}

	log.Println("Initial data seeding completed")
	return nil
}

// Transaction helper
func WithTransaction(db *gorm.DB, fn func(*gorm.DB) error) error {
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}
