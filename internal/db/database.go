package db

import (
	"log"
	"os"

	"go-backend/internal/config"
	"go-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func InitDB() {
	var err error

	if config.AppConfig == nil || config.AppConfig.Database.DSN == "" {
		log.Fatalf("Database DSN is required")
	}

	dsn := config.AppConfig.Database.DSN

	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		SkipDefaultTransaction:                   true,
		PrepareStmt:                              true,
		Logger:                                   logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}

	log.Println("✅ Database connected successfully")

	if err := DB.AutoMigrate(
		&models.RevocationRecord{},
		&models.IssuedClaim{},
		&models.GlobalConfig{},
	); err != nil {
		log.Fatalf("AutoMigrate failed: %v", err)
	}

	initGlobalConfig(DB)

	log.Println("✅ Database schema migrated successfully")
}

// initGlobalConfig seeds the default global configuration rows
func initGlobalConfig(db *gorm.DB) {
	var rewardConfig models.GlobalConfig
	if err := db.Where("config_key = ?", "reward_contract").First(&rewardConfig).Error; err != nil {
		defaultContract := ""

		if config.AppConfig != nil && config.AppConfig.Blockchain.RewardContract != "" {
			defaultContract = config.AppConfig.Blockchain.RewardContract
		} else if envContract := os.Getenv("REWARD_CONTRACT"); envContract != "" {
			defaultContract = envContract
		}

		rewardConfig = models.GlobalConfig{
			ConfigKey:   "reward_contract",
			ConfigValue: defaultContract,
			Description: "Global reward claim contract address (same for all chains)",
			UpdatedBy:   "system",
		}
		if err := db.Create(&rewardConfig).Error; err != nil {
			log.Printf("⚠️ Failed to seed reward_contract global config: %v", err)
		} else {
			log.Printf("✅ Seeded reward_contract global config: %s", defaultContract)
		}
	}
}
