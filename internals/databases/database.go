package databases

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	chatModel "orderkue_backend/internals/features/chat/sessions/model"
	orderModel "orderkue_backend/internals/features/orders/orders/model"
	webhookModel "orderkue_backend/internals/features/payments/webhooks/model"
	staffModel "orderkue_backend/internals/features/users/staff/model"
	"orderkue_backend/internals/configs"
)

var DB *gorm.DB

func ConnectDB(cfg *configs.Config) *gorm.DB {
	log.Info("🔌 Koneksi ke PostgreSQL...")

	// statement_timeout selaras dengan timeout HTTP di main.go
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&application_name=orderkue&options=-c statement_timeout=5000",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBSSLMode,
	)

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true, // 👍 cocok untuk PgBouncer (transaction pooling)
	}), &gorm.Config{
		Logger:         configs.NewGormLogger(),
		TranslateError: true,
	})
	if err != nil {
		log.Fatalf("❌ Gagal konek DB: %v", err)
	}
	DB = db
	log.Info("✅ DB connected.")
	return db
}

func TunePool(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.WithError(err).Warn("pool tune err")
		return
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxIdleTime(60 * time.Second)
	sqlDB.SetConnMaxLifetime(10 * time.Minute)
}

func WarmUpQueries(db *gorm.DB) {
	go func() {
		time.Sleep(500 * time.Millisecond) // beri waktu server naik
		if err := Ping(db); err != nil {
			log.WithError(err).Warn("warm-up ping err")
		}
	}()
}

func Ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Migrate membuat/menyesuaikan tabel domain ini.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&staffModel.UserModel{},
		&orderModel.OrderModel{},
		&orderModel.OrderItemModel{},
		&chatModel.ChatSessionModel{},
		&chatModel.ChatMessageModel{},
		&webhookModel.PaymentGatewayEventModel{},
	)
}

func Close(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
