package main

import (
	"log"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"flextasker/pkg/config"
	"flextasker/pkg/db"
	"flextasker/pkg/gateway"
	"flextasker/pkg/logger"
	"flextasker/pkg/queue"
	"flextasker/pkg/redis"
	"flextasker/pkg/sequence"
	"flextasker/pkg/server"
	"flextasker/services/bid"
	"flextasker/services/notification"
	"flextasker/services/payment"
	"flextasker/services/task"
	"flextasker/services/user"
)

func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		queue.Client,
		sequence.Module,
		gateway.Module,
		fx.Provide(provideSnowflakeNode),
		fx.Invoke(migrate),
		server.Module,
		user.Module,
		task.Module,
		bid.Module,
		payment.Module,
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})

func provideSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}

func migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&user.User{},
		&task.Task{},
		&bid.Bid{},
		&payment.Payment{},
		&notification.Notification{},
	)
}
