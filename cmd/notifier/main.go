package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"flextasker/pkg/config"
	"flextasker/pkg/db"
	"flextasker/pkg/logger"
	"flextasker/pkg/queue"
	"flextasker/services/notification"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		db.Module,
		queue.Server,
		fx.Provide(provideSnowflakeNode),
		notification.TaskModule,
		fx.Invoke(
			migrate,
			registerHandlers,
		),
		fxLogger,
	)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})

func provideSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(2)
}

func migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(&notification.Notification{})
}

func registerHandlers(mux *asynq.ServeMux, t *notification.Task) {
	mux.HandleFunc(notification.TypeBidOverbudget, t.HandleBidOverbudget)
	mux.HandleFunc(notification.TypeBidDecision, t.HandleBidDecision)
	mux.HandleFunc(notification.TypePaymentReceipt, t.HandlePaymentReceipt)
}
