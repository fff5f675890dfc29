package main

import (
	"context"
	"os"
	"strings"

	"github.com/playmatatu/beerpong/internal/config"
	"github.com/playmatatu/beerpong/internal/database"
	"github.com/playmatatu/beerpong/internal/logging"
	"github.com/playmatatu/beerpong/internal/operators"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.Environment)
	defer logger.Sync()

	ctx := context.Background()
	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	username := os.Getenv("OPERATOR_USERNAME")
	if username == "" {
		username = "operator"
		logger.Info("using default operator username", zap.String("username", username))
	}

	password := os.Getenv("OPERATOR_PASSWORD")
	if password == "" {
		password = "change-me-in-production"
		logger.Warn("using default operator password; set OPERATOR_PASSWORD in production")
	}

	displayName := os.Getenv("OPERATOR_DISPLAY_NAME")
	if displayName == "" {
		displayName = "Operator"
	}

	roles := []string{"operator", "trainer"}
	if v := os.Getenv("OPERATOR_ROLES"); v != "" {
		roles = strings.Split(v, ",")
		for i := range roles {
			roles[i] = strings.TrimSpace(roles[i])
		}
	}

	if err := operators.CreateOperatorAccount(ctx, db, username, displayName, password, roles); err != nil {
		logger.Fatal("failed to create operator account", zap.Error(err))
	}

	logger.Info("operator account created/updated",
		zap.String("username", username),
		zap.String("display_name", displayName),
		zap.Strings("roles", roles))
	logger.Info("log in with POST /api/v1/auth/login")
}
