package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/viper"

	"expensetracker/internal/backend"
	"expensetracker/internal/config"
	"expensetracker/internal/services"
)

var errNoUser = errors.New("a user is required: pass --user or set TRACKER_USER")

// app opens the backend on first use so that commands like ticks never
// touch storage.
type app struct {
	res          *backend.Result
	transactions *services.TransactionService
	insights     *services.InsightService
}

func (a *app) open(ctx context.Context) error {
	if a.res != nil {
		return nil
	}
	weekStart, err := config.ParseWeekday(viper.GetString("week-start"))
	if err != nil {
		return err
	}
	bc := backend.Config{
		Type:          backend.BackendType(viper.GetString("backend")),
		SQLiteDBPath:  viper.GetString("db"),
		DataDirectory: viper.GetString("data-dir"),
	}
	res, err := backend.NewFactory(slog.Default()).CreateBackend(ctx, bc)
	if err != nil {
		return err
	}

	hub := services.NewSnapshotHub(res.Repository)
	a.res = res
	a.transactions = services.NewTransactionService(res.Repository, nil, hub)
	a.insights = services.NewInsightService(hub, services.WithWeekStart(weekStart))
	return nil
}

func (a *app) user() (string, error) {
	u := viper.GetString("user")
	if u == "" {
		return "", errNoUser
	}
	return u, nil
}

// close releases the store; the CLI never opens a publisher.
func (a *app) close() error {
	if a.res == nil {
		return nil
	}
	err := a.transactions.Close()
	a.res = nil
	return err
}
