package main

import (
	"context"
	"flag"
	"fmt"

	"apk-signer-go/internal/common"
	"apk-signer-go/internal/config"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type adminRequest struct {
	adminID   int64
	stats     bool
	find      string
	block     int64
	unblock   int64
	adjust    int64
	amount    string
	reason    string
	setPrice  string
	reconcile bool
}

func parseFlags() *adminRequest {
	req := &adminRequest{}
	flag.Int64Var(&req.adminID, "admin", 0, "Acting admin user id (required)")
	flag.BoolVar(&req.stats, "stats", false, "Print ledger statistics")
	flag.StringVar(&req.find, "find", "", "Find an account by id or @username")
	flag.Int64Var(&req.block, "block", 0, "Block the given user id")
	flag.Int64Var(&req.unblock, "unblock", 0, "Unblock the given user id")
	flag.Int64Var(&req.adjust, "adjust", 0, "Adjust balance for the given user id")
	flag.StringVar(&req.amount, "amount", "", "Adjustment amount in TRX, negative to debit")
	flag.StringVar(&req.reason, "reason", "", "Audit note for the adjustment")
	flag.StringVar(&req.setPrice, "set-price", "", "New signing fee in TRX")
	flag.BoolVar(&req.reconcile, "reconcile", false, "Verify the ledger invariant for all accounts")
	flag.Parse()
	return req
}

func runStats(ctx context.Context, services *common.Services) {
	stats, err := services.Ledger.GetStats(ctx)
	if err != nil {
		zap.L().Fatal("Stats query failed", zap.Error(err))
	}
	common.PrintHeader("LEDGER STATISTICS", common.DefaultWidth)
	fmt.Printf("Accounts:       %d\n", stats.TotalAccounts)
	fmt.Printf("Total balance:  %s TRX\n", stats.TotalBalance.String())
	common.PrintSeparator("=", common.DefaultWidth)
}

func runFind(ctx context.Context, services *common.Services, query string) {
	summary, err := services.Ledger.FindAccount(ctx, query)
	if err != nil {
		zap.L().Fatal("Account search failed", zap.String("query", query), zap.Error(err))
	}

	account := summary.Account
	common.PrintHeader(fmt.Sprintf("ACCOUNT %d", account.UserID), common.WideWidth)
	if account.Username != "" {
		fmt.Printf("Username:      @%s\n", account.Username)
	}
	fmt.Printf("Balance:       %s TRX\n", account.Balance.String())
	fmt.Printf("Blocked:       %t\n", account.Blocked)
	for i, record := range summary.Transactions {
		isLast := i == len(summary.Transactions)-1
		fmt.Printf("%s %-12s %15s TRX (%s)\n",
			common.BoxPrefix(isLast),
			record.Kind,
			record.Amount.String(),
			record.CreatedAt.Format("2006-01-02 15:04:05"))
		if record.Description != "" {
			fmt.Printf("%s    %s\n", common.BoxDetailPrefix(isLast), record.Description)
		}
	}
	common.PrintSeparator("=", common.WideWidth)
}

func runSetBlocked(ctx context.Context, services *common.Services, adminID, userID int64, blocked bool) {
	changed, err := services.Ledger.SetBlocked(ctx, adminID, userID, blocked)
	if err != nil {
		zap.L().Fatal("Blocked flag update failed", zap.Error(err))
	}
	if !changed {
		fmt.Printf("No such account: %d\n", userID)
		return
	}
	fmt.Printf("Account %d blocked=%t\n", userID, blocked)
}

func runAdjust(ctx context.Context, services *common.Services, req *adminRequest) {
	if req.amount == "" {
		zap.L().Fatal("Missing -amount for adjustment")
	}
	amount, err := decimal.NewFromString(req.amount)
	if err != nil {
		zap.L().Fatal("Invalid amount", zap.String("amount", req.amount), zap.Error(err))
	}

	newBalance, err := services.Ledger.AdjustBalance(ctx, req.adminID, req.adjust, amount, req.reason)
	if err != nil {
		zap.L().Fatal("Balance adjustment failed", zap.Error(err))
	}

	common.PrintHeader("BALANCE ADJUSTED", common.DefaultWidth)
	fmt.Printf("User:           %d\n", req.adjust)
	fmt.Printf("Adjustment:     %s TRX\n", amount.String())
	fmt.Printf("New Balance:    %s TRX\n", newBalance.String())
	common.PrintSeparator("=", common.DefaultWidth)
}

func runSetPrice(ctx context.Context, services *common.Services, adminID int64, raw string) {
	price, err := decimal.NewFromString(raw)
	if err != nil {
		zap.L().Fatal("Invalid price", zap.String("price", raw), zap.Error(err))
	}
	if err := services.Ledger.SetSignPrice(ctx, adminID, price); err != nil {
		zap.L().Fatal("Price update failed", zap.Error(err))
	}
	fmt.Printf("Sign price set to %s TRX\n", price.String())
}

func runReconcile(ctx context.Context, services *common.Services) {
	failed, err := services.Ledger.ReconcileAll(ctx)
	if err != nil {
		zap.L().Fatal("Reconciliation failed", zap.Error(err))
	}
	if len(failed) == 0 {
		fmt.Println("✅ All accounts reconcile")
		return
	}
	fmt.Printf("❌ %d account(s) failed reconciliation: %v\n", len(failed), failed)
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	req := parseFlags()
	if req.adminID <= 0 {
		zap.L().Fatal("-admin is required")
	}

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	if !services.Ledger.IsAdmin(req.adminID) {
		zap.L().Fatal("Not an admin", zap.Int64("user_id", req.adminID))
	}

	switch {
	case req.stats:
		runStats(ctx, services)
	case req.find != "":
		runFind(ctx, services, req.find)
	case req.block > 0:
		runSetBlocked(ctx, services, req.adminID, req.block, true)
	case req.unblock > 0:
		runSetBlocked(ctx, services, req.adminID, req.unblock, false)
	case req.adjust > 0:
		runAdjust(ctx, services, req)
	case req.setPrice != "":
		runSetPrice(ctx, services, req.adminID, req.setPrice)
	case req.reconcile:
		runReconcile(ctx, services)
	default:
		flag.Usage()
	}
}
